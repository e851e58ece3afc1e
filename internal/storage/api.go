// Exposes all of the REST APIs related to product image uploads in Wishful.

package storage

import (
	"Wishful/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
	tusd "github.com/tus/tusd/pkg/handler"
)

func APIHandlers(router *gin.Engine, storageHandler *tusd.UnroutedHandler, authWithAcc, validateUpload gin.HandlerFunc, logger log.Logger) {
	// tusd middleware answers the protocol headers and checks Tus-Resumable
	wrap := func(h http.HandlerFunc) gin.HandlerFunc {
		return gin.WrapH(storageHandler.Middleware(h))
	}
	router.POST("/api/upload", authWithAcc, validateUpload, wrap(storageHandler.PostFile))
	router.GET("/api/upload/:id", authWithAcc, wrap(storageHandler.GetFile))
	router.HEAD("/api/upload/:id", authWithAcc, wrap(storageHandler.HeadFile))
	router.PATCH("/api/upload/:id", authWithAcc, validateUpload, wrap(storageHandler.PatchFile))
	router.DELETE("/api/upload/:id", authWithAcc, wrap(storageHandler.DelFile))
}
