// Exposes the realtime stats of Wishful.

package metrics

import (
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package metrics onto the gin server.
func APIHandlers(router *gin.Engine, service Service, AuthWithAcc gin.HandlerFunc, logger log.Logger) {
	router.GET("/api/metrics", AuthWithAcc, getMetrics(service, logger))
}

func getMetrics(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		metrics, err := service.getmetrics(gctx)
		if err != nil {
			resp, ok := err.(errors.ErrorResponse)
			if !ok {
				// Type assertion error
				gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
				return
			}
			gctx.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		gctx.JSON(http.StatusOK, metrics)
	}
}
