// Exposes all of the REST APIs related to User Model in Wishful.

package user

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package user onto the gin server.
func APIHandlers(router *gin.Engine, service Service, AuthWithAcc gin.HandlerFunc, logger log.Logger) {
	usergroup := router.Group("/api/user", AuthWithAcc)
	{
		usergroup.GET("/get", getUser(service, logger))
		usergroup.GET("/list", listUsers(service, logger))
		usergroup.GET("/search", searchUser(service, logger))
	}
}

// Helper writing err as the response, err is expected to be an errors.ErrorResponse.
func abortWithError(gctx *gin.Context, err error) {
	resp, ok := err.(errors.ErrorResponse)
	if !ok {
		// Type assertion error
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
		return
	}
	gctx.AbortWithStatusJSON(resp.Status, resp)
}

// getUser returns a handler which takes care of getting user details in Wishful.
func getUser(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		user, err := service.getuser(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"user": user,
		})
	}
}

// listUsers returns a handler listing every user in Wishful.
func listUsers(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		users, err := service.listusers(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"users": users,
		})
	}
}

// searchUser returns a handler which takes care of paginated user search in Wishful.
func searchUser(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		cursor, converr := strconv.Atoi(gctx.DefaultQuery("cursor", "0"))
		if converr != nil || cursor < 0 {
			// Invalid cursor input
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest("Invalid cursor"))
			return
		}
		query := entity.UserSearch{Username: gctx.Query("username"), Cursor: cursor}
		result, newCursor, err := service.searchuser(gctx, query)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"result": result,
			"page":   newCursor,
		})
	}
}
