// Exposes all of the REST APIs related to wishlist Invitations in Wishful.

package invitation

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package invitation onto the gin server.
func APIHandlers(router *gin.Engine, service Service, AuthWithAcc gin.HandlerFunc, logger log.Logger) {
	router.POST("/api/wishlists/:id/invite", AuthWithAcc, invite(service, logger))
	invitationGroup := router.Group("/api/invitations", AuthWithAcc)
	{
		invitationGroup.GET("", listInvitations(service, logger))
		invitationGroup.POST("/:id/accept", accept(service, logger))
		invitationGroup.POST("/:id/decline", decline(service, logger))
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

// invite returns a handler which lets the owner invite a collaborator.
func invite(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input entity.InviteInput
		// Serialize received data into InviteInput struct
		if binderr := gctx.ShouldBindJSON(&input); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with InviteInput struct.")
			gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		inv, err := service.invite(gctx, gctx.Param("id"), input)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, inv)
	}
}

// listInvitations returns a handler answering the pending invitations of the user.
func listInvitations(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		invitations, err := service.listinvitations(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"invitations": invitations,
		})
	}
}

// accept returns a handler which makes the invitee a member of the wishlist.
func accept(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		inv, err := service.accept(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, inv)
	}
}

// decline returns a handler which refuses an invitation.
func decline(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		inv, err := service.decline(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, inv)
	}
}
