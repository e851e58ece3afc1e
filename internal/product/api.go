// Exposes all of the REST APIs related to Product Model (with its comments and reactions) in Wishful.

package product

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Sessions knows which live sessions belong to which user, implemented by room.Registry.
type Sessions interface {
	Owns(sessionID, username string) bool
}

// Registers all of the REST API handlers related to internal package product onto the gin server.
func APIHandlers(router *gin.Engine, service Service, sessions Sessions, AuthWithAcc gin.HandlerFunc, logger log.Logger) {
	productGroup := router.Group("/api/wishlists/:id/products", AuthWithAcc, OriginMiddleware(sessions, logger))
	{
		productGroup.POST("", addProduct(service, logger))
		productGroup.PUT("/:productId", updateProduct(service, logger))
		productGroup.DELETE("/:productId", deleteProduct(service, logger))
		productGroup.POST("/:productId/comments", addComment(service, logger))
		productGroup.DELETE("/:productId/comments/:commentId", deleteComment(service, logger))
		productGroup.POST("/:productId/reactions", toggleReaction(service, logger))
		productGroup.DELETE("/:productId/reactions/:emoji", removeReaction(service, logger))
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

// Context key of the session id OriginMiddleware vouched for.
const originKey = "Origin"

// OriginMiddleware keeps the session id sent in X-Session-ID only if that session belongs to the caller.
// Otherwise anybody knowing a viewer's session id could keep events away from it.
func OriginMiddleware(sessions Sessions, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if sessionID := gctx.GetHeader(entity.SessionHeader); sessionID != "" {
			if sessions.Owns(sessionID, gctx.GetString("Username")) {
				gctx.Set(originKey, sessionID)
			} else {
				logger.WithCtx(gctx).Warn().Str("Session", sessionID).Msg("Ignoring session id the user doesn't own")
			}
		}
		gctx.Next()
	}
}

// Session id of the mutating client, empty if it has no live session of its own.
func origin(gctx *gin.Context) string {
	return gctx.GetString(originKey)
}

// Helper binding the JSON body into v, answers 422 on failure.
func bind(gctx *gin.Context, logger log.Logger, v interface{}) bool {
	if binderr := gctx.ShouldBindJSON(v); binderr != nil {
		// Error occured during serialization
		logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with request body.")
		gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
		return false
	}
	return true
}

// addProduct returns a handler which adds a product into a wishlist.
func addProduct(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input entity.ProductInput
		if !bind(gctx, logger, &input) {
			return
		}
		product, err := service.addproduct(gctx, gctx.Param("id"), input, origin(gctx))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, product)
	}
}

// updateProduct returns a handler which replaces the editable fields of a product.
func updateProduct(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input entity.ProductInput
		if !bind(gctx, logger, &input) {
			return
		}
		product, err := service.updateproduct(gctx, gctx.Param("id"), gctx.Param("productId"), input, origin(gctx))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, product)
	}
}

// deleteProduct returns a handler which removes a product from a wishlist.
func deleteProduct(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if err := service.deleteproduct(gctx, gctx.Param("id"), gctx.Param("productId"), origin(gctx)); err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"message": "Product deleted",
		})
	}
}

// addComment returns a handler which comments on a product.
func addComment(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input entity.CommentInput
		if !bind(gctx, logger, &input) {
			return
		}
		product, err := service.addcomment(gctx, gctx.Param("id"), gctx.Param("productId"), input, origin(gctx))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, product)
	}
}

// deleteComment returns a handler which deletes a comment of a product.
func deleteComment(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		product, err := service.deletecomment(gctx, gctx.Param("id"), gctx.Param("productId"), gctx.Param("commentId"), origin(gctx))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, product)
	}
}

// toggleReaction returns a handler adding the user's reaction, or removing it when already present.
func toggleReaction(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input entity.ReactionInput
		if !bind(gctx, logger, &input) {
			return
		}
		product, added, err := service.togglereaction(gctx, gctx.Param("id"), gctx.Param("productId"), input, origin(gctx))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		status := http.StatusOK
		if added {
			status = http.StatusCreated
		}
		gctx.JSON(status, gin.H{
			"product": product,
			"added":   added,
		})
	}
}

// removeReaction returns a handler removing the user's reaction with the emoji in the path.
func removeReaction(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		product, err := service.removereaction(gctx, gctx.Param("id"), gctx.Param("productId"), gctx.Param("emoji"), origin(gctx))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, product)
	}
}
