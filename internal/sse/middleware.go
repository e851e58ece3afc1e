// Server Side Events (SSE) middleware used to populate request context with the stream of the client.

package sse

import (
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Opens the stream of the requested wishlist and closes it once the rest of the chain returned.
func SSEConnManagerMiddleware(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		// Fetch username from context which will be used for the access check
		username, ok := gctx.Value("Username").(string)
		if !ok {
			// Type assertion error
			logger.WithCtx(gctx).Error().Msg("Type assertion error in SSEConnManagerMiddleware")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		stream, err := service.open(gctx, username, gctx.Param("id"))
		if err != nil {
			resp, ok := err.(errors.ErrorResponse)
			if !ok {
				resp = errors.InternalServerError("")
			}
			gctx.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		// The registry must forget the stream before the request is released
		defer service.close(gctx, stream)

		gctx.Set("SSE", stream)
		gctx.Next()
	}
}
