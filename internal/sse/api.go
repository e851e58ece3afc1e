// Exposes the read-only event stream of a wishlist over Server Side Events (SSE) in Wishful.

package sse

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"Wishful/pkg/middlewares"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package sse onto the gin server.
func APIHandlers(router *gin.Engine, service Service, authWithAcc gin.HandlerFunc, logger log.Logger) {
	sseGroup := router.Group("/api/sse", authWithAcc)
	{
		sseGroup.GET("/wishlists/:id/stream", SSEConnManagerMiddleware(service, logger), middlewares.SSEMiddleware(), ssehandler(service, logger))
	}
}

func ssehandler(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		v, ok := gctx.Get("SSE")
		if !ok {
			gctx.Status(http.StatusInternalServerError)
			return
		}
		stream, ok := v.(*Stream)
		if !ok {
			gctx.Status(http.StatusInternalServerError)
			return
		}
		quit := service.stopping()

		gctx.SSEvent(entity.FrameSession, entity.SessionPayload{SessionID: stream.ID()})
		gctx.Writer.Flush()
		gctx.Stream(func(w io.Writer) bool {
			select {
			// Send event to the client
			case msg := <-stream.events:
				gctx.SSEvent(string(msg.Event), msg.Data)
				return true
			// Client fell behind
			case <-stream.done:
				logger.WithCtx(gctx).Warn().Str("Session", stream.ID()).Msg("SSE stream fell behind, closing it")
				return false
			// Server shutdown
			case <-quit:
				return false
			// Client exit
			case <-gctx.Request.Context().Done():
				return false
			}
		})
	}
}
