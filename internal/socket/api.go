// Exposes the websocket endpoint of Wishful.

package socket

import (
	"Wishful/internal/errors"
	"Wishful/internal/room"
	"Wishful/pkg/globalcontext"
	"Wishful/pkg/log"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Registers the websocket handler onto the gin server.
func APIHandlers(router *gin.Engine, registry *room.Registry, access Access, AuthWithAcc gin.HandlerFunc, allowedOrigin string, settings Settings, logger log.Logger) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowedOrigin),
	}
	router.GET("/api/ws", AuthWithAcc, serveWs(upgrader, registry, access, settings, logger))
}

// checkOrigin accepts same-origin requests and the configured CORS origin.
func checkOrigin(allowedOrigin string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowedOrigin == "*" {
			return true
		}
		return origin == allowedOrigin
	}
}

func serveWs(upgrader websocket.Upgrader, registry *room.Registry, access Access, settings Settings, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		username, ok := gctx.Value("Username").(string)
		if !ok {
			// Type assertion error
			logger.WithCtx(gctx).Error().Msg("Type assertion error while reading Username from context")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		// Upgrade writes the error response itself
		conn, upgraderr := upgrader.Upgrade(gctx.Writer, gctx.Request, nil)
		if upgraderr != nil {
			logger.WithCtx(gctx).Warn().Err(upgraderr).Msg("Websocket upgrade failed")
			return
		}
		session := newSession(conn, username, registry, access, settings, logger)
		logger.WithCtx(gctx).Info().Str("Session", session.ID()).Msg("Websocket session opened")

		// The session outlives nothing but its connection, keep request values for logging only
		ctx := context.WithValue(context.Background(), globalcontext.RequestIDKey, gctx.Value(globalcontext.RequestIDKey))
		ctx, cancel := context.WithCancel(context.WithValue(ctx, "Username", username))
		defer cancel()
		session.Serve(ctx)
	}
}
