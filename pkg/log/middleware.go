// Gin middleware which routes request logging through the zerolog Logger built in logger.go.

package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoggerGinExtension forces gin to log requests with structured zerolog fields instead of its default text logger.
// Long-lived upgrade requests (websocket, event streams) are logged once they end, with their full duration.
func LoggerGinExtension(logger Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		start := time.Now()
		path := gctx.Request.URL.Path
		if raw := gctx.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		// Process request
		gctx.Next()

		latency := time.Since(start)
		if latency > time.Minute {
			latency = latency.Truncate(time.Second)
		}
		status := gctx.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.WithCtx(gctx).Error()
		case status >= 400:
			event = logger.WithCtx(gctx).Warn()
		default:
			event = logger.WithCtx(gctx).Info()
		}
		if correlationID := gctx.GetString("correlation_id"); correlationID != "" {
			event = event.Str("CorrelationID", correlationID)
		}
		event.
			Str("ClientIP", gctx.ClientIP()).
			Str("Method", gctx.Request.Method).
			Str("Path", path).
			Int("Status", status).
			Dur("Latency", latency).
			Int("BodySize", gctx.Writer.Size()).
			Str("Errors", gctx.Errors.ByType(gin.ErrorTypePrivate).String()).
			Msg("request served")
	}
}
