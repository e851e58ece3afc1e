package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
)

// CorrelationHeader carries the correlation id between Wishful and its clients.
const CorrelationHeader = "X-Correlation-ID"

// This middleware will be used to populate every incoming request's context with a CorrelationID.
// A client supplied id is kept so that one user action can be followed across services, else a fresh xid is minted.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		correlationID := gctx.GetHeader(CorrelationHeader)
		if _, err := xid.FromString(correlationID); err != nil {
			correlationID = xid.New().String()
		}
		// Setting the correlationID in request's context
		gctx.Set("correlation_id", correlationID)
		// Setting the correlationID to response header
		gctx.Writer.Header().Set(CorrelationHeader, correlationID)
		gctx.Next()
	}
}
