// Request ids tie together every log line written while serving one request,
// a websocket session keeps the id of the request which upgraded it.

package globalcontext

import (
	"Wishful/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key log.Logger.WithCtx reads the request id from.
const RequestIDKey = "ReqID"

// RequestIDHeader lets a client or a proxy choose the request id, it is echoed on the response.
const RequestIDHeader = "X-Request-ID"

// UniqueIDMiddleware populates the context of every request with a UUID.
// A valid UUID in X-Request-ID is kept, anything else is replaced by a fresh one.
func UniqueIDMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if rqId, err := uuid.Parse(gctx.GetHeader(RequestIDHeader)); err == nil {
			setRequestID(gctx, rqId.String())
			gctx.Next()
			return
		}
		rqId, uuiderr := uuid.NewRandom()
		if uuiderr != nil {
			logger.Error().Err(uuiderr).Msg("Error during generating UUID for ReqID.")
		} else {
			setRequestID(gctx, rqId.String())
		}
		gctx.Next()
	}
}

func setRequestID(gctx *gin.Context, id string) {
	gctx.Set(RequestIDKey, id)
	gctx.Header(RequestIDHeader, id)
}
