package globalcontext

import (
	"Wishful/pkg/log"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUniqueIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(UniqueIDMiddleware(log.NewWithWriter("test", io.Discard)))
	router.GET("/", func(gctx *gin.Context) {
		gctx.String(http.StatusOK, gctx.GetString(RequestIDKey))
	})

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(RequestIDHeader, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	fresh := serve("")
	_, err := uuid.Parse(fresh.Body.String())
	assert.NoError(t, err)
	assert.Equal(t, fresh.Body.String(), fresh.Header().Get(RequestIDHeader))

	given := uuid.NewString()
	assert.Equal(t, given, serve(given).Body.String())

	forged := serve("'; DROP TABLE")
	assert.NotEqual(t, "'; DROP TABLE", forged.Body.String())
	_, err = uuid.Parse(forged.Body.String())
	assert.NoError(t, err)
}
