// Product image upload tests in Wishful.

package storage

import (
	"Wishful/internal/test"
	"Wishful/pkg/log"
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global instance of log.Logger to be used during upload testing.
var logger log.Logger = log.NewWithWriter("test", io.Discard)

// Smallest content filetype recognizes as a png.
var pngContent = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 64)...)

func newRouter(t *testing.T, maxUploadSize int64) (*gin.Engine, string) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	handler, err := NewTusdStorageHandler(dir, maxUploadSize, logger)
	require.Nil(t, err)
	router := gin.New()
	APIHandlers(router, handler, test.MockAuthMiddleware(logger), UploadStorageMiddleware(dir, maxUploadSize, logger), logger)
	return router, dir
}

func metadata(filename, filetype string) string {
	return "filename " + base64.StdEncoding.EncodeToString([]byte(filename)) +
		",filetype " + base64.StdEncoding.EncodeToString([]byte(filetype))
}

func do(router *gin.Engine, method, target string, body []byte, header map[string]string, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Tus-Resumable", "1.0.0")
	for key, val := range header {
		req.Header.Set(key, val)
	}
	if authenticated {
		req.AddCookie(test.MockAuthAllowCookie)
		req.AddCookie(test.UserCookie("uploader"))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Helper creating an upload and returning its id.
func create(t *testing.T, router *gin.Engine, size int, filetype string) string {
	w := do(router, http.MethodPost, "/api/upload", nil, map[string]string{
		"Upload-Length":   strconv.Itoa(size),
		"Upload-Metadata": metadata("gift.png", filetype),
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	require.NotEmpty(t, location)
	return path.Base(location)
}

func patch(router *gin.Engine, id string, content []byte) *httptest.ResponseRecorder {
	return do(router, http.MethodPatch, "/api/upload/"+id, content, map[string]string{
		"Content-Type":  "application/offset+octet-stream",
		"Upload-Offset": "0",
	}, true)
}

func TestUploadImage(t *testing.T) {
	router, _ := newRouter(t, 1024)
	id := create(t, router, len(pngContent), "image/png")

	w := patch(router, id, pngContent)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(router, http.MethodGet, ImageURL(id), nil, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngContent, w.Body.Bytes())
}

func TestUploadRejectsContentWhichIsNoImage(t *testing.T) {
	router, dir := newRouter(t, 1024)
	content := []byte("definitely not a picture, only some text")
	id := create(t, router, len(content), "image/png")

	w := patch(router, id, content)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	_, staterr := os.Stat(filepath.Join(dir, id))
	assert.True(t, os.IsNotExist(staterr))
	_, staterr = os.Stat(filepath.Join(dir, id+".info"))
	assert.True(t, os.IsNotExist(staterr))
}

func TestUploadRejectsBadMetadata(t *testing.T) {
	router, _ := newRouter(t, 1024)
	tests := map[string]struct {
		metadata string
		want     int
	}{
		"NotAnImageType": {metadata("notes.pdf", "application/pdf"), http.StatusUnsupportedMediaType},
		"MissingName":    {metadata("", "image/png"), http.StatusBadRequest},
		"NoMetadata":     {"", http.StatusUnsupportedMediaType},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/upload", nil, map[string]string{
				"Upload-Length":   "10",
				"Upload-Metadata": tc.metadata,
			}, true)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestUploadSizeIsBounded(t *testing.T) {
	router, _ := newRouter(t, 16)
	w := do(router, http.MethodPost, "/api/upload", nil, map[string]string{
		"Upload-Length":   "17",
		"Upload-Metadata": metadata("big.png", "image/png"),
	}, true)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadNeedsAuth(t *testing.T) {
	router, _ := newRouter(t, 1024)
	w := do(router, http.MethodPost, "/api/upload", nil, map[string]string{
		"Upload-Length":   "10",
		"Upload-Metadata": metadata("gift.png", "image/png"),
	}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteUpload(t *testing.T) {
	router, _ := newRouter(t, 1024)
	id := create(t, router, len(pngContent), "image/png")
	require.Equal(t, http.StatusNoContent, patch(router, id, pngContent).Code)

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/api/upload/"+id, nil, nil, true).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, ImageURL(id), nil, nil, true).Code)
}
