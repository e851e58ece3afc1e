// Helpers shared by every API test in Wishful.

package test

import (
	"Wishful/pkg/log"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// Format of Request helper ExecuteAPITest() handles
type RequestAPITest struct {
	Method       string            // Method of API request - [GET, POST, PUT, DELETE . . .]
	Path         string            // API Path
	Body         *bytes.Reader     // Request Body
	WantResponse []int             // Expected Response according to request
	Header       map[string]string // Request headers
	Parameters   url.Values        // Query parameters
	Cookie       []*http.Cookie    // Request cookies
}

// Response captured by ExecuteAPITest(), returned for further assertions.
type APIResponse struct {
	Status int
	Body   []byte
	Cookie []*http.Cookie
}

// Helper to execute API tests in Wishful.
func ExecuteAPITest(logger log.Logger, t *testing.T, router *gin.Engine, request *RequestAPITest) APIResponse {
	body := request.Body
	if body == nil {
		body = bytes.NewReader([]byte{})
	}
	// Setup the test request
	req, reqerr := http.NewRequest(request.Method, request.Path, body)
	if reqerr != nil {
		// Error in NewRequest
		logger.Error().Err(reqerr).Msg("Error occured during calling NewRequest in ExecuteAPITest()")
		t.FailNow()
	}
	for key, val := range request.Header {
		req.Header.Set(key, val)
	}
	if len(request.Parameters) > 0 {
		req.URL.RawQuery = request.Parameters.Encode()
	}
	for _, cookie := range request.Cookie {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	// Assert the response
	if !assert.Contains(t, request.WantResponse, w.Code) {
		t.Logf("%s %s -> %s", request.Method, request.Path, respBody)
	}
	return APIResponse{Status: w.Code, Body: respBody, Cookie: resp.Cookies()}
}
