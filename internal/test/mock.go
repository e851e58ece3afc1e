// Mock methods required in Wishful tests are all here.

package test

import (
	"Wishful/pkg/log"
	"Wishful/pkg/middlewares"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
)

// Global instance of gin MockRouter to be used during API testing.
var testRouter *gin.Engine

// Singleton to make sure testRouter is initialized only once.
var once sync.Once

func MockRouter() *gin.Engine {
	once.Do(func() {
		// Initializing the gin test server
		if ginMode := os.Getenv("GIN_MODE"); ginMode != "" {
			gin.SetMode(ginMode)
		} else {
			gin.SetMode(gin.TestMode)
		}
		testRouter = gin.New()
		testRouter.Use(gin.Recovery())
		testRouter.Use(middlewares.CORSMiddleware("*")) // CORS middleware which allows request from all origin
		testRouter.Use(middlewares.CorrelationMiddleware())
	})
	return testRouter
}

// Headers sent with every JSON request in tests.
func MockHeader() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
	}
}

// Cookie to be used in tests to bypass MockAuthMiddleware
var MockAuthAllowCookie *http.Cookie = &http.Cookie{
	Name:     "mode",
	Value:    "test",
	HttpOnly: true,
}

// Cookie identifying the user a test request is made as.
func UserCookie(username string) *http.Cookie {
	return &http.Cookie{
		Name:     "user",
		Value:    username,
		HttpOnly: true,
	}
}

func MockAuthMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		token, err := gctx.Request.Cookie("mode")
		if err != nil {
			gctx.AbortWithStatus(http.StatusUnauthorized)
			return
		} else if token.Value != "test" {
			gctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		user, err := gctx.Request.Cookie("user")
		if err != nil {
			gctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		// Set Username in request's context
		// This pair will be used further down in the handler chain
		gctx.Set("Username", user.Value)
		gctx.Next()
	}
}
