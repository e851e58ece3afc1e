// Exposes all of the REST APIs related to User authentication in Wishful.

package auth

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Attributes of the token cookies, read from config in main.
type CookieSettings struct {
	Domain string
	Secure bool
}

// Registers all of the REST API handlers related to internal package auth onto the gin server.
func APIHandlers(router *gin.Engine, authService Service, AuthWithAcc gin.HandlerFunc, AuthWithRef gin.HandlerFunc, cookies CookieSettings, logger log.Logger) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.GET("/validate_token", AuthWithAcc, validateToken(logger))
		authGroup.POST("/register", register(authService, cookies, logger))
		authGroup.POST("/login", login(authService, cookies, logger))
		authGroup.POST("/logout", AuthWithAcc, AuthWithRef, logout(authService, cookies, logger))
		authGroup.POST("/refresh_token", AuthWithRef, refresh_token(authService, cookies, logger))
	}
}

// Helper to write a service error as the response.
func abortWithError(gctx *gin.Context, err error) {
	// Error occured, might be validation or server error
	resp, ok := err.(errors.ErrorResponse)
	if !ok {
		// Type assertion error
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
		return
	}
	gctx.AbortWithStatusJSON(resp.Status, resp)
}

// Add the jwt pair in response's cookie with httpOnly as true.
// A nil token clears both cookies.
func setTokenCookies(gctx *gin.Context, cookies CookieSettings, token map[string]interface{}) {
	for _, name := range []string{"access_token", "refresh_token"} {
		cookie := &http.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Domain:   cookies.Domain,
			Path:     "/api",
			Secure:   cookies.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		if cookies.Secure {
			// Cross-site cookies are only accepted over https
			cookie.SameSite = http.SameSiteNoneMode
		}
		if token != nil {
			cookie.Value = token[name].(string)
			cookie.Expires = token[name+"_exp"].(time.Time)
			cookie.MaxAge = token[name+"_maxAge"].(int)
		}
		http.SetCookie(gctx.Writer, cookie)
	}
}

// register returns a handler which takes care of user registration in Wishful.
func register(authService Service, cookies CookieSettings, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var user entity.User

		// Serialize received data into User struct
		if binderr := gctx.ShouldBindJSON(&user); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with User struct.")
			gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}

		// Apply the service logic for User registration in Wishful
		token, err := authService.register(gctx, user)
		if err != nil {
			abortWithError(gctx, err)
			return
		}

		// Registration successful
		setTokenCookies(gctx, cookies, token)
		gctx.JSON(http.StatusOK, gin.H{
			"username": user.Username,
		})
	}
}

// login returns a handler which takes care of user login in Wishful.
func login(authService Service, cookies CookieSettings, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var user entity.UserLogin

		// Serialize received data into UserLogin struct
		if binderr := gctx.ShouldBindJSON(&user); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with UserLogin struct.")
			gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}

		// Apply the service logic for User login in Wishful
		token, err := authService.login(gctx, user)
		if err != nil {
			abortWithError(gctx, err)
			return
		}

		// login successful
		setTokenCookies(gctx, cookies, token)
		gctx.JSON(http.StatusOK, gin.H{
			"username": user.Username,
		})
	}
}

// Logout returns a handler which takes care of user logout from Wishful.
func logout(authService Service, cookies CookieSettings, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		err := authService.logout(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		// Delete token cookies from client's jar
		setTokenCookies(gctx, cookies, nil)
		gctx.Status(http.StatusOK)
	}
}

// refresh_token returns a handler which takes care of refreshing JWT for users in Wishful.
// Incoming request should pass AuthMiddleware in order for this handler to work.
func refresh_token(authService Service, cookies CookieSettings, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		// Fetch Username from context
		username, ok := gctx.Value("Username").(string)
		if !ok {
			// Type assertion error
			logger.WithCtx(gctx).Error().Msg("Type assertion error in refresh_token")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		// Generate fresh pair of JWT for user
		token, err := authService.refreshtoken(gctx, username)
		if err != nil {
			abortWithError(gctx, err)
			return
		}

		// Refresh successful
		setTokenCookies(gctx, cookies, token)
		gctx.Status(http.StatusOK)
	}
}

// validateToken answers 200 with the username once AuthMiddleware let the request through.
func validateToken(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, gin.H{
			"username": gctx.GetString("Username"),
		})
	}
}
