// Auth middleware guards every endpoint which needs an authenticated user,
// the websocket upgrade and the event streams included.

package auth

import (
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// AuthMiddleware verifies the JWT found in the cookie named tokenType, "access_token" or "refresh_token",
// with the matching secret. A refresh token is single use and gets revoked on the way through.
// On success the username is stored under "Username" for the handlers down the chain.
func AuthMiddleware(logger log.Logger, authRepo Repository, tokenType string, secret string) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		tokenUUID, username, status := verifyToken(gctx, logger, authRepo, tokenType, secret)
		if status != http.StatusOK {
			gctx.AbortWithStatus(status)
			return
		}

		if tokenType == "refresh_token" {
			if dberr := authRepo.DelToken(gctx, logger, tokenUUID); dberr != nil {
				if errors.Is(dberr, http.StatusNotFound) {
					// Refresh token got used concurrently by another request
					gctx.AbortWithStatus(http.StatusUnauthorized)
				} else {
					gctx.AbortWithStatus(http.StatusInternalServerError)
				}
				return
			}
		} else {
			// Needed by logout to revoke the access token
			gctx.Set("access_token", tokenUUID)
		}
		gctx.Set("Username", username)
		gctx.Next()
	}
}

// verifyToken returns the token uuid and username carried by a valid token, with http.StatusOK.
// Any other status is the one to abort with.
func verifyToken(gctx *gin.Context, logger log.Logger, authRepo Repository, tokenType, secret string) (string, string, int) {
	cookie, err := gctx.Request.Cookie(tokenType)
	if err != nil || cookie.Value == "" {
		return "", "", http.StatusUnauthorized
	}
	token, err := parseIntoJWT(gctx, logger, secret, cookie.Value)
	if err != nil || !token.Valid {
		return "", "", http.StatusUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", http.StatusInternalServerError
	}
	tokenUUID, ok := claims[tokenType+"_uuid"].(string)
	if !ok {
		// Token wasn't issued by Wishful for this tokenType
		logger.WithCtx(gctx).Warn().Str("TokenType", tokenType).Msg("Token without uuid claim in AuthMiddleware")
		return "", "", http.StatusUnauthorized
	}
	username, ok := claims["username"].(string)
	if !ok {
		return "", "", http.StatusUnauthorized
	}

	// Logged out and rotated tokens are gone from redis
	valid, dberr := authRepo.TokenExists(gctx, logger, tokenUUID, username)
	if dberr != nil {
		return "", "", http.StatusInternalServerError
	}
	if !valid {
		return "", "", http.StatusUnauthorized
	}
	return tokenUUID, username, http.StatusOK
}

// secret is the Access-Secret or the Refresh-Secret, only HMAC signed tokens are accepted.
func parseIntoJWT(gctx *gin.Context, logger log.Logger, secret string, token string) (*jwt.Token, error) {
	return jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			err := errors.New(fmt.Sprintf("Unexpected signing method found: %s", t.Header["alg"]))
			logger.WithCtx(gctx).Warn().Err(err).Msg("Rejected token")
			return nil, err
		}
		return []byte(secret), nil
	})
}
