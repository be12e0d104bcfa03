// Package middleware contains the reusable HTTP middleware of the booking
// API: authentication, rate limiting, response caching and request logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/utils"
)

// AuthRequiredMessage is returned to unauthenticated callers of protected
// endpoints.
const AuthRequiredMessage = "Необходима авторизация"

// UserIDKey is the echo.Context key holding the authenticated user ID as a
// uint64.
const UserIDKey = "user_id"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the token's subject under UserIDKey.  The provided secret must
// match the one used when issuing tokens.  Requests without a valid token
// are answered with 401 and never reach the handler.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": AuthRequiredMessage})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			userID, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": AuthRequiredMessage})
			}
			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}
