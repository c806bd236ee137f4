package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys written by OptionalJWT.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// OptionalJWT reads a Bearer token when one is sent and exposes its "sub"
// and "role" claims under CtxUserID and CtxRole. Requests without a token
// pass through untouched; a token that fails verification is rejected
// with 401. An empty secret disables the middleware. A request already
// carrying claims from an outer OptionalJWT is not parsed again.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if secret == "" {
			return next
		}
		return func(c echo.Context) error {
			if c.Get(CtxUserID) != nil || c.Get(CtxRole) != nil {
				return next(c)
			}
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			if sub, ok := claims["sub"].(string); ok && sub != "" {
				c.Set(CtxUserID, sub)
			}
			if role, ok := claims["role"].(string); ok && role != "" {
				c.Set(CtxRole, strings.ToUpper(role))
			}
			return next(c)
		}
	}
}

// Role returns the upper-cased role claim, or "" for anonymous requests.
func Role(c echo.Context) string {
	role, _ := c.Get(CtxRole).(string)
	return role
}

func currentUserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
