package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pps-segura/pesotrack/internal/models"
	"github.com/pps-segura/pesotrack/internal/tokens"
)

const (
	claimsKey = "auth_claims"
	userIDKey = "user_id"
	roleKey   = "role"
)

type Auth struct {
	Tokens *tokens.Engine
}

func NewAuth(engine *tokens.Engine) *Auth {
	return &Auth{Tokens: engine}
}

// RequireAuth demands a valid, unrevoked access token in the
// Authorization: Bearer header.
func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Tokens.Verify(c.Request().Context(), raw, tokens.TypeAccess)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		id, err := claims.AccountID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(claimsKey, claims)
		c.Set(userIDKey, id)
		c.Set(roleKey, claims.Role)
		return next(c)
	}
}

// AdminOnly must run after RequireAuth.
func (m *Auth) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if RoleFrom(c) != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}

func ClaimsFrom(c echo.Context) *tokens.Claims {
	if claims, ok := c.Get(claimsKey).(*tokens.Claims); ok {
		return claims
	}
	return nil
}

func AccountIDFrom(c echo.Context) uint {
	if id, ok := c.Get(userIDKey).(uint); ok {
		return id
	}
	return 0
}

func RoleFrom(c echo.Context) string {
	if role, ok := c.Get(roleKey).(string); ok {
		return role
	}
	return ""
}
