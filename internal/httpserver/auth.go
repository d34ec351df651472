package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pps-segura/pesotrack/internal/logging"
	"github.com/pps-segura/pesotrack/internal/middleware"
	"github.com/pps-segura/pesotrack/internal/service"
	"github.com/pps-segura/pesotrack/internal/tokens"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	session, err := h.Svc.Register(ctx, req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(refreshCookie(session.RefreshToken, session.RefreshExpiresAt, h.CookieSecure))
	l.Info("registered", "user_id", session.Account.ID, "role", session.Account.Role)
	return c.JSON(http.StatusCreated, sessionResponse{
		UserID:      session.Account.ID,
		Username:    session.Account.Username,
		Role:        session.Account.Role,
		AccessToken: session.AccessToken,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	session, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			l.Warn("login failed")
		}
		return httpError(err)
	}

	c.SetCookie(refreshCookie(session.RefreshToken, session.RefreshExpiresAt, h.CookieSecure))
	l.Info("login successful", "user_id", session.Account.ID)
	return c.JSON(http.StatusOK, sessionResponse{
		UserID:      session.Account.ID,
		Username:    session.Account.Username,
		Role:        session.Account.Role,
		AccessToken: session.AccessToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var rawRefresh string
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		rawRefresh = cookie.Value
	}

	if err := h.Svc.Logout(ctx, claims, rawRefresh); err != nil {
		return httpError(err)
	}
	c.SetCookie(deleteRefreshCookie(h.CookieSecure))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	access, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": access})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := h.Svc.Me(ctx, middleware.AccountIDFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  account.ID,
		"username": account.Username,
		"role":     account.Role,
	})
}

func (h *AuthHTTP) ChangeRole(c echo.Context) error {
	ctx := c.Request().Context()

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	account, err := h.Svc.ChangeRole(ctx, middleware.AccountIDFrom(c), uint(targetID), req.Role)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": account.ID,
		"role":    account.Role,
	})
}

// httpError maps service and token sentinels onto transport status codes.
// Anything unrecognized is a storage or infrastructure failure and stays
// opaque to the client.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, "username already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "admin role required")
	case errors.Is(err, service.ErrInvalidOperation):
		return echo.NewHTTPError(http.StatusBadRequest, "cannot change your own role")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, tokens.ErrInvalidToken),
		errors.Is(err, tokens.ErrExpiredToken),
		errors.Is(err, tokens.ErrWrongType),
		errors.Is(err, tokens.ErrRevokedToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
