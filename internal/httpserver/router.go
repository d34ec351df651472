package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pps-segura/pesotrack/internal/middleware"
)

type Deps struct {
	Auth    *AuthHTTP
	Weights *WeightsHTTP
	AuthMW  *middleware.Auth
	Logger  *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(middleware.RequestLogger(d.Logger))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout, d.AuthMW.RequireAuth)
	auth.GET("/me", d.Auth.Me, d.AuthMW.RequireAuth)

	admin := api.Group("/admin", d.AuthMW.RequireAuth, d.AuthMW.AdminOnly)
	admin.PUT("/users/:id/role", d.Auth.ChangeRole)

	private := api.Group("", d.AuthMW.RequireAuth)
	private.GET("/user", d.Weights.GetProfile)
	private.PUT("/user", d.Weights.PutProfile)
	private.POST("/weights", d.Weights.AddWeight)
	private.GET("/weights", d.Weights.History)
	private.GET("/imc", d.Weights.CurrentBMI)
	private.GET("/stats", d.Weights.Stats)
}
