// Package router wires handlers, guards and throttles onto the Echo
// instance. Route layout and limits live here and nowhere else.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mypharma/pharma-backend/internal/auth"
	"github.com/mypharma/pharma-backend/internal/handler"
	"github.com/mypharma/pharma-backend/internal/middleware"
)

// Deps collects everything the routes need.
type Deps struct {
	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Admin    *handler.AdminHandler
	Tokens   *auth.TokenManager
	Redis    *redis.Client // nil disables throttling
}

// Register mounts all routes on e.
func Register(e *echo.Echo, d Deps) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/health", handler.Health)

	v1 := e.Group("/v1")
	bearer := middleware.Auth(d.Tokens)

	a := v1.Group("/auth")
	a.POST("/request-otp", d.Auth.RequestOTP,
		middleware.RateLimit(d.Redis, "otp_send", 3, time.Minute))
	a.POST("/verify-otp", d.Auth.VerifyOTP,
		middleware.RateLimit(d.Redis, "otp_verify", 10, time.Minute))
	a.POST("/register/complete", d.Auth.CompleteRegistration)
	a.POST("/register/email", d.Auth.RegisterEmail)
	a.POST("/verify-email", d.Auth.VerifyEmail)
	a.POST("/login", d.Auth.Login,
		middleware.RateLimit(d.Redis, "login", 5, time.Minute))
	a.POST("/token/refresh", d.Auth.Refresh)
	a.POST("/logout", d.Auth.Logout, bearer)
	a.POST("/password-reset", d.Auth.PasswordReset,
		middleware.RateLimit(d.Redis, "pwreset", 5, time.Hour))
	a.POST("/password-reset/confirm", d.Auth.PasswordResetConfirm)
	a.GET("/me", d.Auth.Me, bearer)

	v1.GET("/products", d.Products.List)
	v1.GET("/products/:id", d.Products.Get)

	adm := v1.Group("/admin", bearer)
	adm.POST("/products", d.Admin.CreateProduct,
		middleware.RequireCapability(auth.CapProductManage))
	adm.GET("/audit", d.Admin.ListAudit,
		middleware.RequireCapability(auth.CapAuditView))
}
