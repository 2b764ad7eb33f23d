package httpserver

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/church_members/internal/domain"
	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/metrics"
	"github.com/Skotchmaster/church_members/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/church_members/internal/middleware/logging"
	"github.com/Skotchmaster/church_members/internal/middleware/ratelimit"
	"github.com/Skotchmaster/church_members/internal/observability"
)

type Deps struct {
	Auth    *AuthHTTP
	Admin   *AdminHTTP
	Members *MembersHTTP

	Guard   *auth.Guard
	Metrics *metrics.Metrics
	Limit   ratelimit.Config
	Ready   []Check

	Logger      *slog.Logger
	CORSOrigins []string

	// Proxies whose X-Forwarded-For is believed. Empty means the peer address is the
	// client IP.
	TrustedProxies []*net.IPNet
}

// panicError marks errors coming out of Recover, which already reported them with the
// stack.
type panicError struct{ error }

func (p panicError) Unwrap() error { return p.error }

// New builds the echo instance with the shared middleware chain and every route.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = NewValidator()
	e.IPExtractor = ipExtractor(d.TrustedProxies)

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(d.Metrics.Middleware())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			ctx := c.Request().Context()
			logging.FromContext(ctx).Error("panic_recovered", "error", err, "stack", string(stack))
			observability.CapturePanic(ctx, err, stack)
			return panicError{fmt.Errorf("panic: %w", err)}
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("1M"))

	Register(e, d)
	return e
}

func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", live)
	e.GET("/health/ready", ready(d.Ready))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	api := e.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/signup", d.Auth.Signup, ratelimit.PerIP(d.Limit))
	authG.POST("/login", d.Auth.Login, ratelimit.PerIP(d.Limit))
	authG.POST("/refresh", d.Auth.Refresh)
	authG.POST("/logout", d.Auth.Logout, d.Guard.RequireAuth())
	authG.GET("/check", d.Auth.Check, d.Guard.Optional())

	admin := api.Group("/admin", d.Guard.RequireAuth())
	admin.GET("/users", d.Admin.ListUsers, auth.RequireRole(domain.RoleAdmin))
	admin.PUT("/users/:id/role", d.Admin.UpdateRole, auth.RequireRole(domain.RoleSuperAdmin))
	admin.DELETE("/users/:id", d.Admin.DeleteUser, auth.RequireRole(domain.RoleSuperAdmin))

	api.GET("/members/public", d.Members.Public)

	members := api.Group("/members", d.Guard.RequireAuth())
	members.GET("", d.Members.List, auth.RequireRole(domain.RoleUser))
	members.GET("/search", d.Members.Search, auth.RequireRole(domain.RoleUser))
	members.GET("/:id", d.Members.Get, auth.RequireRole(domain.RoleUser))

	editors := auth.RequireRole(domain.RoleAdmin)
	members.POST("", d.Members.Create, editors)
	members.PUT("/:id", d.Members.Update, editors)
	members.DELETE("/:id", d.Members.Delete, editors)
}
