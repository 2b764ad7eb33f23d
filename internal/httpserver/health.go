package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/church_members/internal/logging"
)

// Check is one readiness probe, e.g. a database or ledger ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

func live(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func ready(checks []Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		l := logging.FromContext(ctx).With("handler", "health_ready")

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, ch := range checks {
			if err := ch.Ping(ctx); err != nil {
				l.Error("readiness_check_failed", "check", ch.Name, "error", err)
				results[ch.Name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[ch.Name] = "up"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		return c.JSON(status, echo.Map{"status": state, "checks": results})
	}
}
