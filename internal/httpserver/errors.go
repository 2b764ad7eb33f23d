package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/observability"
	"github.com/Skotchmaster/church_members/internal/service"
)

const msgInternal = "internal error"

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail logs a service error under event and converts it to an HTTPError.
func fail(l *slog.Logger, event string, err error) error {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		l.Error(event, "status", code, "error", err)
		return echo.NewHTTPError(code, msgInternal).SetInternal(err)
	}
	msg := service.Message(err, http.StatusText(code))
	l.Warn(event, "status", code, "reason", msg)
	return echo.NewHTTPError(code, msg).SetInternal(err)
}

// ErrorHandler renders every error as {"error": "..."} and reports 5xx to Sentry.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		code := statusOf(err)
		msg := msgInternal
		if code < http.StatusInternalServerError {
			msg = service.Message(err, http.StatusText(code))
		}
		he = &echo.HTTPError{Code: code, Message: msg, Internal: err}
	}

	msg, ok := he.Message.(string)
	if !ok {
		msg = fmt.Sprint(he.Message)
	}

	if he.Code >= http.StatusInternalServerError {
		ctx := c.Request().Context()
		logging.FromContext(ctx).Error("request_failed", "status", he.Code, "error", err)
		var pe panicError
		if !errors.As(err, &pe) {
			observability.CaptureError(ctx, err, map[string]string{
				"method": c.Request().Method,
				"path":   c.Path(),
			})
		}
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, echo.Map{"error": msg})
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}
