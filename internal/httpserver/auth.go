package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/middleware/auth"
	"github.com/Skotchmaster/church_members/internal/service"
	"github.com/Skotchmaster/church_members/internal/transport"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	Cookies CookieConfig
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.Signup(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "signup_failed", err)
	}
	return c.JSON(http.StatusCreated, transport.NewUserResponse(user))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	c.SetCookie(h.Cookies.Create(auth.AccessCookie, res.Access.Raw, accessCookiePath, res.Access.ExpiresAt))
	c.SetCookie(h.Cookies.Create(auth.RefreshCookie, res.Refresh.Raw, refreshCookiePath, res.Refresh.ExpiresAt))
	return c.JSON(http.StatusOK, transport.NewUserResponse(res.User))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var raw string
	if ck, err := c.Cookie(auth.RefreshCookie); err == nil {
		raw = ck.Value
	}

	res, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		return fail(l, "refresh_failed", err)
	}

	c.SetCookie(h.Cookies.Create(auth.AccessCookie, res.Access.Raw, accessCookiePath, res.Access.ExpiresAt))
	return c.JSON(http.StatusOK, transport.NewUserResponse(res.User))
}

// Logout clears both cookies whatever the outcome.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	id, ok := auth.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	in := service.LogoutInput{
		UserID:          id.UserID,
		AccessID:        id.TokenID,
		AccessExpiresAt: id.ExpiresAt,
		SessionID:       id.SessionID,
	}
	if ck, err := c.Cookie(auth.RefreshCookie); err == nil {
		in.RefreshToken = ck.Value
	}

	c.SetCookie(h.Cookies.Delete(auth.AccessCookie, accessCookiePath))
	c.SetCookie(h.Cookies.Delete(auth.RefreshCookie, refreshCookiePath))

	if err := h.Svc.Logout(ctx, in); err != nil {
		return fail(l, "logout_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Check never rejects; it reports whether the access cookie identifies someone.
func (h *AuthHTTP) Check(c echo.Context) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusOK, transport.CheckResponse{IsLoggedIn: false})
	}
	u := transport.UserResponse{ID: id.UserID, Email: id.Email, Role: id.Role.String()}
	return c.JSON(http.StatusOK, transport.CheckResponse{IsLoggedIn: true, User: &u})
}
