package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/church_members/internal/domain"
	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/metrics"
	"github.com/Skotchmaster/church_members/internal/models"
	"github.com/Skotchmaster/church_members/internal/repo"
	"github.com/Skotchmaster/church_members/internal/revocation"
	"github.com/Skotchmaster/church_members/internal/tokens"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	identityKey = "identity"
)

// Identity is the authenticated caller. Role is loaded from the user store on every
// request, never from the token.
type Identity struct {
	UserID    uint
	Email     string
	Role      domain.Role
	TokenID   string
	SessionID string
	ExpiresAt time.Time
}

func IdentityFrom(c echo.Context) (*Identity, bool) {
	id, ok := c.Get(identityKey).(*Identity)
	return id, ok && id != nil
}

type UserLookup interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

type Guard struct {
	Tokens  *tokens.Issuer
	Ledger  revocation.Ledger
	Users   UserLookup
	Metrics *metrics.Metrics
}

type rejection struct {
	status int
	reason string
	msg    string
	err    error
}

func (r *rejection) Error() string {
	if r.err != nil {
		return r.reason + ": " + r.err.Error()
	}
	return r.reason
}

func (r *rejection) Unwrap() error { return r.err }

func reject(reason, msg string, err error) *rejection {
	return &rejection{status: http.StatusUnauthorized, reason: reason, msg: msg, err: err}
}

// Verify runs every check on a raw access token and resolves the caller.
func (g *Guard) Verify(ctx context.Context, raw string) (*Identity, error) {
	claims, err := g.Tokens.ParseAccess(raw)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return nil, reject(metrics.ReasonExpired, "token expired", err)
		}
		return nil, reject(metrics.ReasonMalformed, "invalid token", err)
	}

	revoked, err := g.Ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, &rejection{
			status: http.StatusInternalServerError,
			reason: metrics.ReasonLedgerDown,
			msg:    "authentication unavailable",
			err:    err,
		}
	}
	if revoked {
		return nil, reject(metrics.ReasonRevoked, "token revoked", nil)
	}

	uid, _ := claims.UserID()
	user, err := g.Users.FindUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, reject(metrics.ReasonUnknownUser, "unknown user", err)
		}
		return nil, &rejection{
			status: http.StatusInternalServerError,
			reason: metrics.ReasonUserStore,
			msg:    "authentication unavailable",
			err:    err,
		}
	}

	return &Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenID:   claims.ID,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (g *Guard) config(optional bool) echojwt.Config {
	return echojwt.Config{
		TokenLookup: "cookie:" + AccessCookie,
		ContextKey:  identityKey,
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return g.Verify(c.Request().Context(), raw)
		},
		ContinueOnIgnoredError: optional,
		ErrorHandler: func(c echo.Context, err error) error {
			return g.handleError(c, err, optional)
		},
	}
}

func (g *Guard) handleError(c echo.Context, err error, optional bool) error {
	l := logging.FromContext(c.Request().Context()).With("middleware", "auth_guard")

	var rej *rejection
	if !errors.As(err, &rej) {
		if optional {
			return nil
		}
		g.Metrics.TokenRejected(metrics.ReasonMissing)
		l.Warn("auth_rejected", "status", http.StatusUnauthorized, "reason", metrics.ReasonMissing)
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required").SetInternal(err)
	}

	g.Metrics.TokenRejected(rej.reason)
	if rej.status >= http.StatusInternalServerError {
		l.Error("auth_failed", "status", rej.status, "reason", rej.reason, "error", rej.err)
	} else {
		l.Warn("auth_rejected", "status", rej.status, "reason", rej.reason)
	}
	if optional {
		return nil
	}
	return echo.NewHTTPError(rej.status, rej.msg).SetInternal(err)
}

// RequireAuth rejects requests without a valid, unrevoked access token for an existing
// user. A ledger outage is a 500.
func (g *Guard) RequireAuth() echo.MiddlewareFunc {
	return echojwt.WithConfig(g.config(false))
}

// Optional attaches an Identity when the token checks out and lets every request
// through.
func (g *Guard) Optional() echo.MiddlewareFunc {
	return echojwt.WithConfig(g.config(true))
}

// RequireRole must run after RequireAuth.
func RequireRole(min domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !id.Role.AtLeast(min) {
				logging.FromContext(c.Request().Context()).Warn("role_denied",
					"status", http.StatusForbidden, "user_id", id.UserID, "role", id.Role, "required", min)
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
