package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Skotchmaster/church_members/internal/events"
	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/metrics"
	"github.com/Skotchmaster/church_members/internal/models"
	"github.com/Skotchmaster/church_members/internal/password"
	"github.com/Skotchmaster/church_members/internal/repo"
	"github.com/Skotchmaster/church_members/internal/revocation"
	"github.com/Skotchmaster/church_members/internal/tokens"
)

const (
	msgWeakPassword   = "password must be at least 12 characters and contain upper and lower case letters, a digit and a symbol"
	msgBadCredentials = "invalid email or password"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// dummyHash keeps login timing similar for unknown emails.
var dummyHash, _ = password.Hash("Dummy-Password-123!")

type AuthService struct {
	Repo    *repo.GormRepo
	Tokens  *tokens.Issuer
	Ledger  revocation.Ledger
	Events  events.Publisher
	Metrics *metrics.Metrics
	Topic   string
}

type LoginResult struct {
	User    *models.User
	Access  *tokens.Token
	Refresh *tokens.Token
}

type RefreshResult struct {
	User   *models.User
	Access *tokens.Token
}

// LogoutInput describes the session being closed. AccessID and AccessExpiresAt come from
// the verified access token; RefreshToken is whatever the client still holds, possibly
// empty.
type LogoutInput struct {
	UserID          uint
	AccessID        string
	AccessExpiresAt time.Time
	SessionID       string
	RefreshToken    string
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=120"); err != nil {
		return wrapErr(ErrValidation, "invalid email address", err)
	}
	return nil
}

func (s *AuthService) Signup(ctx context.Context, email, pw string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	email = repo.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !password.IsStrong(pw) {
		return nil, newErr(ErrValidation, msgWeakPassword)
	}

	hash, err := password.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, newErr(ErrValidation, "password is too long")
		}
		return nil, wrapErr(ErrUnavailable, "cannot hash password", err)
	}

	user := &models.User{Email: email, PasswordHash: hash}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, newErr(ErrConflict, "email already registered")
		}
		return nil, wrapErr(ErrUnavailable, "cannot create user", err)
	}

	s.publish(ctx, events.New(events.UserRegistered, subject(user.ID), user.ID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	}))
	l.Info("signup_successful", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			password.Check(dummyHash, pw)
			s.Metrics.Login("failure")
			return nil, newErr(ErrUnauthenticated, msgBadCredentials)
		}
		return nil, wrapErr(ErrUnavailable, "cannot load user", err)
	}
	if !password.Check(user.PasswordHash, pw) {
		s.Metrics.Login("failure")
		return nil, newErr(ErrUnauthenticated, msgBadCredentials)
	}

	refresh, err := s.Tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, wrapErr(ErrUnavailable, "cannot issue token", err)
	}
	access, err := s.Tokens.IssueAccess(user.ID, refresh.ID)
	if err != nil {
		return nil, wrapErr(ErrUnavailable, "cannot issue token", err)
	}

	s.Metrics.Login("success")
	l.Info("login_successful", "user_id", user.ID, "session_id", refresh.ID)
	return &LoginResult{User: user, Access: access, Refresh: refresh}, nil
}

// Refresh mints a new access token bound to the same session. The refresh token itself
// is never rotated.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*RefreshResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if raw == "" {
		s.Metrics.TokenRejected(metrics.ReasonMissing)
		return nil, newErr(ErrUnauthenticated, "missing refresh token")
	}
	claims, err := s.Tokens.ParseRefresh(raw)
	if err != nil {
		reason := metrics.ReasonMalformed
		if errors.Is(err, tokens.ErrExpired) {
			reason = metrics.ReasonExpired
		}
		s.Metrics.TokenRejected(reason)
		return nil, wrapErr(ErrUnauthenticated, "invalid refresh token", err)
	}

	revoked, err := s.Ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.Metrics.TokenRejected(metrics.ReasonLedgerDown)
		return nil, wrapErr(ErrUnavailable, "cannot verify token", err)
	}
	if revoked {
		s.Metrics.TokenRejected(metrics.ReasonRevoked)
		return nil, newErr(ErrUnauthenticated, "refresh token revoked")
	}

	uid, _ := claims.UserID()
	user, err := s.Repo.FindUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.TokenRejected(metrics.ReasonUnknownUser)
			return nil, newErr(ErrUnauthenticated, "unknown user")
		}
		return nil, wrapErr(ErrUnavailable, "cannot load user", err)
	}

	access, err := s.Tokens.IssueAccess(user.ID, claims.ID)
	if err != nil {
		return nil, wrapErr(ErrUnavailable, "cannot issue token", err)
	}
	l.Info("refresh_successful", "user_id", user.ID, "session_id", claims.ID)
	return &RefreshResult{User: user, Access: access}, nil
}

// Logout revokes the access token and the refresh token of its session. The refresh
// entry lives as long as the refresh token: its remaining lifetime when the presented
// cookie belongs to the session, otherwise the full refresh TTL as an upper bound.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	now := s.Tokens.CurrentTime()

	if err := s.Ledger.Revoke(ctx, in.AccessID, in.AccessExpiresAt.Sub(now)); err != nil {
		return wrapErr(ErrUnavailable, "cannot revoke token", err)
	}

	var presented *tokens.Claims
	if in.RefreshToken != "" {
		if c, err := s.Tokens.ParseRefresh(in.RefreshToken); err == nil {
			if uid, _ := c.UserID(); uid == in.UserID {
				presented = c
			}
		}
	}

	if in.SessionID != "" {
		ttl := s.Tokens.RefreshTTL
		if presented != nil && presented.ID == in.SessionID {
			ttl = presented.Remaining(now)
		}
		if err := s.Ledger.Revoke(ctx, in.SessionID, ttl); err != nil {
			return wrapErr(ErrUnavailable, "cannot revoke token", err)
		}
	}
	if presented != nil && presented.ID != in.SessionID {
		if err := s.Ledger.Revoke(ctx, presented.ID, presented.Remaining(now)); err != nil {
			return wrapErr(ErrUnavailable, "cannot revoke token", err)
		}
	}

	s.publish(ctx, events.New(events.UserLoggedOut, subject(in.UserID), in.UserID, nil))
	l.Info("logout_successful", "user_id", in.UserID, "session_id", in.SessionID)
	return nil
}

func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	publish(ctx, s.Events, s.Topic, ev)
}

func subject(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
