package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var (
	ErrMalformed = errors.New("malformed token")
	ErrExpired   = errors.New("token expired")
)

// Claims is the payload of both token kinds. SessionID is set on access tokens only and
// names the refresh token the access token was minted alongside.
type Claims struct {
	Kind      Kind   `json:"typ"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrMalformed, c.Subject)
	}
	return uint(id), nil
}

// Remaining is the lifetime left at now, never negative.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type Token struct {
	Raw       string
	ID        string
	ExpiresAt time.Time
}

type Issuer struct {
	Secret        []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

func NewIssuer(secret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	if len(refreshSecret) == 0 {
		refreshSecret = secret
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Issuer{
		Secret:        secret,
		RefreshSecret: refreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// CurrentTime is the issuer clock, used for computing remaining lifetimes.
func (i *Issuer) CurrentTime() time.Time { return i.now() }

func (i *Issuer) refreshSecret() []byte {
	if len(i.RefreshSecret) == 0 {
		return i.Secret
	}
	return i.RefreshSecret
}

func (i *Issuer) IssueAccess(userID uint, sessionID string) (*Token, error) {
	return i.sign(KindAccess, userID, sessionID, i.AccessTTL, i.Secret)
}

func (i *Issuer) IssueRefresh(userID uint) (*Token, error) {
	return i.sign(KindRefresh, userID, "", i.RefreshTTL, i.refreshSecret())
}

func (i *Issuer) sign(kind Kind, userID uint, sessionID string, ttl time.Duration, secret []byte) (*Token, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	now := i.now()
	claims := Claims{
		Kind:      kind,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return &Token{Raw: raw, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (i *Issuer) ParseAccess(raw string) (*Claims, error) {
	return i.parse(raw, KindAccess, i.Secret)
}

func (i *Issuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, KindRefresh, i.refreshSecret())
}

func (i *Issuer) parse(raw string, kind Kind, secret []byte) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !tkn.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: not an %s token", ErrMalformed, kind)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrMalformed)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return &claims, nil
}
