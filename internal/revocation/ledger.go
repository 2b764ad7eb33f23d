// Package revocation records invalidated token identifiers until the tokens would have
// expired on their own.
package revocation

import (
	"context"
	"errors"
	"time"
)

// Sentinel is the value stored against a revoked jti.
const Sentinel = "revoked"

// ErrUnavailable wraps every backend failure. Callers treat it as fail-closed.
var ErrUnavailable = errors.New("revocation ledger unavailable")

type Ledger interface {
	// Revoke marks jti revoked for ttl. A non-positive ttl is a no-op: the token is
	// already dead.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Ping(ctx context.Context) error
}
