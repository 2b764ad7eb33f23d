// Package ratelimit throttles credential endpoints per client IP.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/church_members/internal/logging"
)

type Config struct {
	// Requests allowed in any Window-long span.
	Requests int
	Window   time.Duration
}

// retryAfter is the window in whole seconds, rounded up.
func (c Config) retryAfter() int {
	return int(math.Ceil(c.Window.Seconds()))
}

// WindowStore is a sliding-window middleware.RateLimiterStore: a key is allowed while
// fewer than Requests of its attempts fall within the last Window.
type WindowStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	lastGC   time.Time
}

func NewWindowStore(cfg Config) *WindowStore {
	return &WindowStore{
		attempts: make(map[string][]time.Time),
		limit:    cfg.Requests,
		window:   cfg.Window,
		now:      time.Now,
	}
}

var _ middleware.RateLimiterStore = (*WindowStore)(nil)

// Allow records the attempt when it is allowed. Denied attempts are not recorded, so a
// client hammering the endpoint gets back in once its oldest allowed attempt ages out.
func (s *WindowStore) Allow(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	recent := s.recent(s.attempts[key], now)
	if len(recent) >= s.limit {
		s.attempts[key] = recent
		return false, nil
	}
	s.attempts[key] = append(recent, now)

	if now.Sub(s.lastGC) >= s.window {
		s.cleanup(now)
		s.lastGC = now
	}
	return true, nil
}

func (s *WindowStore) recent(ts []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= s.window {
		i++
	}
	return ts[i:]
}

// cleanup drops keys with no attempts inside the window. Caller holds mu.
func (s *WindowStore) cleanup(now time.Time) {
	for key, ts := range s.attempts {
		if len(s.recent(ts, now)) == 0 {
			delete(s.attempts, key)
		}
	}
}

// PerIP allows cfg.Requests in any cfg.Window for each client IP. A request over the
// limit gets 429 with Retry-After. The client IP comes from c.RealIP, so the echo
// instance's IPExtractor decides which proxies are trusted.
func PerIP(cfg Config) echo.MiddlewareFunc {
	return perIP(cfg, NewWindowStore(cfg))
}

func perIP(cfg Config, store middleware.RateLimiterStore) echo.MiddlewareFunc {
	retry := strconv.Itoa(cfg.retryAfter())

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logging.FromContext(c.Request().Context()).Warn("rate_limited",
				"status", http.StatusTooManyRequests, "client", identifier, "path", c.Path())
			c.Response().Header().Set("Retry-After", retry)
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
		},
	})
}
