package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newStore(cfg Config) (*WindowStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewWindowStore(cfg)
	s.now = clock.now
	return s, clock
}

func newServer(cfg Config, store *WindowStore) *echo.Echo {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, perIP(cfg, store))
	return e
}

func post(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPerIP_SixthRequestInWindowIsRejected(t *testing.T) {
	cfg := Config{Requests: 5, Window: time.Minute}
	e := newServer(cfg, NewWindowStore(cfg))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code, "request %d", i+1)
	}

	rec := post(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.2").Code)
}

func TestPerIP_SixthRequestLaterInWindowIsStillRejected(t *testing.T) {
	cfg := Config{Requests: 5, Window: time.Minute}
	store, clock := newStore(cfg)
	e := newServer(cfg, store)

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
	}

	clock.advance(30 * time.Second)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "10.0.0.1").Code)

	clock.advance(29 * time.Second)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "10.0.0.1").Code)

	clock.advance(time.Second)
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
}

func TestPerIP_IgnoresSpoofedForwardedFor(t *testing.T) {
	cfg := Config{Requests: 5, Window: time.Minute}
	e := newServer(cfg, NewWindowStore(cfg))

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set(echo.HeaderXForwardedFor, "203.0.113."+strconv.Itoa(i+1))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed)
}

func TestWindowStore_SlidesPerAttempt(t *testing.T) {
	store, clock := newStore(Config{Requests: 2, Window: 10 * time.Second})

	ok, _ := store.Allow("k")
	assert.True(t, ok)
	clock.advance(4 * time.Second)
	ok, _ = store.Allow("k")
	assert.True(t, ok)

	clock.advance(5 * time.Second)
	ok, _ = store.Allow("k")
	assert.False(t, ok)

	// first attempt ages out at t=10s, second one is still inside
	clock.advance(time.Second)
	ok, _ = store.Allow("k")
	assert.True(t, ok)
	ok, _ = store.Allow("k")
	assert.False(t, ok)
}

func TestWindowStore_CleanupDropsIdleKeys(t *testing.T) {
	store, clock := newStore(Config{Requests: 1, Window: time.Second})

	_, _ = store.Allow("a")
	clock.advance(2 * time.Second)
	_, _ = store.Allow("b")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.attempts, "a")
	assert.Contains(t, store.attempts, "b")
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 60, Config{Requests: 5, Window: time.Minute}.retryAfter())
	assert.Equal(t, 1, Config{Requests: 10, Window: 500 * time.Millisecond}.retryAfter())
}
