package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/church_members/internal/config"
	"github.com/Skotchmaster/church_members/internal/db"
	"github.com/Skotchmaster/church_members/internal/events"
	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/revocation"
	"github.com/Skotchmaster/church_members/internal/search"
	"github.com/Skotchmaster/church_members/internal/service"
)

func testConfig() config.Config {
	return config.Config{
		AppEnv:            "development",
		DBDriver:          db.DriverSQLite,
		DatabaseURL:       ":memory:",
		JWTSecret:         []byte("app-test-secret-app-test-secret-12"),
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        24 * time.Hour,
		RevocationBackend: config.BackendDB,
		PurgeInterval:     time.Minute,
		LoginRateLimit:    5,
		LoginRateWindow:   time.Minute,
		BootstrapEmail:    "root@example.org",
		BootstrapPassword: "Abc123456!@#",
	}
}

func TestNew_DatabaseLedger(t *testing.T) {
	a, err := New(context.Background(), testConfig(), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.IsType(t, &revocation.GormLedger{}, a.Ledger)
	assert.IsType(t, events.Noop{}, a.Events)
	assert.IsType(t, search.Disabled{}, a.Index)

	ctx := context.Background()
	require.NoError(t, a.Migrate(ctx))

	res, err := a.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.BootstrapCreated, res)
	res, err = a.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.BootstrapExisting, res)

	rec := httptest.NewRecorder()
	a.Server().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_RedisLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RevocationBackend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	assert.IsType(t, &revocation.RedisLedger{}, a.Ledger)
}

func TestNew_UnreachableLedgerFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.RevocationBackend = config.BackendRedis
	cfg.Redis.Addr = addr

	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
	assert.ErrorIs(t, err, revocation.ErrUnavailable)
}

func TestNew_UnreachableSearchIsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Elastic.URL = "http://127.0.0.1:1"
	cfg.Elastic.Index = "members"

	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.False(t, a.Index.Enabled())
}
