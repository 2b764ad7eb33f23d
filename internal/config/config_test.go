package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strongSecret)

	cfg := FromEnv()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "instance/church_members.db", cfg.DatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, BackendRedis, cfg.RevocationBackend)
	assert.Equal(t, 5, cfg.LoginRateLimit)
	assert.Equal(t, time.Minute, cfg.LoginRateWindow)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.True(t, cfg.CookieSecure)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, []byte(strongSecret), cfg.RefreshSecret())
	assert.Equal(t, ":8080", cfg.Addr())
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", strongSecret)
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("r", 40))
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REVOCATION_BACKEND", "DB")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, BackendDB, cfg.RevocationBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, []byte(strings.Repeat("r", 40)), cfg.RefreshSecret())
	require.NoError(t, cfg.Validate())
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		dev     bool
		wantErr bool
	}{
		{"empty in prod", "", false, true},
		{"empty in dev", "", true, true},
		{"weak in prod", "changeme", false, true},
		{"weak in dev", "changeme", true, false},
		{"short in prod", "short-but-not-weak", false, true},
		{"short in dev", "short-but-not-weak", true, false},
		{"strong", strongSecret, false, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSecret("JWT_SECRET", tt.secret, tt.dev)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Config{
		AppEnv:            "production",
		JWTSecret:         []byte("secret"),
		AccessTTL:         time.Hour,
		RefreshTTL:        time.Minute,
		RevocationBackend: "memcached",
		LoginRateLimit:    5,
		LoginRateWindow:   time.Minute,
		BootstrapEmail:    "root@example.org",
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "REFRESH_TOKEN_TTL")
	assert.Contains(t, msg, "REVOCATION_BACKEND")
	assert.Contains(t, msg, "BOOTSTRAP_ADMIN_PASSWORD")
}

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a", "b"}, CSV(" a ,, b"))
}

func TestTrustedProxyNets(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10/32")
	cfg := FromEnv()

	nets, err := cfg.TrustedProxyNets()
	require.NoError(t, err)
	require.Len(t, nets, 2)
	assert.Equal(t, "10.0.0.0/8", nets[0].String())

	cfg.TrustedProxies = []string{"10.0.0.1"}
	_, err = cfg.TrustedProxyNets()
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
}
