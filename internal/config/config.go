package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendRedis = "redis"
	BackendDB    = "db"

	MinSecretLength = 32
)

var knownWeakSecrets = []string{
	"changeme",
	"secret",
	"password",
	"test",
	"dev",
	"development",
	"your-secret-key",
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Elastic struct {
	URL      string
	User     string
	Password string
	Index    string
}

type Config struct {
	AppEnv   string
	LogLevel string

	ServerPort int

	DBDriver    string
	DatabaseURL string

	JWTSecret        []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	RevocationBackend string
	PurgeInterval     time.Duration
	Redis             Redis

	BootstrapEmail    string
	BootstrapPassword string

	LoginRateLimit  int
	LoginRateWindow time.Duration

	CORSOrigins    []string
	CookieSecure   bool
	TrustedProxies []string

	KafkaBrokers      []string
	KafkaTopicUsers   string
	KafkaTopicMembers string

	Elastic Elastic

	SentryDSN string
}

// Load reads .env when present, then the process environment.
func Load() Config {
	_ = godotenv.Load(".env")
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		AppEnv:   EnvDefault("APP_ENV", "production"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DBDriver:    strings.ToLower(EnvDefault("DB_DRIVER", "sqlite")),
		DatabaseURL: EnvDefault("DATABASE_URL", "instance/church_members.db"),

		JWTSecret:        []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:        EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:       EnvDurationDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		RevocationBackend: strings.ToLower(EnvDefault("REVOCATION_BACKEND", BackendRedis)),
		PurgeInterval:     EnvDurationDefault("REVOCATION_PURGE_INTERVAL", 10*time.Minute),
		Redis: Redis{
			Addr:     EnvDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       EnvIntDefault("REDIS_DB", 0),
		},

		BootstrapEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),

		LoginRateLimit:  EnvIntDefault("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: EnvDurationDefault("LOGIN_RATE_WINDOW", time.Minute),

		CORSOrigins:    CSV(EnvDefault("CORS_ORIGINS", "http://localhost:3000")),
		CookieSecure:   EnvBoolDefault("COOKIE_SECURE", true),
		TrustedProxies: CSV(os.Getenv("TRUSTED_PROXIES")),

		KafkaBrokers:      CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicUsers:   EnvDefault("KAFKA_TOPIC_USERS", "church.users"),
		KafkaTopicMembers: EnvDefault("KAFKA_TOPIC_MEMBERS", "church.members"),

		Elastic: Elastic{
			URL:      os.Getenv("ES_URL"),
			User:     os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    EnvDefault("ES_INDEX", "members"),
		},

		SentryDSN: os.Getenv("SENTRY_DSN"),
	}
}

func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "development", "dev":
		return true
	}
	return false
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// RefreshSecret falls back to the access secret.
func (c Config) RefreshSecret() []byte {
	if len(c.JWTRefreshSecret) == 0 {
		return c.JWTSecret
	}
	return c.JWTRefreshSecret
}

// TrustedProxyNets parses TRUSTED_PROXIES, the CIDRs of reverse proxies allowed to set
// X-Forwarded-For.
func (c Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func (c Config) Validate() error {
	var errs []error
	dev := c.IsDevelopment()

	if err := ValidateSecret("JWT_SECRET", string(c.JWTSecret), dev); err != nil {
		errs = append(errs, err)
	}
	if len(c.JWTRefreshSecret) > 0 {
		if err := ValidateSecret("JWT_REFRESH_SECRET", string(c.JWTRefreshSecret), dev); err != nil {
			errs = append(errs, err)
		}
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.RefreshTTL < c.AccessTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL"))
	}
	switch c.RevocationBackend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis revocation backend"))
		}
	case BackendDB:
	default:
		errs = append(errs, fmt.Errorf("unsupported REVOCATION_BACKEND %q", c.RevocationBackend))
	}
	if c.LoginRateLimit <= 0 || c.LoginRateWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive"))
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		errs = append(errs, err)
	}
	if (c.BootstrapEmail == "") != (c.BootstrapPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// ValidateSecret rejects empty secrets everywhere. Outside development it also rejects
// well-known defaults and anything shorter than MinSecretLength.
func ValidateSecret(name, secret string, isDev bool) error {
	if secret == "" {
		return fmt.Errorf("%s is required", name)
	}
	if isDev {
		return nil
	}
	for _, weak := range knownWeakSecrets {
		if strings.EqualFold(secret, weak) {
			return fmt.Errorf("%s: default/weak secret not allowed outside development", name)
		}
	}
	if len(secret) < MinSecretLength {
		return fmt.Errorf("%s must be at least %d characters (got %d)", name, MinSecretLength, len(secret))
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
