// Package app builds every long-lived dependency from a Config and tears them down again.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/church_members/internal/config"
	"github.com/Skotchmaster/church_members/internal/db"
	"github.com/Skotchmaster/church_members/internal/events"
	"github.com/Skotchmaster/church_members/internal/httpserver"
	"github.com/Skotchmaster/church_members/internal/metrics"
	"github.com/Skotchmaster/church_members/internal/middleware/auth"
	"github.com/Skotchmaster/church_members/internal/middleware/ratelimit"
	"github.com/Skotchmaster/church_members/internal/repo"
	"github.com/Skotchmaster/church_members/internal/revocation"
	"github.com/Skotchmaster/church_members/internal/search"
	"github.com/Skotchmaster/church_members/internal/service"
	"github.com/Skotchmaster/church_members/internal/tokens"
)

const initTimeout = 10 * time.Second

type App struct {
	Config config.Config
	Logger *slog.Logger

	DB      *gorm.DB
	Repo    *repo.GormRepo
	Ledger  revocation.Ledger
	Events  events.Publisher
	Index   search.Index
	Metrics *metrics.Metrics
	Tokens  *tokens.Issuer

	Auth    *service.AuthService
	Users   *service.UserService
	Members *service.MemberService
	Guard   *auth.Guard

	redis *redis.Client
}

// New connects to the database and the revocation ledger and fails if either is
// unreachable. Kafka and Elasticsearch are optional: without configuration they are
// replaced by no-op implementations, and an unreachable Elasticsearch only disables
// indexed search.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db init: %w", err)
	}
	a.DB = gdb
	a.Repo = repo.New(gdb)

	if err := a.openLedger(initCtx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Events = events.NewPublisher(cfg.KafkaBrokers)
	a.Index = a.openIndex(initCtx)

	a.Tokens = tokens.NewIssuer(cfg.JWTSecret, cfg.RefreshSecret(), cfg.AccessTTL, cfg.RefreshTTL)
	a.Auth = &service.AuthService{
		Repo:    a.Repo,
		Tokens:  a.Tokens,
		Ledger:  a.Ledger,
		Events:  a.Events,
		Metrics: a.Metrics,
		Topic:   cfg.KafkaTopicUsers,
	}
	a.Users = &service.UserService{Repo: a.Repo, Events: a.Events, Topic: cfg.KafkaTopicUsers}
	a.Members = &service.MemberService{
		Repo:   a.Repo,
		Index:  a.Index,
		Events: a.Events,
		Topic:  cfg.KafkaTopicMembers,
	}
	a.Guard = &auth.Guard{Tokens: a.Tokens, Ledger: a.Ledger, Users: a.Repo, Metrics: a.Metrics}
	return a, nil
}

func (a *App) openLedger(ctx context.Context) error {
	switch a.Config.RevocationBackend {
	case config.BackendDB:
		a.Ledger = revocation.NewGormLedger(a.DB)
	default:
		a.redis = revocation.NewRedisClient(revocation.RedisOptions{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		a.Ledger = revocation.NewRedisLedger(a.redis)
	}
	if err := a.Ledger.Ping(ctx); err != nil {
		return fmt.Errorf("revocation ledger (%s): %w", a.Config.RevocationBackend, err)
	}
	return nil
}

func (a *App) openIndex(ctx context.Context) search.Index {
	cfg := a.Config.Elastic
	if cfg.URL == "" {
		return search.Disabled{}
	}
	es, err := search.NewElastic(search.Config{
		URL:      cfg.URL,
		User:     cfg.User,
		Password: cfg.Password,
		Index:    cfg.Index,
	})
	if err == nil {
		err = es.EnsureIndex(ctx)
	}
	if err != nil {
		a.Logger.Warn("search_index_disabled", "url", cfg.URL, "error", err)
		return search.Disabled{}
	}
	return es
}

// Migrate creates or updates every table.
func (a *App) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, a.DB)
}

// Bootstrap makes sure a SUPER_ADMIN exists, using the configured credentials.
func (a *App) Bootstrap(ctx context.Context) (service.BootstrapResult, error) {
	return a.Users.EnsureSuperAdmin(ctx, a.Config.BootstrapEmail, a.Config.BootstrapPassword)
}

// StartPurge removes expired revocation rows in the background until ctx is done. It is
// a no-op for the Redis ledger, which expires keys itself.
func (a *App) StartPurge(ctx context.Context) {
	gl, ok := a.Ledger.(*revocation.GormLedger)
	if !ok || a.Config.PurgeInterval <= 0 {
		return
	}
	go gl.RunPurge(ctx, a.Config.PurgeInterval)
}

func (a *App) Server() *echo.Echo {
	// already checked by Config.Validate
	proxies, _ := a.Config.TrustedProxyNets()
	return httpserver.New(&httpserver.Deps{
		Auth: &httpserver.AuthHTTP{
			Svc:     a.Auth,
			Cookies: httpserver.CookieConfig{Secure: a.Config.CookieSecure},
		},
		Admin:   &httpserver.AdminHTTP{Users: a.Users},
		Members: &httpserver.MembersHTTP{Svc: a.Members},
		Guard:   a.Guard,
		Metrics: a.Metrics,
		Limit: ratelimit.Config{
			Requests: a.Config.LoginRateLimit,
			Window:   a.Config.LoginRateWindow,
		},
		Ready: []httpserver.Check{
			{Name: "database", Ping: func(ctx context.Context) error { return db.Ping(ctx, a.DB) }},
			{Name: "revocation", Ping: a.Ledger.Ping},
		},
		Logger:         a.Logger,
		CORSOrigins:    a.Config.CORSOrigins,
		TrustedProxies: proxies,
	})
}

// Close releases the publisher, the redis pool and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			errs = append(errs, fmt.Errorf("db: %w", err))
		}
	}
	return errors.Join(errs...)
}
