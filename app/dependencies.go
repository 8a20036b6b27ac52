package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/tenant-notes/config"
	"github.com/upb/tenant-notes/handlers"
	"github.com/upb/tenant-notes/internal/observability"
	"github.com/upb/tenant-notes/middleware"
	"github.com/upb/tenant-notes/repositories"
	"github.com/upb/tenant-notes/repositories/memory"
	"github.com/upb/tenant-notes/repositories/postgres"
	"github.com/upb/tenant-notes/services/audit"
	"github.com/upb/tenant-notes/services/identity"
	"github.com/upb/tenant-notes/services/notes"
	"github.com/upb/tenant-notes/services/ratelimit"
	"github.com/upb/tenant-notes/services/tenants"
	"github.com/upb/tenant-notes/token"
	"go.uber.org/zap"
)

// auditStopTimeout bounds the audit drain on shutdown
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	DB      *postgres.DB  // nil with the memory driver
	Redis   *redis.Client // nil unless REDIS_URL is set

	// Store
	RepoFactory *postgres.RepositoryFactory
	MemStore    *memory.Store
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager
	Store       repositories.Pinger

	// Services
	Tokens  *token.Service
	Limiter ratelimit.Limiter
	Audit   *audit.AuditService
	Login   *identity.LoginService
	Notes   *notes.Service
	Tenants *tenants.Service

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	HealthHandler  *handlers.HealthHandler
	AuthHandler    *handlers.AuthHandler
	NotesHandler   *handlers.NotesHandler
	TenantHandler  *handlers.TenantHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := deps.initLimiter(ctx, cfg); err != nil {
		deps.closeStore()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.Seed.DemoData {
		if err := SeedDemoData(ctx, deps.Repos, deps.Login, logger); err != nil {
			_ = deps.Close(ctx)
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("shared_rate_limit", deps.Redis != nil))
	return deps, nil
}

// initStore selects the persistence backend
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		d.Logger.Warn("using in-memory store, data is lost on restart")
		d.MemStore = memory.NewStore(d.Logger)
		d.Repos = d.MemStore.NewRepositories()
		d.TxManager = d.MemStore.GetTransactionManager()
		d.Store = d.MemStore
		return nil

	case config.StoreDriverPostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()

		if cfg.Database.InitSchema {
			if err := d.DB.InitSchema(ctx); err != nil {
				_ = factory.Close()
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
		}

		d.Repos = factory.NewRepositories()
		d.TxManager = factory.GetTransactionManager()
		d.Store = d.DB
		return nil

	default:
		return &config.ConfigurationError{Key: "STORE_DRIVER", Reason: fmt.Sprintf("unknown driver %q", cfg.Store.Driver)}
	}
}

// initLimiter uses Redis when configured so that login throttling is shared
// by all instances; otherwise counters are per process.
func (d *Dependencies) initLimiter(ctx context.Context, cfg *config.Config) error {
	window := cfg.RateLimit.LoginWindow
	if cfg.RateLimit.RedisURL == "" {
		d.Limiter = ratelimit.NewInMemory(window)
		return nil
	}

	opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
	if err != nil {
		return &config.ConfigurationError{Key: "REDIS_URL", Reason: err.Error()}
	}
	d.Redis = redis.NewClient(opts)
	limiter := ratelimit.NewRedis(d.Redis, window, d.Logger)
	if err := limiter.Ping(ctx); err != nil {
		// The limiter falls back per request; an unreachable Redis is not fatal.
		d.Logger.Warn("redis unreachable at startup", zap.Error(err))
	}
	d.Limiter = limiter
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	tokens, err := token.NewService(token.Config{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return err
	}
	d.Tokens = tokens

	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.DefaultConfig(), d.Metrics)
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.Login, err = identity.NewLoginService(d.Repos, d.Tokens, d.Limiter, identity.Config{
		MaxAttempts: cfg.RateLimit.LoginAttempts,
		BcryptCost:  cfg.Auth.BcryptCost,
	}, d.Metrics, d.Logger)
	if err != nil {
		return err
	}

	d.Notes = notes.NewService(d.Repos, d.TxManager, notes.Config{
		FreePlanLimit: cfg.Quota.FreePlanNoteLimit,
		TxTimeout:     cfg.Quota.TxTimeout,
	}, d.Audit, d.Metrics, d.Logger)

	d.Tenants = tenants.NewService(d.Repos, tenants.Config{
		InvitePassword: cfg.Auth.InvitePassword,
		BcryptCost:     cfg.Auth.BcryptCost,
	}, d.Audit, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Tokens, d.Metrics, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.Store, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Login, d.Logger)
	d.NotesHandler = handlers.NewNotesHandler(d.Notes, d.Logger)
	d.TenantHandler = handlers.NewTenantHandler(d.Tenants, d.Logger)
}

func (d *Dependencies) closeStore() {
	if d.RepoFactory != nil {
		_ = d.RepoFactory.Close()
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain pending audit events before the store goes away
	if d.Audit != nil {
		if err := d.Audit.Stop(auditStopTimeout); err != nil && !errors.Is(err, audit.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
