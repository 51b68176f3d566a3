package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/subnido/subgate/config"
	"github.com/subnido/subgate/identity"
	"github.com/subnido/subgate/middleware"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/repositories/postgres"
	"github.com/subnido/subgate/services/account"
	"github.com/subnido/subgate/services/audit"
	"github.com/subnido/subgate/services/notify"
	"github.com/subnido/subgate/services/ratelimit"
	"github.com/subnido/subgate/services/subdomain"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Accounts      repositories.AccountRepository
	AuditEntries  repositories.AuditRepository
	Notifications repositories.NotificationRepository
	Subdomains    repositories.SubdomainRepository
	TxManager     repositories.TransactionManager

	// Domain services
	AccountService   *account.Service
	SubdomainService *subdomain.Service
	NotifyService    *notify.Service
	AuditService     *audit.Service
	RateLimiter      *ratelimit.Service

	// Identity provider (hosted OAuth2 + JWKS validation)
	Identity *identity.HostedProvider

	// Dynamic operational settings (maintenance flag, admin list, rate budget)
	Settings *config.RuntimeSettings

	// Request-governance pipeline, mounted ahead of the router
	Pipeline *middleware.Pipeline

	// rate-store lifecycle handles
	redisStore  *ratelimit.RedisStore
	sweepCancel context.CancelFunc
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initIdentity(cfg)

	if err := deps.initServices(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initPipeline(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Accounts = repos.Accounts
	d.AuditEntries = repos.AuditEntries
	d.Notifications = repos.Notifications
	d.Subdomains = repos.Subdomains
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initIdentity wires the hosted identity provider from configuration
func (d *Dependencies) initIdentity(cfg *config.Config) {
	validator := identity.NewValidator(identity.ValidatorConfig{
		Issuer:      cfg.Identity.Issuer,
		ClientID:    cfg.Identity.ClientID,
		CacheTTL:    cfg.Identity.JWKSCacheTTL,
		HTTPTimeout: cfg.Identity.HTTPTimeout,
	})
	exchanger := identity.NewExchanger(identity.ExchangerConfig{
		Domain:       cfg.Identity.Domain,
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
		RedirectURI:  cfg.Identity.RedirectURI,
		HTTPTimeout:  cfg.Identity.HTTPTimeout,
	})

	d.Identity = identity.NewHostedProvider(validator, exchanger,
		cfg.Identity.Domain, cfg.Identity.ClientID, cfg.Identity.RedirectURI)
	d.Logger.Info("identity provider initialized",
		zap.String("issuer", cfg.Identity.Issuer))
}

// initServices wires the domain services, the async audit recorder, and
// the rate-limit counter store (Redis when configured, in-memory otherwise).
func (d *Dependencies) initServices(ctx context.Context, cfg *config.Config) error {
	d.AuditService = audit.NewService(d.AuditEntries, d.Logger, audit.DefaultConfig())
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	var store ratelimit.Store
	if cfg.Redis.Addr != "" {
		redisStore, err := ratelimit.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect rate-limit store: %w", err)
		}
		d.redisStore = redisStore
		store = redisStore
		d.Logger.Info("using redis rate-limit store", zap.String("addr", cfg.Redis.Addr))
	} else {
		memStore := ratelimit.NewMemoryStore(d.Logger)
		sweepCtx, cancel := context.WithCancel(context.Background())
		d.sweepCancel = cancel
		memStore.StartSweeper(sweepCtx, time.Minute)
		store = memStore
		d.Logger.Info("using in-memory rate-limit store")
	}
	d.RateLimiter = ratelimit.NewService(store, d.Logger)

	d.AccountService = account.NewService(d.Accounts, d.TxManager, d.AuditService, d.Logger)
	d.NotifyService = notify.NewService(d.Notifications, d.Logger)
	d.SubdomainService = subdomain.NewService(d.Subdomains, d.TxManager, d.AuditService, d.Logger)

	d.Settings = config.NewRuntimeSettings(30 * time.Second)

	d.Logger.Info("services initialized")
	return nil
}

// initPipeline assembles the governance pipeline over the wired services
func (d *Dependencies) initPipeline(cfg *config.Config) {
	d.Pipeline = middleware.NewPipeline(
		d.RateLimiter,
		d.Identity,
		d.AccountService,
		d.AuditService,
		d.NotifyService,
		d.Settings,
		d.Logger,
		middleware.Options{
			UpstreamTimeout: cfg.Identity.HTTPTimeout,
			SecureCookies:   cfg.IsProduction(),
		},
	)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain the audit queue before the database goes away
	if d.AuditService != nil {
		if err := d.AuditService.Stop(5 * time.Second); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.sweepCancel != nil {
		d.sweepCancel()
	}
	if d.redisStore != nil {
		if err := d.redisStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close rate-limit store: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
