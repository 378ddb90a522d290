// Package runtime wires configuration, storage and the HTTP server into a
// runnable process.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/nexcart/storefront/internal/app"
	"github.com/nexcart/storefront/internal/app/httpapi"
	"github.com/nexcart/storefront/internal/app/metrics"
	catalogsvc "github.com/nexcart/storefront/internal/app/services/catalog"
	"github.com/nexcart/storefront/internal/app/storage/postgres"
	"github.com/nexcart/storefront/internal/auth"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/middleware"
	"github.com/nexcart/storefront/internal/platform/migrations"
	"github.com/nexcart/storefront/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg    *config.Config
	log    *logger.Logger
	server *http.Server
	db     *sqlx.DB
	rdb    *redis.Client
}

// NewApplication constructs a fully wired application from configuration.
// Without a database DSN the in-memory stores are used, which is intended
// for local development only.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	stores := app.Stores{}
	var db *sqlx.DB
	if cfg.Database.DSN != "" {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := migrations.Up(db.DB); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		store := postgres.New(db)
		stores = app.Stores{Accounts: store, Carts: store, Checkout: store}
		log.Info("using postgres storage")
	} else {
		log.Warn("no database configured, using in-memory storage")
	}

	opts := app.Options{}
	if cfg.Catalog.FeedURL != "" {
		client := &http.Client{Timeout: time.Duration(cfg.Catalog.TimeoutSec) * time.Second}
		fetcher, err := catalogsvc.NewHTTPFetcher(client, cfg.Catalog.FeedURL, cfg.Catalog.FeedToken, log)
		if err != nil {
			return nil, fmt.Errorf("catalog fetcher: %w", err)
		}
		opts.CatalogFetcher = fetcher
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts.CatalogCache = catalogsvc.NewRedisCache(rdb, time.Duration(cfg.Catalog.CacheTTL)*time.Second, log)
		log.Info("catalog cache enabled")
	}

	application := app.New(stores, opts, log)
	tokens := auth.NewManager(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLMins)*time.Minute)

	handler := httpapi.NewHandler(application, tokens, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log)
	chained := metrics.InstrumentHandler(
		middleware.CORS(cfg.Server.AllowedOriginList())(
			limiter.Handler(mux)))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      chained,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	return &Application{
		cfg:    cfg,
		log:    log,
		server: server,
		db:     db,
		rdb:    rdb,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.Infof("HTTP server listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and closes connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
