package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/handcrafthq/marketplace/internal/auth"
	"github.com/handcrafthq/marketplace/internal/config"
	"github.com/handcrafthq/marketplace/internal/event"
	handler "github.com/handcrafthq/marketplace/internal/handler/http"
	"github.com/handcrafthq/marketplace/internal/repository/postgres"
	"github.com/handcrafthq/marketplace/internal/service"
	"github.com/handcrafthq/marketplace/internal/storage"
	"github.com/handcrafthq/marketplace/internal/storage/local"
	"github.com/handcrafthq/marketplace/internal/storage/memory"
	"github.com/handcrafthq/marketplace/migrations"
	"github.com/handcrafthq/marketplace/pkg/database"
	"github.com/handcrafthq/marketplace/pkg/health"
	pkgkafka "github.com/handcrafthq/marketplace/pkg/kafka"
	"github.com/handcrafthq/marketplace/pkg/middleware"
	"github.com/handcrafthq/marketplace/pkg/tracing"
)

const serviceName = "marketplace"

// Version is set at build time via -ldflags.
var Version = "0.1.0"

// App wires together all dependencies and runs the marketplace service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	cache           *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracingShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(serviceName, Version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	database.RegisterPoolMetrics(pool, serviceName)
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	// The cache and the event stream are optional: the service degrades to
	// uncached reads and unpublished events when they are unavailable.
	var cache *redis.Client
	if cfg.CacheEnabled {
		cache, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, category counts will not be cached",
				slog.String("error", err.Error()),
			)
			cache = nil
		} else {
			logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		}
	}

	var producer *pkgkafka.Producer
	var eventProducer *event.Producer
	if cfg.EventsEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer = event.NewProducer(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	store, err := newStorage(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	productRepo := postgres.NewProductRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)

	catalogService := service.NewCatalogService(productRepo, userRepo, store, eventProducer, cache, logger)
	ratingService := service.NewRatingService(productRepo, userRepo, eventProducer, logger)
	userService := service.NewUserService(userRepo, jwtManager, logger)

	healthHandler := health.NewHandler(serviceName)
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if cache != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return cache.Ping(ctx).Err()
		})
	}
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	mediaDir := ""
	if cfg.StorageBackend == "local" {
		mediaDir = cfg.MediaDir
	}

	router := handler.NewRouter(handler.RouterConfig{
		Products: handler.NewProductHandler(catalogService, logger),
		Ratings:  handler.NewRatingHandler(ratingService, logger),
		Auth:     handler.NewAuthHandler(userService, logger),
		Health:   healthHandler,
		TokenValidator: func(token string) (*middleware.Claims, error) {
			claims, err := jwtManager.ValidateAccessToken(token)
			if err != nil {
				return nil, err
			}
			return &middleware.Claims{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			}, nil
		},
		MediaDir: mediaDir,
		CORS:     corsCfg,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		cache:           cache,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "memory":
		return memory.New(cfg.MediaBaseURL), nil
	default:
		return local.New(cfg.MediaDir, cfg.MediaBaseURL)
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
