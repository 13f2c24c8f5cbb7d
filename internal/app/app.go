package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/MichaelKMarwa/recupio/internal/auth"
	"github.com/MichaelKMarwa/recupio/internal/config"
	"github.com/MichaelKMarwa/recupio/internal/event"
	handler "github.com/MichaelKMarwa/recupio/internal/handler/http"
	"github.com/MichaelKMarwa/recupio/internal/provider"
	"github.com/MichaelKMarwa/recupio/internal/repository/postgres"
	"github.com/MichaelKMarwa/recupio/internal/service"
	"github.com/MichaelKMarwa/recupio/internal/storage"
	"github.com/MichaelKMarwa/recupio/migrations"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	"github.com/MichaelKMarwa/recupio/pkg/health"
	pkgkafka "github.com/MichaelKMarwa/recupio/pkg/kafka"
	"github.com/MichaelKMarwa/recupio/pkg/middleware"
	"github.com/MichaelKMarwa/recupio/pkg/tracing"
)

const serviceName = "recupio-api"

// App wires together all dependencies and runs the recupio API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	stopBackground context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Initialize OpenTelemetry tracing.
	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	pgCfg.MaxConns = cfg.PostgresMaxConns

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(reg, pool, serviceName); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	// Run database migrations.
	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	// Configure slow query logging.
	if cfg.SlowQuery > 0 {
		database.SetSlowQueryLogging(cfg.SlowQuery, logger)
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// Active-token registry.
	registry, err := a.newRegistry(ctx, healthHandler)
	if err != nil {
		return err
	}
	if err := reg.Register(registrySizeGauge(registry, logger)); err != nil {
		return fmt.Errorf("register registry gauge: %w", err)
	}

	// Domain events. A nil publisher drops them.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(
			pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers),
			pkgkafka.NewProducerMetrics(reg),
			logger,
		)
		publisher = a.producer
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("kafka disabled, domain events are dropped")
	}
	producer := event.NewProducer(publisher, logger)

	// Object storage for receipts and invoices.
	receipts, err := newStore(ctx, cfg, cfg.ReceiptBucket, logger)
	if err != nil {
		return fmt.Errorf("init receipt storage: %w", err)
	}
	invoices, err := newStore(ctx, cfg, cfg.InvoiceBucket, logger)
	if err != nil {
		return fmt.Errorf("init invoice storage: %w", err)
	}
	healthHandler.RegisterOptional("receipt_storage", receipts.Ping)
	healthHandler.RegisterOptional("invoice_storage", invoices.Ping)

	// Payment provider behind a circuit breaker.
	breakerCfg := provider.DefaultBreakerConfig("payment-provider")
	breakerCfg.Timeout = cfg.ProviderBreakerTimeout
	breakerCfg.MinRequests = cfg.ProviderBreakerFailures
	payments, err := provider.NewBreakerProvider(provider.NewMockProvider(cfg.PaymentMockLimit), breakerCfg, reg, logger)
	if err != nil {
		return fmt.Errorf("init payment provider: %w", err)
	}

	// Build the dependency graph.
	userRepo := postgres.NewUserRepository(pool)
	guestRepo := postgres.NewGuestSessionRepository(pool)
	dropOffRepo := postgres.NewDropOffRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	methodRepo := postgres.NewPaymentMethodRepository(pool)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	guestService := service.NewGuestService(guestRepo, cfg.GuestSessionTTL, logger)
	identityService := service.NewIdentityService(tokens, registry, userRepo, guestService, logger)
	authService := service.NewAuthService(userRepo, tokens, registry, producer, cfg.BcryptCost, logger)
	passwordService := service.NewPasswordService(
		userRepo, postgres.NewPasswordResetRepository(pool), producer, cfg.PasswordResetTTL, cfg.BcryptCost, logger,
	)
	paymentService := service.NewPaymentService(service.PaymentRepos{
		Payments:      postgres.NewPaymentRepository(pool),
		Methods:       methodRepo,
		Subscriptions: subscriptionRepo,
		Invoices:      postgres.NewInvoiceRepository(pool),
		Users:         userRepo,
	}, payments, invoices, producer, logger)

	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(authService, guestService, passwordService, logger),
		Facility: handler.NewFacilityHandler(service.NewFacilityService(postgres.NewFacilityRepository(pool), logger), logger),
		Catalog: handler.NewCatalogHandler(
			service.NewItemService(postgres.NewItemRepository(pool)),
			service.NewImpactService(postgres.NewImpactRepository(pool)),
			logger,
		),
		DropOff: handler.NewDropOffHandler(
			service.NewDropOffService(dropOffRepo, postgres.NewItemRepository(pool), producer, logger),
			service.NewReceiptService(dropOffRepo, postgres.NewReceiptRepository(pool), receipts, logger),
			logger,
		),
		Billing: handler.NewBillingHandler(
			paymentService,
			service.NewSubscriptionService(subscriptionRepo, methodRepo, logger),
			service.NewPremiumService(postgres.NewPremiumFeatureRepository(pool), logger),
			logger,
		),
	}

	// Background work started by middlewares stops with the app.
	bgCtx, stop := context.WithCancel(context.Background())
	a.stopBackground = stop

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(bgCtx, handlers, handler.NewAuthorizer(identityService, logger), healthHandler, handler.RouterConfig{
		ServiceName:        serviceName,
		CORS:               corsCfg,
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		AuthRateLimitBurst: cfg.AuthRateLimitBurst,
		Registerer:         reg,
		Gatherer:           reg,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// newRegistry selects the active-token registry backend.
func (a *App) newRegistry(ctx context.Context, h *health.Handler) (auth.Registry, error) {
	if a.cfg.TokenRegistry != config.RegistryRedis {
		if !a.cfg.IsDevelopment() {
			a.logger.Warn("in-memory token registry is not shared between instances")
		}
		return auth.NewMemoryRegistry(), nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Host = a.cfg.RedisHost
	redisCfg.Port = a.cfg.RedisPort
	redisCfg.Password = a.cfg.RedisPassword
	redisCfg.DB = a.cfg.RedisDB

	client, err := database.NewRedisClient(ctx, redisCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	h.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	a.logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))
	return auth.NewRedisRegistry(client), nil
}

// newStore selects the object storage backend for bucket.
func newStore(ctx context.Context, cfg *config.Config, bucket string, logger *slog.Logger) (storage.Store, error) {
	switch cfg.ReceiptStorage {
	case config.StorageMinIO:
		store, err := storage.NewMinIOStore(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    bucket,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			Bucket:          bucket,
		})
	default:
		if !cfg.IsDevelopment() {
			logger.Warn("using in-memory object storage, documents are lost on restart", slog.String("bucket", bucket))
		}
		return storage.NewMemoryStore(bucket), nil
	}
}

// registrySizeGauge exports the number of unexpired registry entries.
func registrySizeGauge(registry auth.Registry, logger *slog.Logger) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "auth_token_registry_entries",
		Help: "Number of unexpired entries in the active-token registry.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		n, err := registry.Len(ctx)
		if err != nil {
			logger.Warn("failed to read token registry size", slog.String("error", err.Error()))
			return 0
		}
		return float64(n)
	})
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, Redis, PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything init may have opened. It tolerates a
// partially initialized App.
func (a *App) closeResources() error {
	var errs []error

	if a.stopBackground != nil {
		a.stopBackground()
	}

	// Flush pending spans after the HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
