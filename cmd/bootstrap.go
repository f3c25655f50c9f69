package cmd

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/audit"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/crypto"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/factory"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/idempotency"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/provider"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/repository"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/service"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/telemetry"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/config"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

type application struct {
	cfg            *config.Config
	db             *sql.DB
	tenantRepo     *repository.TenantRepository
	paymentService *service.PaymentService
	adminService   *service.AdminService
	cleanup        func()
}

func mustCreateApplication() *application {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(context.Background(), cfg.App.ServiceName)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize telemetry")
		}
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logrus.WithError(err).Warn("Failed to shutdown telemetry")
			}
		})
	}

	db := mustOpenDatabase(cfg)
	closers = append(closers, func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	})

	cipher, err := crypto.NewCredentialCipher(cfg.Credentials.Key)
	if err != nil {
		cleanup()
		logrus.WithError(err).Fatal("Failed to initialize credential cipher")
	}

	store, closeStore := mustCreateIdempotencyStore(cfg)
	closers = append(closers, closeStore)

	paymentRepo := repository.NewPaymentRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	gatewayConfigRepo := repository.NewGatewayConfigRepository(db)
	auditRepo := repository.NewAuditRecordRepository(db)

	registry := newGatewayRegistry(cfg)
	coordinator := idempotency.NewCoordinator(store, idempotency.Config{
		LockTTL:   cfg.Idempotency.LockTTL,
		ResultTTL: cfg.Idempotency.ResultTTL,
	}, factory.NewModuleLogger("idempotency"))

	paymentService := service.NewPaymentService(
		paymentRepo,
		gatewayConfigRepo,
		auditRepo,
		coordinator,
		provider.NewRouter(cfg.Gateways.Default),
		registry,
		cipher,
		audit.NewSink(auditRepo, factory.NewModuleLogger("audit")),
		cfg.Payments,
	)
	adminService := service.NewAdminService(tenantRepo, gatewayConfigRepo, registry, cipher)

	return &application{
		cfg:            cfg,
		db:             db,
		tenantRepo:     tenantRepo,
		paymentService: paymentService,
		adminService:   adminService,
		cleanup:        cleanup,
	}
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	if cfg.DB.Driver == config.DBDriverSQLite {
		// every sqlite connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	if cfg.DB.Driver == config.DBDriverSQLite {
		if err := repository.Migrate(context.Background(), db); err != nil {
			_ = db.Close()
			logrus.WithError(err).Fatal("Failed to migrate database")
		}
	}

	return db
}

func mustCreateIdempotencyStore(cfg *config.Config) (idempotency.Store, func()) {
	if cfg.Idempotency.Store == config.IdempotencyStoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			logrus.WithError(err).Fatal("Failed to connect to redis")
		}
		return idempotency.NewRedisStore(client), func() {
			if err := client.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis client")
			}
		}
	}

	store := idempotency.NewMemoryStore(cfg.Idempotency.SweepInterval)
	return store, func() {
		_ = store.Close()
	}
}

func newGatewayRegistry(cfg *config.Config) *provider.Registry {
	return provider.NewRegistry(
		provider.NewMockGateway(provider.MockConfig{
			Latency:      cfg.Gateways.MockLatency,
			RejectAmount: cfg.Gateways.MockRejectAmount,
		}),
		provider.NewStripeGateway(provider.StripeConfig{
			BaseURL:       cfg.Gateways.StripeBaseURL,
			PaymentMethod: cfg.Gateways.StripePaymentMethod,
			HTTPTimeout:   cfg.Gateways.HTTPTimeout,
		}),
		provider.NewMercadoPagoGateway(provider.MercadoPagoConfig{
			BaseURL:     cfg.Gateways.MercadoPagoBaseURL,
			Description: cfg.App.ServiceName,
			HTTPTimeout: cfg.Gateways.HTTPTimeout,
		}),
	)
}
