// Package main boots the sedge EDI exchange API: configuration, logging,
// database (with migrations), redis poll locks, kafka lifecycle events,
// transport channels, the exchange service, the SFTP polling scheduler and
// the HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/sedge/config"
	"github.com/Ramsey-B/sedge/internal/erp"
	"github.com/Ramsey-B/sedge/internal/handlers"
	"github.com/Ramsey-B/sedge/internal/repositories/documentmap"
	"github.com/Ramsey-B/sedge/internal/repositories/partner"
	"github.com/Ramsey-B/sedge/internal/repositories/settings"
	"github.com/Ramsey-B/sedge/internal/repositories/transaction"
	"github.com/Ramsey-B/sedge/pkg/database"
	"github.com/Ramsey-B/sedge/pkg/events"
	"github.com/Ramsey-B/sedge/pkg/exchange"
	"github.com/Ramsey-B/sedge/pkg/middleware"
	"github.com/Ramsey-B/sedge/pkg/models"
	sedgeredis "github.com/Ramsey-B/sedge/pkg/redis"
	"github.com/Ramsey-B/sedge/pkg/scheduler"
	"github.com/Ramsey-B/sedge/pkg/tracing"
	"github.com/Ramsey-B/sedge/pkg/transport"
)

// as2Credentials resolves the tenant's AS2 identity from stored settings.
type as2Credentials struct {
	repo settings.SettingsRepository
}

func (s as2Credentials) AS2Credentials(ctx context.Context, tenantID string) (transport.CompanyCredentials, error) {
	cfg, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return transport.CompanyCredentials{}, err
	}
	return transport.CompanyCredentials{
		AS2ID:          cfg.AS2LocalID,
		CertificatePEM: cfg.Certificate,
		PrivateKeyPEM:  cfg.PrivateKey,
	}, nil
}

func newLogger(cfg *config.Config) (ectologger.Logger, func()) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), func() { _ = zapLogger.Sync() }
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, flush := newLogger(cfg)
	defer flush()

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	// Database
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	db := database.NewDatabaseInstance(sqlxDB, logger)
	defer db.Close()

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		logger.WithError(err).Error("Failed to create migration driver")
		os.Exit(1)
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	// Redis poll locks
	redisClient, err := sedgeredis.NewClient(sedgeredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to redis")
		os.Exit(1)
	}
	defer redisClient.Close()
	locker := sedgeredis.NewPollLocker(redisClient, uuid.New().String())

	// Lifecycle events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaEventsEnabled {
		producer, err := events.NewProducer(events.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaEventsTopic,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to create kafka producer")
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
	}

	// Repositories
	partnerRepo := partner.NewRepository(db, logger)
	txnRepo := transaction.NewRepository(db, logger)
	mapRepo := documentmap.NewRepository(db, logger)
	settingsRepo := settings.NewRepository(db, logger)

	// Transport channels
	sftpChannel := transport.NewSFTPChannel(time.Duration(cfg.SFTPDialTimeoutSeconds)*time.Second, logger)
	registry := transport.NewRegistry()
	registry.Register(models.CommMethodAS2, transport.NewAS2Channel(as2Credentials{repo: settingsRepo}, time.Duration(cfg.AS2TimeoutSeconds)*time.Second, logger))
	registry.Register(models.CommMethodSFTP, sftpChannel)
	registry.Register(models.CommMethodManual, transport.ManualChannel{})
	registry.Register(models.CommMethodAPI, transport.ManualChannel{})
	registry.Register(models.CommMethodEmail, transport.ManualChannel{})

	// Exchange service and scheduler
	erpBridge := erp.NewBridge(logger)
	service := exchange.NewService(partnerRepo, txnRepo, mapRepo, settingsRepo, registry, erpBridge, publisher, logger)

	sched := scheduler.NewScheduler(partnerRepo, settingsRepo, locker, sftpChannel, service, nil, logger)
	if err := sched.RefreshSchedules(context.Background()); err != nil {
		logger.WithError(err).Error("Failed to start polling schedules")
		os.Exit(1)
	}
	defer sched.Stop()

	// HTTP surface
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	if !cfg.AuthEnabled {
		e.Use(middleware.TestAuth())
	}

	e.GET("/health", func(c echo.Context) error {
		if err := db.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	handlers.NewPartnerHandler(partnerRepo, registry, sched, logger).RegisterRoutes(api)
	handlers.NewTransactionHandler(txnRepo, service).RegisterRoutes(api)
	handlers.NewDocumentMapHandler(mapRepo).RegisterRoutes(api)
	handlers.NewSettingsHandler(settingsRepo, sched, logger).RegisterRoutes(api)

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	go func() {
		logger.WithField("port", cfg.Port).Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server stopped")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
}
