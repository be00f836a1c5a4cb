package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/perunhq/blackbook-sync/config"
	accountrepo "github.com/perunhq/blackbook-sync/internal/repositories/account"
	archiverepo "github.com/perunhq/blackbook-sync/internal/repositories/archive"
	personrepo "github.com/perunhq/blackbook-sync/internal/repositories/person"
	reviewrepo "github.com/perunhq/blackbook-sync/internal/repositories/review"
	settingsrepo "github.com/perunhq/blackbook-sync/internal/repositories/settings"
	synclogrepo "github.com/perunhq/blackbook-sync/internal/repositories/synclog"
	archivemgr "github.com/perunhq/blackbook-sync/pkg/archive"
	"github.com/perunhq/blackbook-sync/pkg/conflict"
	"github.com/perunhq/blackbook-sync/pkg/contacts"
	"github.com/perunhq/blackbook-sync/pkg/database"
	"github.com/perunhq/blackbook-sync/pkg/events"
	"github.com/perunhq/blackbook-sync/pkg/kafka"
	"github.com/perunhq/blackbook-sync/pkg/matching"
	"github.com/perunhq/blackbook-sync/pkg/middleware"
	"github.com/perunhq/blackbook-sync/pkg/nicknames"
	"github.com/perunhq/blackbook-sync/pkg/redis"
	archiveroutes "github.com/perunhq/blackbook-sync/pkg/routes/archive"
	"github.com/perunhq/blackbook-sync/pkg/routes/health"
	reviewroutes "github.com/perunhq/blackbook-sync/pkg/routes/review"
	settingsroutes "github.com/perunhq/blackbook-sync/pkg/routes/settings"
	syncroutes "github.com/perunhq/blackbook-sync/pkg/routes/sync"
	"github.com/perunhq/blackbook-sync/pkg/scheduler"
	"github.com/perunhq/blackbook-sync/pkg/startup"
	syncpkg "github.com/perunhq/blackbook-sync/pkg/sync"
	"github.com/perunhq/blackbook-sync/pkg/tracing"
	"github.com/perunhq/blackbook-sync/pkg/tracing/exporters"
)

// Version is set at build time.
var Version = "dev"

// dependency adapts closures to the startup lifecycle.
type dependency struct {
	name  string
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return nil }

func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(&cfg)
	ctx := context.Background()

	var (
		db           database.DB
		sqlDB        *sqlx.DB
		redisClient  *redis.Client
		producer     *kafka.Producer
		sched        *scheduler.Scheduler
		httpServer   *echo.Echo
		orchestrator *syncpkg.Orchestrator
		checker      *health.Checker
	)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "tracing",
		start: func(ctx context.Context) error {
			if !cfg.TracingEnabled {
				return nil
			}
			exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
				Endpoint: cfg.TracingEndpoint,
				Protocol: cfg.TracingProtocol,
				Insecure: true,
			})
			if err != nil {
				return err
			}

			res, err := sdkresource.New(ctx, sdkresource.WithAttributes(
				semconv.ServiceName(cfg.AppName),
				semconv.ServiceVersion(Version),
			))
			if err != nil {
				return err
			}

			opts := []sdktrace.TracerProviderOption{
				sdktrace.WithBatcher(exporter),
				sdktrace.WithResource(res),
			}
			if cfg.TracingSampleAll {
				opts = append(opts, sdktrace.WithSampler(sdktrace.AlwaysSample()))
			}

			provider := sdktrace.NewTracerProvider(opts...)
			otel.SetTracerProvider(provider)
			tracing.SetTracer(provider.Tracer(cfg.AppName))
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)

			conn, err := sqlx.Open(cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			if err := conn.PingContext(ctx); err != nil {
				return err
			}

			driver, err := postgres.WithInstance(conn.DB, &postgres.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			sqlDB = conn
			db = database.NewDatabaseInstance(conn, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if sqlDB != nil {
				return sqlDB.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "redis",
		start: func(ctx context.Context) error {
			if !cfg.RedisEnabled {
				return nil
			}
			client, err := redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			redisClient = client
			return nil
		},
		stop: func(ctx context.Context) error {
			if redisClient != nil {
				return redisClient.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "kafka",
		start: func(ctx context.Context) error {
			if !cfg.KafkaEnabled {
				return nil
			}
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if producer != nil {
				return producer.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "sync",
		start: func(ctx context.Context) error {
			people := personrepo.NewRepository(db, logger)
			accounts := accountrepo.NewRepository(db, logger)
			logs := synclogrepo.NewRepository(db, logger)
			reviews := reviewrepo.NewRepository(db, logger)
			archives := archiverepo.NewRepository(db, logger)
			settings := settingsrepo.NewRepository(db, logger)

			emitter := events.NewEmitter(producer, logger)
			manager := archivemgr.NewManager(archives, logs, settings, emitter, logger)

			matcher := matching.NewMatcher(nicknames.DefaultIndex())
			detector := conflict.NewDetector(matcher)

			registry := contacts.NewRegistry()
			// Provider factories are registered here as adapters ship.

			var locker *redis.Locker
			if redisClient != nil {
				locker = redis.NewLocker(redisClient, "blackbook:")
			}

			orchestrator = syncpkg.NewOrchestrator(
				people, accounts, logs, reviews, manager, detector, matcher, registry, emitter, locker,
				syncpkg.Config{
					AdapterCallTimeout:    cfg.AdapterCallTimeout,
					AdapterRetryAttempts:  cfg.AdapterRetryAttempts,
					AdapterRetryBaseDelay: cfg.AdapterRetryBaseDelay,
					PassLockTTL:           cfg.PassLockTTL,
					ExportNoteLimit:       cfg.ExportNoteLimit,
				},
				logger,
			)

			sched = scheduler.NewScheduler(orchestrator, manager, settings, cfg.SchedulerPollInterval, logger)

			e := echo.New()
			e.HideBanner = true
			e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
			e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
			e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
			e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

			e.Use(otelecho.Middleware(cfg.AppName))
			e.Use(middleware.Context())
			e.Use(middleware.Logger(logger))
			e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
				AllowOrigins: cfg.AllowOrigins,
				AllowMethods: cfg.AllowMethods,
			}))
			e.HTTPErrorHandler = middleware.Error(logger)

			checker = health.NewChecker(db, healthPinger(redisClient), Version)
			checker.RegisterRoutes(e)
			e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

			api := e.Group("/api/v1")
			syncroutes.NewHandler(orchestrator, sched, reviews, logs, logger).RegisterRoutes(api.Group("/sync"))
			reviewroutes.NewHandler(reviews, people, logs, logger).RegisterRoutes(api.Group("/review"))
			archiveroutes.NewHandler(archives, manager, logger).RegisterRoutes(api.Group("/archive"))
			settingsroutes.NewHandler(settings, logger).RegisterRoutes(api.Group("/settings"))

			httpServer = e
			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped unexpectedly")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			if httpServer != nil {
				return httpServer.Shutdown(ctx)
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "scheduler",
		start: func(ctx context.Context) error {
			if !cfg.SchedulerEnabled {
				return nil
			}
			return sched.Start(ctx)
		},
		stop: func(ctx context.Context) error {
			if sched != nil {
				return sched.Stop(ctx)
			}
			return nil
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	checker.SetReady(true)
	logger.WithFields(map[string]any{"port": cfg.Port, "version": Version}).Info("BlackBook sync service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// healthPinger avoids handing the checker a typed nil.
func healthPinger(client *redis.Client) health.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}
