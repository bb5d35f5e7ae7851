package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/fdtorres1/opusgraph/config"
	"github.com/fdtorres1/opusgraph/internal/handlers"
	"github.com/fdtorres1/opusgraph/internal/repositories/activity"
	"github.com/fdtorres1/opusgraph/internal/repositories/composer"
	"github.com/fdtorres1/opusgraph/internal/repositories/country"
	"github.com/fdtorres1/opusgraph/internal/repositories/reviewflag"
	"github.com/fdtorres1/opusgraph/internal/repositories/revision"
	"github.com/fdtorres1/opusgraph/internal/repositories/userprofile"
	"github.com/fdtorres1/opusgraph/internal/repositories/work"
	"github.com/fdtorres1/opusgraph/pkg/database"
	"github.com/fdtorres1/opusgraph/pkg/events"
	"github.com/fdtorres1/opusgraph/pkg/importer"
	"github.com/fdtorres1/opusgraph/pkg/kafka"
	"github.com/fdtorres1/opusgraph/pkg/matching"
	"github.com/fdtorres1/opusgraph/pkg/merging"
	"github.com/fdtorres1/opusgraph/pkg/middleware"
	"github.com/fdtorres1/opusgraph/pkg/revisions"
	"github.com/fdtorres1/opusgraph/pkg/startup"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
	"github.com/fdtorres1/opusgraph/pkg/tracing/exporters"
)

var version = "dev"

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string                 { return d.name }
func (d *dependency) DependsOn() []string             { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func newLogger() ectologger.Logger {
	encoder := json.NewEncoder(os.Stdout)
	return ectologger.NewEctoLogger(func(m ectologger.EctoLogMessage) {
		_ = encoder.Encode(m)
	})
}

func main() {
	// best effort; env vars win over the file
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Printf("failed to bind env variables: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db database.DB
	var producer *kafka.Producer
	var tp *sdktrace.TracerProvider

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			var err error
			db, err = database.NewPostgres(ctx, database.PostgresConfig{
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				UserName:        cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			return err
		},
		stop: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})
	boot.AddDependency(&dependency{
		name:      "migrations",
		dependsOn: []string{"postgres"},
		start: func(ctx context.Context) error {
			instance, ok := db.(*database.DatabaseInstance)
			if !ok {
				return fmt.Errorf("unexpected database instance type %T", db)
			}
			driver, err := migratepg.WithInstance(instance.DB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			ms := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(cfg.DatabaseName, driver)
		},
	})
	if cfg.KafkaEnabled {
		boot.AddDependency(&dependency{
			name: "kafka",
			start: func(ctx context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      strings.Split(cfg.KafkaBrokers, ","),
					Topic:        cfg.KafkaEntityTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: cfg.KafkaBatchTimeout,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			stop: func(ctx context.Context) error {
				if producer == nil {
					return nil
				}
				return producer.Close()
			},
		})
	}
	boot.AddDependency(&dependency{
		name: "tracing",
		start: func(ctx context.Context) error {
			var err error
			tp, err = newTracerProvider(ctx, &cfg)
			if err != nil {
				return err
			}
			if tp != nil {
				otel.SetTracerProvider(tp)
				tracing.SetTracer(tp.Tracer(cfg.AppName))
			}
			return nil
		},
		stop: func(ctx context.Context) error {
			if tp == nil {
				return nil
			}
			return tp.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	composerRepo := composer.NewRepository(db, logger)
	workRepo := work.NewRepository(db, logger)
	flagRepo := reviewflag.NewRepository(db, logger)
	revisionRepo := revision.NewRepository(db, logger)
	countryRepo := country.NewRepository(db, logger)
	activityRepo := activity.NewRepository(db, logger)
	profileRepo := userprofile.NewRepository(db, logger)

	emitter := events.NewEmitter(producer, logger)
	revLogger := revisions.NewLogger(revisionRepo, logger)
	detector := matching.NewDetector(composerRepo, workRepo, logger)
	pipeline := importer.NewPipeline(composerRepo, workRepo, flagRepo, detector, revLogger, countryRepo, emitter, logger)
	merger := merging.NewEngine(db, composerRepo, workRepo, flagRepo, revLogger, emitter, logger)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(middleware.Context())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Logger(logger))

	health := handlers.NewHealthChecker(db, version)
	health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	if cfg.AuthEnabled {
		roleLookup := middleware.RoleLookupFunc(func(c echo.Context, userID string) (string, error) {
			profile, err := profileRepo.Get(c.Request().Context(), userID)
			if err != nil {
				return "", err
			}
			return profile.Role, nil
		})
		api.Use(middleware.Auth(logger, roleLookup))
	}

	handlers.NewComposerHandler(composerRepo, revLogger, emitter, logger).RegisterRoutes(api)
	handlers.NewWorkHandler(workRepo, composerRepo, revLogger, emitter, logger).RegisterRoutes(api)
	handlers.NewActivityHandler(activityRepo, revisionRepo, logger).RegisterRoutes(api)
	handlers.NewCountryHandler(countryRepo, logger).RegisterRoutes(api)

	admin := api.Group("")
	if cfg.AuthEnabled {
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	}
	handlers.NewImportHandler(pipeline, logger).RegisterRoutes(admin)
	handlers.NewReviewHandler(flagRepo, composerRepo, workRepo, merger, emitter, logger).RegisterRoutes(admin)

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server stopped unexpectedly")
			stop()
		}
	}()
	health.SetReady(true)
	logger.WithField("port", cfg.Port).Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	health.SetReady(false)
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down http server cleanly")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop dependencies cleanly")
	}
}

func newTracerProvider(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error
	switch {
	case cfg.OTLPEnabled:
		exporter, err = exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
			Timeout:  10 * time.Second,
		})
	case cfg.TracingConsole:
		exporter, err = exporters.NewConsoleExporter()
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.AppName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}
