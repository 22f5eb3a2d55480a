package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	metsapi "github.com/mets-platform/mets/api"
	"github.com/mets-platform/mets/internal/api/handlers"
	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/infrastructure/memory"
	mongoRepo "github.com/mets-platform/mets/internal/infrastructure/mongodb"
	"github.com/mets-platform/mets/internal/infrastructure/seed"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/internal/workflows"
	"github.com/mets-platform/mets/pkg/contracts/openapi"
	"github.com/mets-platform/mets/pkg/kafka"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
	"github.com/mets-platform/mets/pkg/middleware"
	"github.com/mets-platform/mets/pkg/mongodb"
	"github.com/mets-platform/mets/pkg/outbox"
	"github.com/mets-platform/mets/pkg/temporal"
	"github.com/mets-platform/mets/pkg/tracing"
)

const serviceName = "mets-api"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting METS API")

	config := loadConfig()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Planning parameters
	params := planning.DefaultParameters()
	if config.ParametersFile != "" {
		params, err = planning.LoadParameters(config.ParametersFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load planning parameters", "path", config.ParametersFile)
			os.Exit(1)
		}
		logger.Info("Planning parameters loaded", "path", config.ParametersFile, "mode", string(params.Mode))
	}

	// Storage and event publishing
	var (
		repos     *repositories
		publisher kafka.EventPublisher
		checks    = map[string]func(ctx context.Context) error{}
	)
	if config.DemoMode {
		store := memory.NewStore()
		repos = &repositories{
			outbox:     store.Outbox,
			orders:     store.Orders,
			units:      store.Units,
			plans:      store.Plans,
			parameters: store.Parameters,
			documents:  store.Documents,
		}
		sink := memory.NewEventSink(1000, logger)
		defer sink.Close()
		publisher = sink
		logger.Info("Demo mode: using in-memory repositories")
	} else {
		mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
		defer instrumentedMongo.Close(context.Background())
		logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

		mongoRepos, err := mongoRepo.NewRepositories(ctx, instrumentedMongo)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize repositories")
			os.Exit(1)
		}
		repos = &repositories{
			outbox:     mongoRepos.Outbox,
			orders:     mongoRepos.Orders,
			units:      mongoRepos.Units,
			plans:      mongoRepos.Plans,
			parameters: mongoRepos.Parameters,
			documents:  mongoRepos.Documents,
		}
		checks["mongodb"] = instrumentedMongo.HealthCheck

		topicCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := kafka.EnsureTopics(topicCtx, config.Kafka.Brokers, kafka.DefaultTopicConfigs()); err != nil {
			logger.WithError(err).Warn("Failed to ensure Kafka topics")
		}
		cancel()

		producer := kafka.NewProductionProducer(config.Kafka, m, logger)
		defer producer.Close()
		publisher = producer
		logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)
	}

	loader := seed.NewLoader(repos.orders, repos.units, repos.documents, logger).
		WithProductionUnits(params.Units)
	if err := loader.EnsureReferenceData(ctx); err != nil {
		logger.WithError(err).Error("Failed to seed reference data")
		os.Exit(1)
	}
	if config.DemoMode {
		if err := loader.LoadDemoOrders(ctx); err != nil {
			logger.WithError(err).Error("Failed to seed demo orders")
			os.Exit(1)
		}
	}

	outboxPublisher := outbox.NewPublisher(repos.outbox, publisher, logger, outbox.DefaultPublisherConfig())
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Application services
	planningService := application.NewPlanningApplicationService(
		repos.orders,
		repos.units,
		repos.plans,
		repos.parameters,
		params,
		logger,
		m,
	)

	// Order changes replan through the workflow engine when it is reachable
	var replanner application.Replanner = planningService
	if config.TemporalEnabled {
		config.Temporal.Logger = logger.Logger
		temporalClient, err := temporal.NewClient(ctx, config.Temporal)
		if err != nil {
			logger.WithError(err).Warn("Temporal unavailable, replanning inline")
		} else {
			defer temporalClient.Close()
			replanner = workflows.NewReplanStarter(temporalClient, logger, m)
			logger.Info("Connected to Temporal", "namespace", config.Temporal.Namespace)
		}
	}

	services := &handlers.Services{
		Orders:    application.NewOrderApplicationService(repos.orders, replanner, logger, m),
		Queries:   application.NewOrderQueryService(repos.orders, logger),
		Planning:  planningService,
		Dashboard: application.NewDashboardService(repos.orders, repos.plans, logger),
		Assistant: application.NewAssistantService(repos.documents, repos.orders, repos.plans, logger, m),
	}

	// Router
	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middlewareConfig.Metrics = m
	middlewareConfig.EnableTracing = tracingConfig.Enabled
	if config.OpenAPIValidation {
		contract, err := openapi.NewValidatorFromBytes(metsapi.OpenAPI)
		if err != nil {
			logger.WithError(err).Error("Failed to load OpenAPI contract")
			os.Exit(1)
		}
		middlewareConfig.Contract = contract
		logger.Info("OpenAPI request validation enabled")
	}
	middleware.Setup(router, middlewareConfig)

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, checks))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	handlers.RegisterRoutes(router.Group("/api/v1"), services, logger)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr, "demoMode", config.DemoMode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	stop()

	logger.Info("Server stopped")
}

// repositories is the storage the API runs on, Mongo or in-memory
type repositories struct {
	outbox     outbox.Repository
	orders     domain.OrderRepository
	units      domain.ProductionUnitRepository
	plans      domain.PlanRepository
	parameters domain.ParametersRepository
	documents  domain.TechnicalDocumentRepository
}

// Config holds application configuration
type Config struct {
	ServerAddr        string
	Environment       string
	DemoMode          bool
	OpenAPIValidation bool
	TemporalEnabled   bool
	ParametersFile    string
	MongoDB           *mongodb.Config
	Kafka             *kafka.Config
	Temporal          *temporal.Config
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)
	mongoConfig.AppName = serviceName

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = []string{getEnv("KAFKA_BROKERS", "localhost:9092")}
	kafkaConfig.ClientID = serviceName

	temporalConfig := temporal.DefaultConfig()
	temporalConfig.HostPort = getEnv("TEMPORAL_HOST", temporalConfig.HostPort)
	temporalConfig.Namespace = getEnv("TEMPORAL_NAMESPACE", temporalConfig.Namespace)
	temporalConfig.Identity = serviceName

	return &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8020"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		DemoMode:          getEnv("DEMO_MODE", "false") == "true",
		OpenAPIValidation: getEnv("OPENAPI_VALIDATION", "true") == "true",
		TemporalEnabled:   getEnv("TEMPORAL_ENABLED", "true") == "true",
		ParametersFile:    getEnv("PLANNING_PARAMETERS_FILE", ""),
		MongoDB:           mongoConfig,
		Kafka:             kafkaConfig,
		Temporal:          temporalConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
