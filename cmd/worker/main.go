package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mets-platform/mets/internal/activities"
	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/internal/domain"
	mongoRepo "github.com/mets-platform/mets/internal/infrastructure/mongodb"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/internal/workflows"
	"github.com/mets-platform/mets/pkg/kafka"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
	"github.com/mets-platform/mets/pkg/mongodb"
	"github.com/mets-platform/mets/pkg/temporal"
	"github.com/mets-platform/mets/pkg/tracing"
)

const serviceName = "mets-worker"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting METS worker")

	config := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	params := planning.DefaultParameters()
	if config.ParametersFile != "" {
		params, err = planning.LoadParameters(config.ParametersFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load planning parameters", "path", config.ParametersFile)
			os.Exit(1)
		}
	}

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer instrumentedMongo.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	repos, err := mongoRepo.NewRepositories(ctx, instrumentedMongo)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize repositories")
		os.Exit(1)
	}

	config.Temporal.Logger = logger.Logger
	temporalClient, err := temporal.NewClient(ctx, config.Temporal)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort)

	planningService := application.NewPlanningApplicationService(
		repos.Orders,
		repos.Units,
		repos.Plans,
		repos.Parameters,
		params,
		logger,
		m,
	)
	planningActivities := activities.NewPlanningActivities(planningService, logger, m)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.Planning))

	w.RegisterWorkflow(workflows.ReplanningWorkflow)
	logger.Info("Registered workflow", "workflow", temporal.WorkflowNames.Replanning)

	w.RegisterActivity(planningActivities.GeneratePlan)
	w.RegisterActivity(planningActivities.NotifyCapacityOverload)
	logger.Info("Registered activities")

	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "taskQueue", temporal.TaskQueues.Planning)

	// Order events from other writers trigger a replan
	replanStarter := workflows.NewReplanStarter(temporalClient, logger, m)

	consumer := kafka.NewProductionConsumer(config.Kafka, m, logger)
	consumer.SubscribeAll(kafka.Topics.OrdersEvents, workflows.OrderEventHandler(replanStarter, logger))
	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start Kafka consumer")
		os.Exit(1)
	}
	defer consumer.Close()
	logger.Info("Kafka consumer started", "topic", kafka.Topics.OrdersEvents, "group", config.Kafka.ConsumerGroup)

	if config.ReplanInterval > 0 {
		go scheduleReplans(ctx, replanStarter, config.ReplanInterval, logger)
		logger.Info("Scheduled replanning enabled", "interval", config.ReplanInterval.String())
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	cancel()
	w.Stop()
	logger.Info("Worker stopped")
}

// scheduleReplans requests one replan per interval slot. The slot start is
// the trigger id, so several workers share one workflow run per slot.
func scheduleReplans(ctx context.Context, replanner workflows.Replanner, interval time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			slot := now.UTC().Truncate(interval).Format("20060102T150405")
			if err := replanner.RequestReplan(ctx, domain.TriggerScheduled, "scheduled-"+slot); err != nil {
				logger.WithError(err).Warn("Scheduled replan failed", "slot", slot)
			}
		}
	}
}

// Config holds worker configuration
type Config struct {
	ParametersFile string
	ReplanInterval time.Duration
	MongoDB        *mongodb.Config
	Kafka          *kafka.Config
	Temporal       *temporal.Config
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)
	mongoConfig.AppName = serviceName

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = []string{getEnv("KAFKA_BROKERS", "localhost:9092")}
	kafkaConfig.ClientID = serviceName
	kafkaConfig.ConsumerGroup = getEnv("KAFKA_CONSUMER_GROUP", kafkaConfig.ConsumerGroup)

	temporalConfig := temporal.DefaultConfig()
	temporalConfig.HostPort = getEnv("TEMPORAL_HOST", temporalConfig.HostPort)
	temporalConfig.Namespace = getEnv("TEMPORAL_NAMESPACE", temporalConfig.Namespace)
	temporalConfig.Identity = serviceName

	interval, err := time.ParseDuration(getEnv("REPLAN_INTERVAL", "1h"))
	if err != nil {
		interval = time.Hour
	}

	return &Config{
		ParametersFile: getEnv("PLANNING_PARAMETERS_FILE", ""),
		ReplanInterval: interval,
		MongoDB:        mongoConfig,
		Kafka:          kafkaConfig,
		Temporal:       temporalConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
