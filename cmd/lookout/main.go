package main

import (
	lookoutconfig "frameworks/lookout/internal/config"
	"frameworks/lookout/internal/consult"
	"frameworks/lookout/internal/metering"
	"frameworks/lookout/internal/query"
	"frameworks/lookout/pkg/config"
	"frameworks/lookout/pkg/llm"
	"frameworks/lookout/pkg/logging"
	"frameworks/lookout/pkg/monitoring"
	"frameworks/lookout/pkg/server"
	"frameworks/lookout/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("lookout")

	// Load environment variables
	config.LoadEnv(logger)

	logger.WithFields(logging.Fields{
		"version":    version.Version,
		"commit":     version.GetShortCommit(),
		"build_date": version.BuildDate,
	}).Info("Starting Lookout (Search Intent Gateway API)")

	cfg := lookoutconfig.LoadConfig()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("lookout", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("lookout", version.Version, version.GitCommit)

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"LLM_MODEL": cfg.LLM.Model,
	}))

	var usagePublisher *metering.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := metering.NewPublisher(metering.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			ClusterID: cfg.KafkaClusterID,
			Topic:     cfg.BillingKafkaTopic,
			Source:    "lookout",
			Logger:    logger,
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to create billing Kafka publisher - usage events disabled")
		} else {
			usagePublisher = publisher
			defer func() { _ = usagePublisher.Close() }()
			healthChecker.AddCheck("kafka", monitoring.KafkaProducerHealthCheck(usagePublisher.Client()))
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set - billing usage events disabled")
	}

	llmProvider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize LLM provider")
	}

	engine := consult.NewEngine(consult.Config{
		Provider:    llmProvider,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxAttempts: cfg.ConsultMaxAttempts,
		Backoff:     cfg.ConsultRetryBackoff,
		Logger:      logger,
	})

	if cfg.Restricted {
		logger.Info("Restricted mode enabled - local search backend and summarize endpoint are disabled")
	}

	queryHandler := query.NewQueryHandler(engine, cfg.Search, cfg.Restricted, usagePublisher, logger)

	// Setup router with unified monitoring (health/metrics only)
	router := server.SetupServiceRouter(logger, "lookout", healthChecker, metricsCollector)
	query.RegisterRoutes(router, queryHandler)

	// Start HTTP server with graceful shutdown
	serverConfig := server.DefaultConfig("lookout", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
