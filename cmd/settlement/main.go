package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement/internal/app/transfers"
	"settlement/internal/config"
	transfers_http "settlement/internal/handler/http/transfers"
	kafka_handler "settlement/internal/handler/kafka"
	"settlement/internal/idempotency"
	"settlement/internal/infrastructure/database"
	kafka_infra "settlement/internal/infrastructure/kafka"
	"settlement/internal/outbox"
	"settlement/internal/payout"
	"settlement/internal/quote"
	outbox_pg "settlement/internal/repository/outbox_repo/postgres"
	transactions_pg "settlement/internal/repository/transactions_repo/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func ensureKafkaTopics(ctx context.Context, brokerURLs []string, topics []string, logger *zap.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokerURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker for admin operations: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	topicConfigs := make([]kafka.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}

	err = controllerConn.CreateTopics(topicConfigs...)
	if err != nil {
		if err == kafka.TopicAlreadyExists {
			logger.Info("One or more Kafka topics already exist, skipping creation.")
		} else {
			return fmt.Errorf("failed to create Kafka topics: %w", err)
		}
	} else {
		logger.Info("Kafka topics ensured successfully.", zap.Strings("topics", topics))
	}

	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Settlement Service starting...")

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...")
	m, err := migrate.New(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString())
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	kafkaBrokers := cfg.GetKafkaBrokers()
	requiredTopics := []string{
		cfg.KafkaTransferTaskTopic,
		cfg.KafkaDeadLetterTopic,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = ensureKafkaTopics(ctx, kafkaBrokers, requiredTopics, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	transactionRepository := transactions_pg.NewTransactionRepository(db)
	outboxRepository := outbox_pg.NewOutboxRepository(db)

	quoteResolver := quote.NewDefaultResolver(appLogger.With(zap.String("component", "QuoteResolver")))
	idempotencyGuard := idempotency.NewGuard(transactionRepository)
	executorRegistry := payout.NewDefaultRegistry()

	transferService := transfers.NewTransferService(
		transactionRepository,
		quoteResolver,
		idempotencyGuard,
		cfg.KafkaTransferTaskTopic,
		appLogger.With(zap.String("component", "TransferService")),
	)
	appLogger.Info("Transfer Service initialized.")

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	transfers_http.RegisterRoutes(router, transferService, appLogger.With(zap.String("component", "HTTPHandler")))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	appLogger.Info("HTTP server configured.")

	kafkaProducer := kafka_infra.NewProducer(
		kafkaBrokers,
		appLogger.With(zap.String("component", "KafkaProducer")),
	)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		} else {
			appLogger.Info("Kafka producer closed.")
		}
	}()
	appLogger.Info("Kafka producer created successfully.")

	outboxRelay := outbox.NewRelay(
		outboxRepository,
		kafkaProducer,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		appLogger.With(zap.String("component", "OutboxRelay")),
	)
	appLogger.Info("Outbox Relay initialized.")

	transferProcessor := transfers.NewTransferProcessor(
		transactionRepository,
		executorRegistry,
		kafkaProducer,
		cfg.KafkaTransferTaskTopic,
		cfg.KafkaDeadLetterTopic,
		cfg.MaxPayoutRetries,
		appLogger.With(zap.String("component", "TransferProcessor")),
	)

	transferTaskHandler := kafka_handler.TransferTaskMessageHandler(
		transferProcessor,
		kafkaProducer,
		cfg.KafkaDeadLetterTopic,
		appLogger.With(zap.String("component", "TransferTaskHandler")),
	)

	transferTaskConsumer := kafka_infra.NewConsumer(
		kafkaBrokers,
		cfg.KafkaTransferTaskTopic,
		cfg.KafkaConsumerGroup,
		cfg.KafkaSessionTimeout,
		transferTaskHandler,
		appLogger.With(zap.String("component", "TransferTaskConsumer")),
	)
	appLogger.Info("Transfer Task Kafka Consumer initialized.")

	ctxMain, cancelMain := context.WithCancel(context.Background())
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		appLogger.Info("Starting Outbox Relay...")
		outboxRelay.Start(ctxMain)
		appLogger.Info("Outbox Relay stopped.")
	}()

	go func() {
		appLogger.Info("Starting Transfer Task Kafka Consumer...")
		if err := transferTaskConsumer.Consume(ctxMain); err != nil {
			if err != context.Canceled && err != context.DeadlineExceeded && err != kafka.ErrGroupClosed {
				appLogger.Error("Transfer Task Kafka Consumer failed", zap.Error(err))
			}
		}
		appLogger.Info("Transfer Task Kafka Consumer stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down application...")

	cancelMain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	if err := transferTaskConsumer.Close(); err != nil {
		appLogger.Error("Error closing Transfer Task Kafka Consumer", zap.Error(err))
	} else {
		appLogger.Info("Transfer Task Kafka Consumer closed.")
	}

	select {
	case <-time.After(5 * time.Second):
		appLogger.Warn("Outbox Relay did not stop cleanly within 5 seconds.")
	case <-relayDone:
	}

	appLogger.Info("Application gracefully shut down.")
}
