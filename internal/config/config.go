package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBConfig struct {
		Host     string `env:"SETTLEMENT_DB_HOST"`
		Port     int    `env:"SETTLEMENT_DB_PORT"`
		User     string `env:"SETTLEMENT_DB_USER"`
		Password string `env:"SETTLEMENT_DB_PASSWORD"`
		Name     string `env:"SETTLEMENT_DB_NAME"`
		SSLMode  string `env:"SETTLEMENT_DB_SSLMODE"`
	}

	HTTPPort int `env:"SETTLEMENT_HTTP_PORT"`

	KafkaBrokerURL         string        `env:"KAFKA_BROKER_URL"`
	KafkaTransferTaskTopic string        `env:"KAFKA_TRANSFER_TASK_TOPIC"`
	KafkaDeadLetterTopic   string        `env:"KAFKA_DEAD_LETTER_TOPIC"`
	KafkaConsumerGroup     string        `env:"KAFKA_CONSUMER_GROUP"`
	KafkaSessionTimeout    time.Duration `env:"KAFKA_SESSION_TIMEOUT"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT"`

	MaxPayoutRetries int `env:"MAX_PAYOUT_RETRIES"`

	MigrationsPath string `env:"MIGRATIONS_PATH"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DBConfig.Host = getEnvOrDefault("SETTLEMENT_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("SETTLEMENT_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("SETTLEMENT_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("SETTLEMENT_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("SETTLEMENT_DB_NAME", "settlement_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("SETTLEMENT_DB_SSLMODE", "disable")

	cfg.HTTPPort = getEnvAsInt("SETTLEMENT_HTTP_PORT", 8084)

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaTransferTaskTopic = getEnvOrDefault("KAFKA_TRANSFER_TASK_TOPIC", "transfer_tasks")
	cfg.KafkaDeadLetterTopic = getEnvOrDefault("KAFKA_DEAD_LETTER_TOPIC", "transfer_tasks_dlq")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "settlement-service-group")
	cfg.KafkaSessionTimeout = getEnvAsDuration("KAFKA_SESSION_TIMEOUT", 30*time.Second)

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)

	cfg.MaxPayoutRetries = getEnvAsInt("MAX_PAYOUT_RETRIES", 3)

	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
