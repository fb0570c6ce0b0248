package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN             string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL             string `env:"RABBITMQ_URL,required=true"`
	RedisURL                string `env:"REDIS_URL,required=true"`
	APIPort                 int    `env:"API_PORT,default=8080"`
	LogLevel                string `env:"LOG_LEVEL,default=info"`
	IngestConcurrency       int    `env:"INGEST_CONCURRENCY,default=16"`
	DeliveryConcurrency     int    `env:"DELIVERY_CONCURRENCY,default=16"`
	ConsumerPrefetch        int    `env:"CONSUMER_PREFETCH,default=32"`
	DeliveryRateLimitPerSec int    `env:"DELIVERY_RATE_LIMIT_PER_SEC,default=100"`
	DeliveryTimeoutSeconds  int    `env:"DELIVERY_TIMEOUT_SECONDS,default=30"`
	RetryScanIntervalSecs   int    `env:"RETRY_SCAN_INTERVAL_SECONDS,default=5"`
	RetryScanLimit          int    `env:"RETRY_SCAN_LIMIT,default=100"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
