package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress        string
	DatabaseURI       string
	RedisAddress      string
	KafkaBrokers      []string
	KafkaTopic        string
	NotifyWebhookURL  string
	AuthSecret        string
	OTLPEndpoint      string
	ShutdownTimeout   time.Duration
	ReserveRetries    int
	PendingOrderTTL   time.Duration
	ExpiryInterval    time.Duration
	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration
	WorkerPoolSize    int
	WorkerBatchSize   int
	OrderCacheTTL     time.Duration
}

const (
	defaultRunAddress        = ":8080"
	defaultKafkaTopic        = "order.status.changed"
	defaultAuthSecret        = "change-me-in-production"
	defaultShutdownTimeout   = 10 * time.Second
	defaultReserveRetries    = 5
	defaultExpiryInterval    = time.Minute
	defaultReconcileInterval = time.Minute
	defaultReconcileGrace    = 10 * time.Minute
	defaultWorkerPoolSize    = 2
	defaultWorkerBatchSize   = 32
	defaultOrderCacheTTL     = 5 * time.Minute
)

// Load reads an optional .env file, then parses configuration from flags and
// environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

// LoadEnv is Load without command line flags, for tools that parse their own.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()
	return load(nil, os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		RedisAddress:      getString(lookup, "REDIS_ADDRESS", ""),
		KafkaTopic:        getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		NotifyWebhookURL:  getString(lookup, "NOTIFY_WEBHOOK_URL", ""),
		AuthSecret:        getString(lookup, "AUTH_SECRET", defaultAuthSecret),
		OTLPEndpoint:      getString(lookup, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		ReserveRetries:    getInt(lookup, "RESERVE_RETRIES", defaultReserveRetries),
		PendingOrderTTL:   getDuration(lookup, "PENDING_ORDER_TTL", 0),
		ExpiryInterval:    getDuration(lookup, "EXPIRY_INTERVAL", defaultExpiryInterval),
		ReconcileInterval: getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		ReconcileGrace:    getDuration(lookup, "RECONCILE_GRACE", defaultReconcileGrace),
		WorkerPoolSize:    getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		WorkerBatchSize:   getInt(lookup, "WORKER_BATCH_SIZE", defaultWorkerBatchSize),
		OrderCacheTTL:     getDuration(lookup, "ORDER_CACHE_TTL", defaultOrderCacheTTL),
	}

	fs := flag.NewFlagSet("fulfillment", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		brokers              = getString(lookup, "KAFKA_BROKERS", "")
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
		pendingTTLStr        = cfg.PendingOrderTTL.String()
		expiryIntervalStr    = cfg.ExpiryInterval.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		reconcileGraceStr    = cfg.ReconcileGrace.String()
		cacheTTLStr          = cfg.OrderCacheTTL.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN, in-memory store when empty")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for the order cache")
	fs.StringVar(&brokers, "kafka-brokers", brokers, "Comma separated kafka brokers")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Topic for order status events")
	fs.StringVar(&cfg.NotifyWebhookURL, "webhook", cfg.NotifyWebhookURL, "Webhook receiving order status events")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "Secret for signing auth tokens")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP/HTTP trace collector endpoint")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.ReserveRetries, "reserve-retries", cfg.ReserveRetries, "Attempts per stock compare-and-swap")
	fs.StringVar(&pendingTTLStr, "pending-ttl", pendingTTLStr, "Age after which pending orders expire, 0 disables")
	fs.StringVar(&expiryIntervalStr, "expiry-interval", expiryIntervalStr, "Interval between expiry sweeps")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between reservation sweeps")
	fs.StringVar(&reconcileGraceStr, "reconcile-grace", reconcileGraceStr, "Age before an outstanding reservation is reconciled")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent workers per sweep")
	fs.IntVar(&cfg.WorkerBatchSize, "worker-batch", cfg.WorkerBatchSize, "Maximum items per sweep")
	fs.StringVar(&cacheTTLStr, "cache-ttl", cacheTTLStr, "Order cache TTL")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	if cfg.PendingOrderTTL, err = time.ParseDuration(pendingTTLStr); err != nil {
		return nil, fmt.Errorf("invalid pending order ttl: %w", err)
	}
	if cfg.ExpiryInterval, err = time.ParseDuration(expiryIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid expiry interval: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}
	if cfg.ReconcileGrace, err = time.ParseDuration(reconcileGraceStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile grace: %w", err)
	}
	if cfg.OrderCacheTTL, err = time.ParseDuration(cacheTTLStr); err != nil {
		return nil, fmt.Errorf("invalid cache ttl: %w", err)
	}

	if secretFile, ok := lookup("AUTH_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read auth secret file: %w", err)
		}
		cfg.AuthSecret = strings.TrimSpace(string(content))
	}

	cfg.KafkaBrokers = splitList(brokers)

	if cfg.PendingOrderTTL < 0 {
		return nil, fmt.Errorf("pending order ttl must not be negative")
	}

	if cfg.ReserveRetries <= 0 {
		cfg.ReserveRetries = defaultReserveRetries
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.WorkerBatchSize <= 0 {
		cfg.WorkerBatchSize = defaultWorkerBatchSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.ExpiryInterval <= 0 {
		cfg.ExpiryInterval = defaultExpiryInterval
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.ReconcileGrace <= 0 {
		cfg.ReconcileGrace = defaultReconcileGrace
	}
	if cfg.OrderCacheTTL <= 0 {
		cfg.OrderCacheTTL = defaultOrderCacheTTL
	}

	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("auth secret must be provided")
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
