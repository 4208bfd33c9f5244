package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	StoreDriver string
	LogLevel    string

	DatabaseURI string

	DynamoDBTable        string
	DynamoDBEndpoint     string
	DynamoDBPollInterval time.Duration
	AWSRegion            string

	TokenSecret string
	TokenTTL    time.Duration

	ProducerTimezone string
	Location         *time.Location

	TxMaxAttempts         int
	TxBackoff             time.Duration
	SubscriptionBuffer    int
	ResyncBackoff         time.Duration
	ReportRefreshInterval time.Duration
	WorkerPoolSize        int
	ShutdownTimeout       time.Duration
	CountApprovedRevenue  bool
}

const (
	defaultRunAddress            = ":8080"
	defaultStoreDriver           = DriverMemory
	defaultLogLevel              = "info"
	defaultTokenSecret           = "change-me-in-production"
	defaultTokenTTL              = 24 * time.Hour
	defaultProducerTimezone      = "UTC"
	defaultTxMaxAttempts         = 5
	defaultTxBackoff             = 20 * time.Millisecond
	defaultSubscriptionBuffer    = 64
	defaultResyncBackoff         = 500 * time.Millisecond
	defaultReportRefreshInterval = time.Minute
	defaultWorkerPoolSize        = 4
	defaultShutdownTimeout       = 10 * time.Second
	defaultDynamoDBPollInterval  = 2 * time.Second
	defaultAWSRegion             = "us-east-1"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:            getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		StoreDriver:           getString(lookup, "STORE_DRIVER", defaultStoreDriver),
		LogLevel:              getString(lookup, "LOG_LEVEL", defaultLogLevel),
		DatabaseURI:           getString(lookup, "DATABASE_URI", ""),
		DynamoDBTable:         getString(lookup, "DYNAMODB_TABLE", ""),
		DynamoDBEndpoint:      getString(lookup, "DYNAMODB_ENDPOINT", ""),
		DynamoDBPollInterval:  getDuration(lookup, "DYNAMODB_POLL_INTERVAL", defaultDynamoDBPollInterval),
		AWSRegion:             getString(lookup, "AWS_REGION", defaultAWSRegion),
		TokenSecret:           getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		TokenTTL:              getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		ProducerTimezone:      getString(lookup, "PRODUCER_TIMEZONE", defaultProducerTimezone),
		TxMaxAttempts:         getInt(lookup, "TX_MAX_ATTEMPTS", defaultTxMaxAttempts),
		TxBackoff:             getDuration(lookup, "TX_BACKOFF", defaultTxBackoff),
		SubscriptionBuffer:    getInt(lookup, "SUBSCRIPTION_BUFFER", defaultSubscriptionBuffer),
		ResyncBackoff:         getDuration(lookup, "RESYNC_BACKOFF", defaultResyncBackoff),
		ReportRefreshInterval: getDuration(lookup, "REPORT_REFRESH_INTERVAL", defaultReportRefreshInterval),
		WorkerPoolSize:        getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:       getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		CountApprovedRevenue:  getBool(lookup, "COUNT_APPROVED_REVENUE", false),
	}

	fs := flag.NewFlagSet("greenbasket", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		refreshStr  = cfg.ReportRefreshInterval.String()
		shutdownStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Document store driver: memory, postgres or dynamodb")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.DynamoDBTable, "dynamodb-table", cfg.DynamoDBTable, "DynamoDB documents table")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for verifying producer tokens")
	fs.StringVar(&cfg.ProducerTimezone, "tz", cfg.ProducerTimezone, "IANA zone for producer calendar days")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent report workers")
	fs.StringVar(&refreshStr, "refresh-interval", refreshStr, "Interval between report refreshes")
	fs.StringVar(&shutdownStr, "shutdown-timeout", shutdownStr, "Graceful shutdown timeout")
	fs.BoolVar(&cfg.CountApprovedRevenue, "count-approved", cfg.CountApprovedRevenue, "Count approved unpaid orders as revenue")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ReportRefreshInterval, err = time.ParseDuration(refreshStr); err != nil {
		return nil, fmt.Errorf("invalid refresh interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("TOKEN_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read token secret file: %w", err)
		}
		cfg.TokenSecret = strings.TrimSpace(string(content))
	}

	if cfg.Location, err = time.LoadLocation(cfg.ProducerTimezone); err != nil {
		return nil, fmt.Errorf("invalid producer timezone: %w", err)
	}

	cfg.normalize()

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURI == "" {
			return nil, fmt.Errorf("database URI must be provided for the postgres store")
		}
	case DriverDynamoDB:
		if cfg.DynamoDBTable == "" {
			return nil, fmt.Errorf("dynamodb table must be provided for the dynamodb store")
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func (c *Config) normalize() {
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.TxMaxAttempts <= 0 {
		c.TxMaxAttempts = defaultTxMaxAttempts
	}
	if c.TxBackoff <= 0 {
		c.TxBackoff = defaultTxBackoff
	}
	if c.SubscriptionBuffer <= 0 {
		c.SubscriptionBuffer = defaultSubscriptionBuffer
	}
	if c.ResyncBackoff <= 0 {
		c.ResyncBackoff = defaultResyncBackoff
	}
	if c.ReportRefreshInterval <= 0 {
		c.ReportRefreshInterval = defaultReportRefreshInterval
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = defaultWorkerPoolSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.DynamoDBPollInterval <= 0 {
		c.DynamoDBPollInterval = defaultDynamoDBPollInterval
	}
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

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
