package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultCNBaseURL       = "https://public-operation-hkrpg.mihoyo.com"
	DefaultGlobalBaseURL   = "https://public-operation-hkrpg-sg.hoyoverse.com"
	DefaultAPITimeout      = 30 * time.Second
	DefaultRequestInterval = 200 * time.Millisecond
	DefaultPageSize        = 20
	DefaultRetryBackoff    = 1 * time.Second
	DefaultConcurrency     = 1
	DefaultDriver          = DriverPostgres
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultLockTTL         = 10 * time.Minute
	DefaultLockKeyPrefix   = "warplog:lock:"
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultScheduleSpec    = "@every 6h"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.CNBaseURL == "" {
		c.API.CNBaseURL = DefaultCNBaseURL
	}
	if c.API.GlobalBaseURL == "" {
		c.API.GlobalBaseURL = DefaultGlobalBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.RequestInterval == 0 {
		c.API.RequestInterval = DefaultRequestInterval
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = DefaultPageSize
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}
	if c.API.Concurrency == 0 {
		c.API.Concurrency = DefaultConcurrency
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	applyDBDefaults(&c.Database.Postgres)

	// Lock defaults
	if c.Lock.TTL == 0 {
		c.Lock.TTL = DefaultLockTTL
	}
	if c.Lock.KeyPrefix == "" {
		c.Lock.KeyPrefix = DefaultLockKeyPrefix
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Schedule.Spec == "" {
		c.Schedule.Spec = DefaultScheduleSpec
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
