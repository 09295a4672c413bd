package config

import "time"

// Config is the root configuration for warplog.
type Config struct {
	API      APIConfig       `yaml:"api"`
	Database DatabaseConfig  `yaml:"database"`
	Redis    RedisConfig     `yaml:"redis"`
	Lock     LockConfig      `yaml:"lock"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Schedule ScheduleConfig  `yaml:"schedule"`
	Accounts []AccountConfig `yaml:"accounts"`
	Log      LogConfig       `yaml:"log"`
}

// APIConfig holds upstream gacha API settings.
type APIConfig struct {
	CNBaseURL            string        `yaml:"cn_base_url"`
	GlobalBaseURL        string        `yaml:"global_base_url"`
	Timeout              time.Duration `yaml:"timeout"`
	RequestInterval      time.Duration `yaml:"request_interval"` // Minimum delay between requests
	PageSize             int           `yaml:"page_size"`
	MaxRetries           int           `yaml:"max_retries"` // 0 disables retries
	RetryBackoff         time.Duration `yaml:"retry_backoff"`
	Concurrency          int           `yaml:"concurrency"` // Pools primed in parallel
	IncludeCollaboration bool          `yaml:"include_collaboration"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig selects and configures record storage.
type DatabaseConfig struct {
	Driver   string   `yaml:"driver"`
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig enables the distributed account lock. Empty Addr means the
// in-process lock is used.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LockConfig holds per-account lock settings.
type LockConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// ScheduleConfig drives periodic incremental syncs in serve mode.
type ScheduleConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Spec       string        `yaml:"spec"` // Cron spec, e.g. "@every 6h"
	RunOnStart bool          `yaml:"run_on_start"`
	Timeout    time.Duration `yaml:"timeout"` // Per-account, 0 for none
}

// AccountConfig describes one account and where its capture URL comes from.
type AccountConfig struct {
	UID        string `yaml:"uid"`
	CaptureURL string `yaml:"capture_url"`
	CachePath  string `yaml:"cache_path"` // Game web cache or any text file holding the URL
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Account returns the configured account with uid.
func (c *Config) Account(uid string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.UID == uid {
			return a, true
		}
	}
	return AccountConfig{}, false
}
