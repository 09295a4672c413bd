package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.PageSize < 1 {
		return errors.New("api.page_size must be >= 1")
	}
	if c.API.RequestInterval < 0 {
		return errors.New("api.request_interval must be >= 0")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.Concurrency < 1 {
		return errors.New("api.concurrency must be >= 1")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}

	if c.Lock.TTL <= 0 {
		return errors.New("lock.ttl must be > 0")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if c.Schedule.Enabled && c.Schedule.Spec == "" {
		return errors.New("schedule.spec is required")
	}
	if c.Schedule.Enabled {
		if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
			return fmt.Errorf("schedule.spec %q is invalid: %w", c.Schedule.Spec, err)
		}
	}

	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.UID == "" {
			return fmt.Errorf("accounts[%d].uid is required", i)
		}
		if seen[a.UID] {
			return fmt.Errorf("accounts[%d].uid %q is duplicated", i, a.UID)
		}
		seen[a.UID] = true
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
