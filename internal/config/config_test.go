package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
api:
  request_interval: 500ms
  include_collaboration: true
database:
  postgres:
    host: localhost
    port: 5432
    name: warplog
    user: testuser
    password: testpass
accounts:
  - uid: "100000001"
    capture_url: https://example.com/?authkey=x
  - uid: "100000002"
    cache_path: /games/StarRail_Data/webCaches/Cache/Cache_Data/data_2
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.RequestInterval != 500*time.Millisecond {
		t.Errorf("API.RequestInterval = %v, want %v", cfg.API.RequestInterval, 500*time.Millisecond)
	}
	if !cfg.API.IncludeCollaboration {
		t.Error("API.IncludeCollaboration = false, want true")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("len(Accounts) = %d, want 2", len(cfg.Accounts))
	}

	acct, ok := cfg.Account("100000002")
	if !ok {
		t.Fatal("Account(100000002) not found")
	}
	if acct.CachePath == "" {
		t.Error("Account(100000002).CachePath is empty")
	}
	if _, ok := cfg.Account("999"); ok {
		t.Error("Account(999) should not be found")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
database:
  postgres:
    host: localhost
    name: warplog
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDotEnv(t *testing.T) {
	const key = "WARPLOG_TEST_REDIS_ADDR"
	t.Setenv(key, "")
	os.Unsetenv(key)

	yaml := `
redis:
  addr: ${WARPLOG_TEST_REDIS_ADDR}
`
	path := writeTempFile(t, yaml)
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envPath, []byte(key+"=localhost:6379\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want %q", cfg.Redis.Addr, "localhost:6379")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
database:
  postgres:
    host: localhost
    name: warplog
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.CNBaseURL != DefaultCNBaseURL {
		t.Errorf("API.CNBaseURL = %q, want default %q", cfg.API.CNBaseURL, DefaultCNBaseURL)
	}
	if cfg.API.RequestInterval != DefaultRequestInterval {
		t.Errorf("API.RequestInterval = %v, want default %v", cfg.API.RequestInterval, DefaultRequestInterval)
	}
	if cfg.API.PageSize != DefaultPageSize {
		t.Errorf("API.PageSize = %d, want default %d", cfg.API.PageSize, DefaultPageSize)
	}
	if cfg.API.MaxRetries != 0 {
		t.Errorf("API.MaxRetries = %d, want 0", cfg.API.MaxRetries)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want default %q", cfg.Database.Driver, DriverPostgres)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Database.Postgres.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Postgres.MaxConns = %d, want default %d", cfg.Database.Postgres.MaxConns, DefaultMaxConns)
	}
	if cfg.Lock.TTL != DefaultLockTTL {
		t.Errorf("Lock.TTL = %v, want default %v", cfg.Lock.TTL, DefaultLockTTL)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, DefaultLogFormat)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "database:\n  driver: sqlite\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	want := `validate config: database.driver must be "postgres" or "memory", got "sqlite"`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
		cfg.Accounts = []AccountConfig{{UID: "100000001"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing postgres host",
			mutate:  func(c *Config) { c.Database.Postgres.Host = "" },
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "missing postgres password",
			mutate:  func(c *Config) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *Config) { c.Database.Postgres.MinConns = 20 },
			wantErr: "database.postgres.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name: "memory driver skips postgres",
			mutate: func(c *Config) {
				c.Database.Driver = DriverMemory
				c.Database.Postgres = DBConfig{}
			},
			wantErr: "",
		},
		{
			name:    "zero page size",
			mutate:  func(c *Config) { c.API.PageSize = 0 },
			wantErr: "api.page_size must be >= 1",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.API.MaxRetries = -1 },
			wantErr: "api.max_retries must be >= 0",
		},
		{
			name:    "missing account uid",
			mutate:  func(c *Config) { c.Accounts = append(c.Accounts, AccountConfig{CaptureURL: "x"}) },
			wantErr: "accounts[1].uid is required",
		},
		{
			name:    "duplicate account uid",
			mutate:  func(c *Config) { c.Accounts = append(c.Accounts, AccountConfig{UID: "100000001"}) },
			wantErr: `accounts[1].uid "100000001" is duplicated`,
		},
		{
			name: "metrics port out of range",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 70000
			},
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
		{
			name: "schedule without spec",
			mutate: func(c *Config) {
				c.Schedule.Enabled = true
				c.Schedule.Spec = ""
			},
			wantErr: "schedule.spec is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: `log.level must be one of debug, info, warn, error, got "trace"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestValidate_ScheduleSpec(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = DriverMemory
	cfg.Schedule.Enabled = true

	for _, spec := range []string{"@every 6h", "0 */4 * * *", "@daily"} {
		cfg.Schedule.Spec = spec
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with spec %q: unexpected error: %v", spec, err)
		}
	}

	cfg.Schedule.Spec = "every six hours"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for bad spec, got nil")
	}
	if !strings.HasPrefix(err.Error(), `schedule.spec "every six hours" is invalid`) {
		t.Errorf("Validate() error = %q", err.Error())
	}
}
