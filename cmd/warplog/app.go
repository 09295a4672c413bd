package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rickgao/warplog/internal/api"
	"github.com/rickgao/warplog/internal/capture"
	"github.com/rickgao/warplog/internal/config"
	"github.com/rickgao/warplog/internal/database"
	"github.com/rickgao/warplog/internal/fetcher"
	"github.com/rickgao/warplog/internal/interchange"
	"github.com/rickgao/warplog/internal/lock"
	"github.com/rickgao/warplog/internal/metrics"
	"github.com/rickgao/warplog/internal/model"
	"github.com/rickgao/warplog/internal/store"
	"github.com/rickgao/warplog/internal/syncer"
)

// app holds every collaborator built from the config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool // nil for the memory driver
	redis    *goredis.Client
	repo     store.Repository
	locker   lock.Locker
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db := cfg.Database.Postgres
		logger.Info("connecting to database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)
		pool, err := database.Connect(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		a.repo = store.NewPostgres(pool, logger)
	case config.DriverMemory:
		logger.Warn("using in-memory store, records are lost on exit")
		a.repo = store.NewMemory()
	}

	if cfg.Redis.Addr != "" {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.locker = lock.NewRedis(a.redis, cfg.Lock.KeyPrefix, cfg.Lock.TTL)
		logger.Info("using redis account lock", "addr", cfg.Redis.Addr)
	} else {
		a.locker = lock.NewLocal()
	}

	return a, nil
}

// Close releases connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *app) pools() []model.GachaType {
	pools := slices.Clone(model.StandardPools)
	if a.cfg.API.IncludeCollaboration {
		pools = append(pools, model.CollaborationPools...)
	}
	return pools
}

func (a *app) apiClient() *api.Client {
	return api.NewClient(
		api.WithBaseURL(api.GameBizCN, a.cfg.API.CNBaseURL),
		api.WithBaseURL(api.GameBizGlobal, a.cfg.API.GlobalBaseURL),
		api.WithTimeout(a.cfg.API.Timeout),
		api.WithRetries(a.cfg.API.MaxRetries, a.cfg.API.RetryBackoff),
		api.WithLogger(a.logger),
	)
}

func (a *app) coordinator() *syncer.Coordinator {
	factory := syncer.NewFetcherFactory(a.apiClient(),
		fetcher.WithPools(a.pools()),
		fetcher.WithPageSize(a.cfg.API.PageSize),
		fetcher.WithRequestInterval(a.cfg.API.RequestInterval),
		fetcher.WithPrimeConcurrency(a.cfg.API.Concurrency),
		fetcher.WithObserver(a.metrics),
		fetcher.WithLogger(a.logger),
	)
	return syncer.New(a.repo,
		capture.FromAccounts(a.cfg.Accounts, a.logger),
		factory,
		syncer.WithLocker(a.locker),
		syncer.WithMetrics(a.metrics),
		syncer.WithLogger(a.logger),
	)
}

func (a *app) importer() *interchange.Importer {
	return interchange.NewImporter(a.repo,
		interchange.WithImportLocker(a.locker),
		interchange.WithImportMetrics(a.metrics),
		interchange.WithImportLogger(a.logger),
	)
}

func (a *app) accountUIDs() []string {
	uids := make([]string, 0, len(a.cfg.Accounts))
	for _, acct := range a.cfg.Accounts {
		uids = append(uids, acct.UID)
	}
	return uids
}
