package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rickgao/warplog/internal/syncer"
)

// Refresher refreshes one account.
type Refresher interface {
	Refresh(ctx context.Context, uid string, mode syncer.Mode) (syncer.Result, error)
}

// Config holds scheduler configuration.
type Config struct {
	Spec        string        // Cron spec or descriptor (default: "@every 6h")
	Concurrency int           // Accounts refreshed at once (default: 1)
	Timeout     time.Duration // Per-account timeout, 0 for none
	RunOnStart  bool          // Run a cycle immediately on Start
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Spec:        "@every 6h",
		Concurrency: 1,
	}
}

// Summary reports one cycle.
type Summary struct {
	Accounts  int
	Succeeded int
	Failed    int
	Inserted  int
}

// Scheduler runs incremental refreshes of a fixed account list on a cron
// schedule. Failures are logged and never stop the schedule.
type Scheduler struct {
	cfg       Config
	refresher Refresher
	accounts  []string
	logger    *slog.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler.
func New(cfg Config, refresher Refresher, accounts []string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		cfg:       cfg,
		refresher: refresher,
		accounts:  accounts,
		logger:    logger,
	}
}

// Start registers the cycle with cron and starts it. A cycle still running
// when the next one is due is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.RunOnce(s.ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("parse schedule %q: %w", s.cfg.Spec, err)
	}
	s.cron.Start()

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.RunOnce(s.ctx)
		}()
	}

	s.logger.Info("sync scheduler started",
		"spec", s.cfg.Spec,
		"accounts", len(s.accounts),
		"concurrency", s.cfg.Concurrency,
	)
	return nil
}

// Stop cancels running refreshes and waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce refreshes every account incrementally with bounded concurrency.
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	start := time.Now()
	sum := Summary{Accounts: len(s.accounts)}
	if len(s.accounts) == 0 {
		s.logger.Debug("no accounts to refresh")
		return sum
	}

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	var succeeded, failed, inserted atomic.Int64

	for _, uid := range s.accounts {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				failed.Add(1)
				return
			}

			res, err := s.refresh(ctx, uid)
			if err != nil {
				s.logger.Warn("scheduled refresh failed",
					"uid", uid,
					"error", err,
				)
				failed.Add(1)
				return
			}

			succeeded.Add(1)
			inserted.Add(int64(res.Inserted))
		}(uid)
	}

	wg.Wait()

	sum.Succeeded = int(succeeded.Load())
	sum.Failed = int(failed.Load())
	sum.Inserted = int(inserted.Load())

	s.logger.Info("sync cycle complete",
		"accounts", sum.Accounts,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"inserted", sum.Inserted,
		"duration", time.Since(start),
	)
	return sum
}

func (s *Scheduler) refresh(ctx context.Context, uid string) (syncer.Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.refresher.Refresh(ctx, uid, syncer.ModeIncremental)
}
