package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/warplog/internal/fetcher"
	"github.com/rickgao/warplog/internal/lock"
	"github.com/rickgao/warplog/internal/metrics"
	"github.com/rickgao/warplog/internal/model"
	"github.com/rickgao/warplog/internal/paginator"
	"github.com/rickgao/warplog/internal/store"
	"github.com/rickgao/warplog/internal/version"
)

// ErrNoCaptureURL is returned when no capture URL is known for the account.
var ErrNoCaptureURL = errors.New("no capture url for account")

// ErrIdentityMismatch is matched by *IdentityMismatchError.
var ErrIdentityMismatch = errors.New("capture url belongs to another account")

// IdentityMismatchError reports a capture URL that resolves to an account
// other than the one being refreshed.
type IdentityMismatchError struct {
	Expected string
	Actual   string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("capture url belongs to uid %s, expected %s", e.Actual, e.Expected)
}

func (e *IdentityMismatchError) Is(target error) bool {
	return target == ErrIdentityMismatch
}

// Mode selects how much history a refresh reads.
type Mode int

const (
	// ModeIncremental stops at the newest stored record.
	ModeIncremental Mode = iota
	// ModeFull reads every pool to the end and relies on the store to skip
	// known ids.
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeIncremental:
		return "incremental"
	case ModeFull:
		return "full"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "incremental" or "full".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "incremental", "":
		return ModeIncremental, nil
	case "full":
		return ModeFull, nil
	}
	return 0, fmt.Errorf("unknown sync mode %q", s)
}

// Result summarizes one refresh.
type Result struct {
	Fetched  int // Records received after trimming
	Inserted int // Records newly persisted
	BatchID  int // Batch written, 0 if none
}

// URLProvider supplies the capture URL for an account.
type URLProvider interface {
	CaptureURL(ctx context.Context, uid string) (string, error)
}

// RecordFetcher is the part of fetcher.Fetcher the coordinator uses.
type RecordFetcher interface {
	URLInfo(ctx context.Context) (fetcher.URLInfo, error)
	FetchGachaRecord(pools []model.GachaType, stopID int64) paginator.Paginator[model.GachaRecordItem]
}

// FetcherFactory builds a fetcher for a capture URL. It must reject an
// invalid URL without any network call.
type FetcherFactory func(captureURL string) (RecordFetcher, error)

// NewFetcherFactory returns a factory building fetcher.Fetcher values over
// client with opts.
func NewFetcherFactory(client fetcher.Client, opts ...fetcher.Option) FetcherFactory {
	return func(captureURL string) (RecordFetcher, error) {
		return fetcher.New(client, captureURL, opts...)
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLocker sets the per-account locker. The default is in-process.
func WithLocker(l lock.Locker) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.locker = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithSource overrides the batch source tag.
func WithSource(source string) Option {
	return func(c *Coordinator) {
		if source != "" {
			c.source = source
		}
	}
}

// WithPools restricts refreshes to pools. Empty means the fetcher's default.
func WithPools(pools []model.GachaType) Option {
	return func(c *Coordinator) {
		c.pools = pools
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used for batch timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator runs refreshes: fetch new records for an account and persist
// them as one batch.
type Coordinator struct {
	repo       store.Repository
	urls       URLProvider
	newFetcher FetcherFactory
	locker     lock.Locker
	metrics    *metrics.Metrics
	source     string
	pools      []model.GachaType
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Coordinator.
func New(repo store.Repository, urls URLProvider, newFetcher FetcherFactory, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:       repo,
		urls:       urls,
		newFetcher: newFetcher,
		locker:     lock.NewLocal(),
		source:     version.Source(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches records for uid newer than what is stored (or all of them
// under ModeFull) and persists them. Nothing is written unless the whole
// fetch succeeds.
func (c *Coordinator) Refresh(ctx context.Context, uid string, mode Mode) (Result, error) {
	start := c.now()
	logger := c.logger.With("uid", uid, "mode", mode.String(), "run_id", uuid.NewString())

	res, err := c.refresh(ctx, logger, uid, mode)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		logger.Error("refresh failed", "error", err)
	case res.Inserted == 0:
		outcome = "noop"
		logger.Info("refresh found nothing new", "fetched", res.Fetched)
	default:
		logger.Info("refresh complete",
			"fetched", res.Fetched,
			"inserted", res.Inserted,
			"batch_id", res.BatchID,
		)
	}
	c.metrics.ObserveSync(mode.String(), outcome, c.now().Sub(start))
	c.metrics.AddInserted("sync", res.Inserted)

	return res, err
}

func (c *Coordinator) refresh(ctx context.Context, logger *slog.Logger, uid string, mode Mode) (Result, error) {
	release, err := c.locker.TryLock(ctx, uid)
	if err != nil {
		return Result{}, fmt.Errorf("lock account %s: %w", uid, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release lock", "error", err)
		}
	}()

	captureURL, err := c.urls.CaptureURL(ctx, uid)
	if err != nil {
		return Result{}, fmt.Errorf("get capture url: %w", err)
	}
	if captureURL == "" {
		return Result{}, ErrNoCaptureURL
	}

	f, err := c.newFetcher(captureURL)
	if err != nil {
		return Result{}, err
	}

	info, err := f.URLInfo(ctx)
	if err != nil {
		return Result{}, err
	}
	if info.Empty() {
		logger.Info("capture url has no records")
		return Result{}, nil
	}
	if info.UID != uid {
		return Result{}, &IdentityMismatchError{Expected: uid, Actual: info.UID}
	}

	var latestID int64
	if mode == ModeIncremental {
		latest, err := c.repo.LatestItem(ctx, uid)
		if err != nil {
			return Result{}, err
		}
		if latest != nil {
			latestID = latest.NumericID()
		}
	}

	items, err := paginator.Flatten(ctx, f.FetchGachaRecord(c.pools, latestID))
	if err != nil {
		return Result{}, fmt.Errorf("fetch records: %w", err)
	}
	slices.Reverse(items)
	items = trimAfter(items, latestID)

	res := Result{Fetched: len(items)}
	if len(items) == 0 {
		return res, nil
	}

	tz, err := c.pinTimezone(ctx, uid, info.RegionTimeZone, items)
	if err != nil {
		return Result{}, err
	}

	batchID, err := c.repo.NextBatchID(ctx, uid)
	if err != nil {
		return Result{}, err
	}

	// Last cancellation point: a cancelled refresh never writes.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	batch := model.GachaRecordBatch{
		BatchID:        batchID,
		UID:            uid,
		Lang:           info.Lang,
		RegionTimeZone: tz,
		Source:         c.source,
		Timestamp:      c.now().Unix(),
	}
	inserted, err := c.repo.InsertGachaRecords(ctx, items, batch, store.InsertIgnore)
	if err != nil {
		return Result{}, err
	}

	res.Inserted = inserted
	if inserted > 0 {
		res.BatchID = batchID
	}
	return res, nil
}

// pinTimezone rewrites item times from fetched to the timezone of the latest
// stored batch and returns the timezone the items end up in.
func (c *Coordinator) pinTimezone(ctx context.Context, uid string, fetched int, items []model.GachaRecordItem) (int, error) {
	latest, err := c.repo.LatestBatch(ctx, uid)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return fetched, nil
	}
	if err := model.ConvertTimes(items, fetched, latest.RegionTimeZone); err != nil {
		return 0, err
	}
	return latest.RegionTimeZone, nil
}

// trimAfter returns the suffix of ascending items with ids above id.
func trimAfter(items []model.GachaRecordItem, id int64) []model.GachaRecordItem {
	if id <= 0 {
		return items
	}
	i := sort.Search(len(items), func(i int) bool {
		return items[i].NumericID() > id
	})
	return items[i:]
}
