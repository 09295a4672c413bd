package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/warplog/internal/api"
	"github.com/rickgao/warplog/internal/model"
	"github.com/rickgao/warplog/internal/paginator"
)

// DefaultRequestInterval is the minimum delay between two upstream requests.
const DefaultRequestInterval = 200 * time.Millisecond

// Client is the upstream surface the fetcher needs.
type Client interface {
	GetGachaLog(ctx context.Context, cu api.CaptureURL, gachaType model.GachaType, size int, endID int64) (*api.GachaLogPage, error)
}

// PageObserver is notified of every page fetched.
type PageObserver interface {
	ObservePage(pool model.GachaType, items int)
}

// URLInfo identifies the account behind a capture URL.
type URLInfo struct {
	UID            string
	Lang           string
	RegionTimeZone int
}

// Empty reports whether no pool returned any record.
func (i URLInfo) Empty() bool {
	return i.UID == ""
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPools sets the pools fetched when none are given explicitly.
func WithPools(pools []model.GachaType) Option {
	return func(f *Fetcher) {
		if len(pools) > 0 {
			f.pools = pools
		}
	}
}

// WithPageSize sets the page size requested from the upstream.
func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithRequestInterval sets the minimum delay between requests. Zero disables
// pacing.
func WithRequestInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		f.interval = d
	}
}

// WithPrimeConcurrency fetches the first page of up to n pools in parallel.
func WithPrimeConcurrency(n int) Option {
	return func(f *Fetcher) {
		f.concurrency = n
	}
}

// WithObserver sets a page observer.
func WithObserver(o PageObserver) Option {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher reads one account's records through a validated capture URL.
// All requests issued by one Fetcher share a single pacer.
type Fetcher struct {
	client      Client
	capture     api.CaptureURL
	pools       []model.GachaType
	pageSize    int
	interval    time.Duration
	concurrency int
	pacer       *paginator.Pacer
	observer    PageObserver
	logger      *slog.Logger
}

// New validates captureURL and returns a Fetcher. No request is made.
func New(client Client, captureURL string, opts ...Option) (*Fetcher, error) {
	cu, err := api.ParseCaptureURL(captureURL)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		client:      client,
		capture:     cu,
		pools:       model.StandardPools,
		pageSize:    paginator.DefaultPageSize,
		interval:    DefaultRequestInterval,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.pacer = paginator.NewPacer(f.interval)

	return f, nil
}

// Capture returns the validated capture URL parameters.
func (f *Fetcher) Capture() api.CaptureURL {
	return f.capture
}

// URLInfo probes each pool with a single-item page and reports the account
// of the first non-empty one. If every pool is empty the result is empty and
// the error nil.
func (f *Fetcher) URLInfo(ctx context.Context) (URLInfo, error) {
	for _, pool := range f.pools {
		if err := f.pacer.Wait(ctx); err != nil {
			return URLInfo{}, err
		}

		page, err := f.client.GetGachaLog(ctx, f.capture, pool, 1, 0)
		if err != nil {
			return URLInfo{}, fmt.Errorf("probe pool %s: %w", pool, err)
		}
		if len(page.List) == 0 {
			continue
		}

		info := URLInfo{
			UID:            page.List[0].UID,
			Lang:           page.List[0].Lang,
			RegionTimeZone: page.RegionTimeZone,
		}
		f.logger.Debug("resolved url info",
			"uid", info.UID,
			"lang", info.Lang,
			"region_time_zone", info.RegionTimeZone,
		)
		return info, nil
	}

	return URLInfo{}, nil
}

// FetchGachaRecord returns a lazy paginator over pools (the configured pools
// if empty), newest first. With stopID > 0 only records with a larger id are
// yielded.
func (f *Fetcher) FetchGachaRecord(pools []model.GachaType, stopID int64) paginator.Paginator[model.GachaRecordItem] {
	if len(pools) == 0 {
		pools = f.pools
	}

	sources := make([]paginator.Paginator[model.GachaRecordItem], 0, len(pools))
	for _, pool := range pools {
		sources = append(sources, paginator.NewCursorPaginator(
			f.getter(pool),
			model.GachaRecordItem.NumericID,
			paginator.WithPageSize(f.pageSize),
			paginator.WithStopID(stopID),
			paginator.WithPacer(f.pacer),
		))
	}

	if len(sources) == 1 {
		return sources[0]
	}

	return paginator.NewMergedPaginator(
		sources,
		func(item model.GachaRecordItem) int64 { return -item.NumericID() },
		paginator.WithMergedPageSize(f.pageSize),
		paginator.WithPrimeConcurrency(f.concurrency),
	)
}

// getter adapts the client to a cursor getter for one pool.
func (f *Fetcher) getter(pool model.GachaType) paginator.Getter[model.GachaRecordItem] {
	return func(ctx context.Context, endID int64) ([]model.GachaRecordItem, error) {
		page, err := f.client.GetGachaLog(ctx, f.capture, pool, f.pageSize, endID)
		if err != nil {
			return nil, err
		}
		if f.observer != nil {
			f.observer.ObservePage(pool, len(page.List))
		}
		items := api.ConvertItems(page.List)
		for _, item := range items {
			if _, err := model.ParseID(item.ID); err != nil {
				return nil, fmt.Errorf("pool %s: %w", pool, err)
			}
		}
		return items, nil
	}
}
