package interchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/warplog/internal/lock"
	"github.com/rickgao/warplog/internal/metrics"
	"github.com/rickgao/warplog/internal/model"
	"github.com/rickgao/warplog/internal/store"
)

// ErrNoMatchingAccount is returned when an archive holds no records for the
// account being imported.
var ErrNoMatchingAccount = errors.New("archive has no records for account")

// ImportResult summarizes one import.
type ImportResult struct {
	Format   Format
	Total    int // Records in the archive for the account
	Inserted int // Records not already stored
	BatchID  int // Batch written, 0 if none
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithImportLocker sets the per-account locker. Share it with the syncer so
// imports and refreshes of one account never overlap.
func WithImportLocker(l lock.Locker) ImporterOption {
	return func(i *Importer) {
		if l != nil {
			i.locker = l
		}
	}
}

// WithImportMetrics sets the metrics sink.
func WithImportMetrics(m *metrics.Metrics) ImporterOption {
	return func(i *Importer) {
		i.metrics = m
	}
}

// WithImportLogger sets the logger.
func WithImportLogger(logger *slog.Logger) ImporterOption {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithImportClock sets the clock used for batch timestamps.
func WithImportClock(now func() time.Time) ImporterOption {
	return func(i *Importer) {
		if now != nil {
			i.now = now
		}
	}
}

// Importer merges SRGF and UIGF archives into the store.
type Importer struct {
	repo    store.Repository
	locker  lock.Locker
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewImporter creates an Importer.
func NewImporter(repo store.Repository, opts ...ImporterOption) *Importer {
	i := &Importer{
		repo:   repo,
		locker: lock.NewLocal(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import decodes data and stores the records belonging to uid as one batch.
// Times are re-expressed in the timezone of the account's latest batch, and
// records already stored are skipped.
func (i *Importer) Import(ctx context.Context, uid string, data []byte) (ImportResult, error) {
	archives, err := Decode(data)
	if err != nil {
		return ImportResult{}, err
	}

	var archive *Archive
	for idx := range archives {
		if archives[idx].UID == uid {
			archive = &archives[idx]
			break
		}
	}
	if archive == nil {
		return ImportResult{}, fmt.Errorf("%w %s", ErrNoMatchingAccount, uid)
	}

	res, err := i.importArchive(ctx, *archive)
	if err != nil {
		return ImportResult{}, err
	}
	i.metrics.AddInserted("import", res.Inserted)

	i.logger.Info("archive imported",
		"uid", uid,
		"format", string(res.Format),
		"source", archive.Source(),
		"total", res.Total,
		"inserted", res.Inserted,
		"batch_id", res.BatchID,
	)
	return res, nil
}

func (i *Importer) importArchive(ctx context.Context, a Archive) (ImportResult, error) {
	res := ImportResult{Format: a.Format, Total: len(a.Items)}
	if len(a.Items) == 0 {
		return res, nil
	}

	release, err := i.locker.TryLock(ctx, a.UID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("lock account %s: %w", a.UID, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			i.logger.Warn("release lock", "uid", a.UID, "error", err)
		}
	}()

	tz := a.TimeZone
	latest, err := i.repo.LatestBatch(ctx, a.UID)
	if err != nil {
		return ImportResult{}, err
	}
	if latest != nil {
		tz = latest.RegionTimeZone
	}
	if err := model.ConvertTimes(a.Items, a.TimeZone, tz); err != nil {
		return ImportResult{}, err
	}

	batchID, err := i.repo.NextBatchID(ctx, a.UID)
	if err != nil {
		return ImportResult{}, err
	}

	batch := model.GachaRecordBatch{
		BatchID:        batchID,
		UID:            a.UID,
		Lang:           a.Lang,
		RegionTimeZone: tz,
		Source:         a.Source(),
		Timestamp:      i.now().Unix(),
	}
	inserted, err := i.repo.InsertGachaRecords(ctx, a.Items, batch, store.InsertIgnore)
	if err != nil {
		return ImportResult{}, err
	}

	res.Inserted = inserted
	if inserted > 0 {
		res.BatchID = batchID
	}
	return res, nil
}
