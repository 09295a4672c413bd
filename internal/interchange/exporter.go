package interchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rickgao/warplog/internal/model"
	"github.com/rickgao/warplog/internal/store"
	"github.com/rickgao/warplog/internal/version"
)

// ErrNoRecords is returned when exporting an account with nothing stored.
var ErrNoRecords = errors.New("no records stored for account")

type exportHeader struct {
	time       string
	timestamp  int64
	app        string
	appVersion string
}

// Exporter renders stored records as interchange documents.
type Exporter struct {
	repo       store.Repository
	app        string
	appVersion string
	now        func() time.Time
}

// NewExporter creates an Exporter that stamps documents with this build's
// name and version. A nil now uses time.Now.
func NewExporter(repo store.Repository, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{
		repo:       repo,
		app:        version.AppName,
		appVersion: version.Version,
		now:        now,
	}
}

// SRGF exports every stored record of uid.
func (e *Exporter) SRGF(ctx context.Context, uid string) (*SRGFDocument, error) {
	items, batch, err := e.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return newSRGF(items, batch, e.header(batch.RegionTimeZone)), nil
}

// UIGF exports every stored record of uid.
func (e *Exporter) UIGF(ctx context.Context, uid string) (*UIGFDocument, error) {
	items, batch, err := e.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return newUIGF(items, batch, e.header(batch.RegionTimeZone)), nil
}

// Export writes uid's records to w as indented JSON in format f.
func (e *Exporter) Export(ctx context.Context, w io.Writer, uid string, f Format) error {
	var (
		doc any
		err error
	)
	switch f {
	case FormatSRGF:
		doc, err = e.SRGF(ctx, uid)
	case FormatUIGF:
		doc, err = e.UIGF(ctx, uid)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}

// load returns the account's records with the latest batch, which carries
// the timezone and language the records are stored in.
func (e *Exporter) load(ctx context.Context, uid string) ([]model.GachaRecordItem, model.GachaRecordBatch, error) {
	batch, err := e.repo.LatestBatch(ctx, uid)
	if err != nil {
		return nil, model.GachaRecordBatch{}, err
	}
	if batch == nil {
		return nil, model.GachaRecordBatch{}, fmt.Errorf("%w %s", ErrNoRecords, uid)
	}

	items, err := e.repo.AllItems(ctx, uid)
	if err != nil {
		return nil, model.GachaRecordBatch{}, err
	}
	return items, *batch, nil
}

func (e *Exporter) header(tz int) exportHeader {
	now := e.now()
	return exportHeader{
		time:       now.In(model.FixedZone(tz)).Format(model.TimeLayout),
		timestamp:  now.Unix(),
		app:        e.app,
		appVersion: e.appVersion,
	}
}
