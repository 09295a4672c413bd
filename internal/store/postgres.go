package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/warplog/internal/model"
)

// Table and column mapping.
const (
	itemTable  = "gacha_record_item"
	batchTable = "gacha_record_batch"
)

var itemColumns = []string{
	"uid", "id", "gacha_id", "gacha_type", "item_id", "count",
	"time", "name", "lang", "item_type", "rank_type", "batch_id",
}

var batchColumns = []string{
	"uid", "batch_id", "lang", "region_time_zone", "source", "count", "timestamp",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Repository backed by PostgreSQL.
type Postgres struct {
	db     DB
	logger *slog.Logger
}

// NewPostgres creates a repository over db.
func NewPostgres(db DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

var _ Repository = (*Postgres)(nil)

// withTx runs fn in a transaction, rolling back on error or panic.
func (p *Postgres) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) InsertGachaRecords(ctx context.Context, items []model.GachaRecordItem, batch model.GachaRecordBatch, mode InsertMode) (int, error) {
	if err := checkBatch(items, batch); err != nil {
		return 0, err
	}

	var inserted int
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		n, err := p.insertItems(ctx, tx, items, batch.BatchID, mode)
		if err != nil {
			return err
		}
		inserted = n
		if n == 0 {
			return nil
		}

		batch.Count = n
		query, args, err := psql.Insert(batchTable).
			Columns(batchColumns...).
			Values(batch.UID, batch.BatchID, batch.Lang, batch.RegionTimeZone, batch.Source, batch.Count, batch.Timestamp).
			ToSql()
		if err != nil {
			return fmt.Errorf("build batch insert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, persistErr("insert gacha records", err)
	}

	p.logger.Debug("inserted gacha records",
		"uid", batch.UID,
		"batch_id", batch.BatchID,
		"offered", len(items),
		"inserted", inserted,
		"mode", mode.String(),
	)
	return inserted, nil
}

// insertItems queues one INSERT per item in a pgx.Batch and counts the rows
// actually written.
func (p *Postgres) insertItems(ctx context.Context, tx pgx.Tx, items []model.GachaRecordItem, batchID int, mode InsertMode) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, item := range items {
		ins := psql.Insert(itemTable).
			Columns(itemColumns...).
			Values(
				item.UID, item.NumericID(), item.GachaID, string(item.GachaType), item.ItemID, item.Count,
				item.Time, item.Name, item.Lang, item.ItemType, item.RankType, batchID,
			)
		if mode == InsertIgnore {
			ins = ins.Suffix("ON CONFLICT (uid, id) DO NOTHING")
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return 0, fmt.Errorf("build item insert: %w", err)
		}
		b.Queue(query, args...)
	}

	results := tx.SendBatch(ctx, b)
	inserted := 0
	for _, item := range items {
		ct, err := results.Exec()
		if err != nil {
			results.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return 0, fmt.Errorf("%w: id %s", ErrDuplicate, item.ID)
			}
			return 0, fmt.Errorf("insert item %s: %w", item.ID, err)
		}
		inserted += int(ct.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	return inserted, nil
}

func (p *Postgres) LatestItem(ctx context.Context, uid string) (*model.GachaRecordItem, error) {
	query, args, err := psql.Select(itemColumns...).
		From(itemTable).
		Where(sq.Eq{"uid": uid}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items, err := p.queryItems(ctx, query, args...)
	if err != nil {
		return nil, persistErr("latest item", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (p *Postgres) AllItems(ctx context.Context, uid string) ([]model.GachaRecordItem, error) {
	query, args, err := psql.Select(itemColumns...).
		From(itemTable).
		Where(sq.Eq{"uid": uid}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items, err := p.queryItems(ctx, query, args...)
	if err != nil {
		return nil, persistErr("all items", err)
	}
	return items, nil
}

func (p *Postgres) queryItems(ctx context.Context, query string, args ...any) ([]model.GachaRecordItem, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.GachaRecordItem
	for rows.Next() {
		var (
			item      model.GachaRecordItem
			id        int64
			gachaType string
			batchID   int
		)
		if err := rows.Scan(
			&item.UID, &id, &item.GachaID, &gachaType, &item.ItemID, &item.Count,
			&item.Time, &item.Name, &item.Lang, &item.ItemType, &item.RankType, &batchID,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.ID = strconv.FormatInt(id, 10)
		item.GachaType = model.GachaType(gachaType)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (p *Postgres) LatestBatch(ctx context.Context, uid string) (*model.GachaRecordBatch, error) {
	batches, err := p.queryBatches(ctx, uid, 1)
	if err != nil {
		return nil, persistErr("latest batch", err)
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

func (p *Postgres) Batches(ctx context.Context, uid string) ([]model.GachaRecordBatch, error) {
	batches, err := p.queryBatches(ctx, uid, 0)
	if err != nil {
		return nil, persistErr("batches", err)
	}
	return batches, nil
}

// queryBatches returns batches newest first; limit 0 means all.
func (p *Postgres) queryBatches(ctx context.Context, uid string, limit uint64) ([]model.GachaRecordBatch, error) {
	sel := psql.Select(batchColumns...).
		From(batchTable).
		Where(sq.Eq{"uid": uid}).
		OrderBy("batch_id DESC")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []model.GachaRecordBatch
	for rows.Next() {
		var b model.GachaRecordBatch
		if err := rows.Scan(&b.UID, &b.BatchID, &b.Lang, &b.RegionTimeZone, &b.Source, &b.Count, &b.Timestamp); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (p *Postgres) NextBatchID(ctx context.Context, uid string) (int, error) {
	query, args, err := psql.Select("COALESCE(MAX(batch_id), 0) + 1").
		From(batchTable).
		Where(sq.Eq{"uid": uid}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var next int
	if err := p.db.QueryRow(ctx, query, args...).Scan(&next); err != nil {
		return 0, persistErr("next batch id", err)
	}
	return next, nil
}

func (p *Postgres) DeleteAccount(ctx context.Context, uid string) error {
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		for _, table := range []string{itemTable, batchTable} {
			query, args, err := psql.Delete(table).Where(sq.Eq{"uid": uid}).ToSql()
			if err != nil {
				return fmt.Errorf("build delete: %w", err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return persistErr("delete account", err)
	}

	p.logger.Info("deleted account records", "uid", uid)
	return nil
}
