package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickgao/warplog/internal/model"
)

var (
	// ErrPersistence is matched by every storage failure. The failed
	// operation has been rolled back.
	ErrPersistence = errors.New("persistence error")

	// ErrDuplicate is returned under InsertStrict when an item already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// InsertMode selects how InsertGachaRecords treats ids already stored.
type InsertMode int

const (
	// InsertIgnore skips items whose id already exists.
	InsertIgnore InsertMode = iota
	// InsertStrict fails the whole insert on any existing id.
	InsertStrict
)

func (m InsertMode) String() string {
	switch m {
	case InsertIgnore:
		return "ignore"
	case InsertStrict:
		return "strict"
	}
	return fmt.Sprintf("InsertMode(%d)", int(m))
}

// Repository stores records and their batches. Every method is scoped to a
// single account uid.
type Repository interface {
	// InsertGachaRecords inserts items as one batch in a single transaction
	// and returns how many were actually added. If none were added no batch
	// row is written. batch.Count is ignored and replaced by the real count.
	InsertGachaRecords(ctx context.Context, items []model.GachaRecordItem, batch model.GachaRecordBatch, mode InsertMode) (int, error)

	// LatestItem returns the item with the largest id, or nil.
	LatestItem(ctx context.Context, uid string) (*model.GachaRecordItem, error)

	// AllItems returns every item ascending by id.
	AllItems(ctx context.Context, uid string) ([]model.GachaRecordItem, error)

	// LatestBatch returns the batch with the largest batch id, or nil.
	LatestBatch(ctx context.Context, uid string) (*model.GachaRecordBatch, error)

	// NextBatchID returns one more than the largest batch id, or 1.
	NextBatchID(ctx context.Context, uid string) (int, error)

	// Batches returns the batch history newest first.
	Batches(ctx context.Context, uid string) ([]model.GachaRecordBatch, error)

	// DeleteAccount removes every item and batch of uid.
	DeleteAccount(ctx context.Context, uid string) error
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// checkBatch verifies items belong to the batch's account.
func checkBatch(items []model.GachaRecordItem, batch model.GachaRecordBatch) error {
	if batch.UID == "" {
		return persistErr("insert gacha records", errors.New("batch uid is empty"))
	}
	if batch.BatchID < 1 {
		return persistErr("insert gacha records", fmt.Errorf("invalid batch id %d", batch.BatchID))
	}
	for _, item := range items {
		if item.UID != batch.UID {
			return persistErr("insert gacha records", fmt.Errorf("item %s belongs to uid %s, batch is for %s", item.ID, item.UID, batch.UID))
		}
		if _, err := model.ParseID(item.ID); err != nil {
			return persistErr("insert gacha records", err)
		}
	}
	return nil
}
