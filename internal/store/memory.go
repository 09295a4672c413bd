package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rickgao/warplog/internal/model"
)

// Memory is an in-process Repository. Inserts are atomic under one mutex.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*memAccount
}

type memAccount struct {
	items   map[int64]memItem
	batches []model.GachaRecordBatch // ascending by batch id
}

type memItem struct {
	item    model.GachaRecordItem
	batchID int
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]*memAccount)}
}

var _ Repository = (*Memory)(nil)

func (m *Memory) InsertGachaRecords(ctx context.Context, items []model.GachaRecordItem, batch model.GachaRecordBatch, mode InsertMode) (int, error) {
	if err := checkBatch(items, batch); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, persistErr("insert gacha records", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	acct := m.accounts[batch.UID]
	if acct == nil {
		acct = &memAccount{items: make(map[int64]memItem)}
	}

	pending := make(map[int64]model.GachaRecordItem, len(items))
	for _, item := range items {
		id := item.NumericID()
		_, stored := acct.items[id]
		_, queued := pending[id]
		if stored || queued {
			if mode == InsertStrict {
				return 0, persistErr("insert gacha records", fmt.Errorf("%w: id %s", ErrDuplicate, item.ID))
			}
			continue
		}
		pending[id] = item
	}

	if len(pending) == 0 {
		return 0, nil
	}

	for _, b := range acct.batches {
		if b.BatchID == batch.BatchID {
			return 0, persistErr("insert batch", fmt.Errorf("batch %d already exists for uid %s", batch.BatchID, batch.UID))
		}
	}

	for id, item := range pending {
		acct.items[id] = memItem{item: item, batchID: batch.BatchID}
	}
	batch.Count = len(pending)
	acct.batches = append(acct.batches, batch)
	sort.Slice(acct.batches, func(i, j int) bool {
		return acct.batches[i].BatchID < acct.batches[j].BatchID
	})
	m.accounts[batch.UID] = acct

	return len(pending), nil
}

func (m *Memory) LatestItem(ctx context.Context, uid string) (*model.GachaRecordItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct := m.accounts[uid]
	if acct == nil || len(acct.items) == 0 {
		return nil, nil
	}

	var latest *model.GachaRecordItem
	var latestID int64
	for id, mi := range acct.items {
		if latest == nil || id > latestID {
			item := mi.item
			latest, latestID = &item, id
		}
	}
	return latest, nil
}

func (m *Memory) AllItems(ctx context.Context, uid string) ([]model.GachaRecordItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct := m.accounts[uid]
	if acct == nil {
		return nil, nil
	}

	ids := make([]int64, 0, len(acct.items))
	for id := range acct.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.GachaRecordItem, len(ids))
	for i, id := range ids {
		out[i] = acct.items[id].item
	}
	return out, nil
}

func (m *Memory) LatestBatch(ctx context.Context, uid string) (*model.GachaRecordBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct := m.accounts[uid]
	if acct == nil || len(acct.batches) == 0 {
		return nil, nil
	}
	b := acct.batches[len(acct.batches)-1]
	return &b, nil
}

func (m *Memory) NextBatchID(ctx context.Context, uid string) (int, error) {
	latest, err := m.LatestBatch(ctx, uid)
	if err != nil || latest == nil {
		return 1, err
	}
	return latest.BatchID + 1, nil
}

func (m *Memory) Batches(ctx context.Context, uid string) ([]model.GachaRecordBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct := m.accounts[uid]
	if acct == nil {
		return nil, nil
	}
	out := make([]model.GachaRecordBatch, 0, len(acct.batches))
	for i := len(acct.batches) - 1; i >= 0; i-- {
		out = append(out, acct.batches[i])
	}
	return out, nil
}

func (m *Memory) DeleteAccount(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, uid)
	return nil
}

// BatchOf returns the batch id an item was inserted with.
func (m *Memory) BatchOf(uid, id string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct := m.accounts[uid]
	if acct == nil {
		return 0, false
	}
	n, err := model.ParseID(id)
	if err != nil {
		return 0, false
	}
	mi, ok := acct.items[n]
	return mi.batchID, ok
}
