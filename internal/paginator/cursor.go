package paginator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultPageSize is the page size the upstream serves when asked for its
// maximum.
const DefaultPageSize = 20

// Getter fetches the page of items older than endID. endID 0 requests the
// newest page.
type Getter[T any] func(ctx context.Context, endID int64) ([]T, error)

// CursorOption configures a CursorPaginator.
type CursorOption func(*cursorOptions)

type cursorOptions struct {
	pageSize int
	stopID   int64
	pacer    *Pacer
}

// WithPageSize sets the page size the exhaustion check compares against.
func WithPageSize(n int) CursorOption {
	return func(o *cursorOptions) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithStopID stops pagination at the first item whose id is <= id. Items at
// or below the stop id are never yielded. Zero disables the stop.
func WithStopID(id int64) CursorOption {
	return func(o *cursorOptions) {
		o.stopID = id
	}
}

// WithPacer delays each request so consecutive requests sharing the pacer
// are at least its interval apart.
func WithPacer(p *Pacer) CursorOption {
	return func(o *cursorOptions) {
		o.pacer = p
	}
}

// CursorPaginator pages through one descending-by-id resource using the id of
// the last item seen as the cursor.
//
// The upstream has no "has more" flag, so a page shorter than the configured
// page size is taken as the last one. If the server's real page size differs
// from the configured one this check can stop one page early or issue one
// extra empty request.
type CursorPaginator[T any] struct {
	getter   Getter[T]
	id       func(T) int64
	endID    int64
	stopID   int64
	pageSize int
	pacer    *Pacer

	exhausted bool
}

// NewCursorPaginator creates a paginator over getter. id extracts the cursor
// id of an item.
func NewCursorPaginator[T any](getter Getter[T], id func(T) int64, opts ...CursorOption) *CursorPaginator[T] {
	o := cursorOptions{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &CursorPaginator[T]{
		getter:   getter,
		id:       id,
		stopID:   o.stopID,
		pageSize: o.pageSize,
		pacer:    o.pacer,
	}
}

// NextPage fetches the next page.
func (p *CursorPaginator[T]) NextPage(ctx context.Context) ([]T, error) {
	if p.exhausted {
		return nil, ErrExhausted
	}

	if err := p.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := p.getter(ctx, p.endID)
	if err != nil {
		return nil, err
	}

	if len(page) == 0 {
		p.exhausted = true
		return nil, ErrExhausted
	}
	if len(page) < p.pageSize {
		p.exhausted = true
	}
	next := p.id(page[len(page)-1])
	if !p.exhausted && (next <= 0 || (p.endID > 0 && next >= p.endID)) {
		p.exhausted = true
		return nil, fmt.Errorf("%w: cursor %d after %d", ErrCursorStalled, next, p.endID)
	}
	p.endID = next

	if p.stopID > 0 {
		for i, item := range page {
			if p.id(item) <= p.stopID {
				page = page[:i]
				p.exhausted = true
				break
			}
		}
		if len(page) == 0 {
			return nil, ErrExhausted
		}
	}

	return page, nil
}

// EndID returns the current cursor.
func (p *CursorPaginator[T]) EndID() int64 {
	return p.endID
}

// Pacer spaces out requests by a fixed minimum interval. It is safe for
// concurrent use; a nil Pacer never waits.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewPacer creates a pacer with the given minimum interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the caller may issue its request or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if p.next.After(now) {
		wait = p.next.Sub(now)
		p.next = p.next.Add(p.interval)
	} else {
		p.next = now.Add(p.interval)
	}
	p.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
