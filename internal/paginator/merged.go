package paginator

import (
	"cmp"
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// MergeOption configures a MergedPaginator.
type MergeOption func(*mergeOptions)

type mergeOptions struct {
	pageSize    int
	concurrency int
}

// WithMergedPageSize sets how many items each merged page carries.
func WithMergedPageSize(n int) MergeOption {
	return func(o *mergeOptions) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithPrimeConcurrency fetches the first page of up to n sources in parallel.
// Later pages are always fetched on demand, in merge order.
func WithPrimeConcurrency(n int) MergeOption {
	return func(o *mergeOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// MergedPaginator merges sources that are each sorted ascending by key into
// one ascending stream. Only one page per source is buffered at a time.
// Equal keys are emitted in source order.
type MergedPaginator[T any, K cmp.Ordered] struct {
	sources     []*mergeSource[T]
	key         func(T) K
	pageSize    int
	concurrency int

	primed    bool
	exhausted bool
}

type mergeSource[T any] struct {
	p    Paginator[T]
	buf  []T
	done bool
}

// NewMergedPaginator creates a merge over sources ordered by key.
func NewMergedPaginator[T any, K cmp.Ordered](sources []Paginator[T], key func(T) K, opts ...MergeOption) *MergedPaginator[T, K] {
	o := mergeOptions{pageSize: DefaultPageSize, concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}

	m := &MergedPaginator[T, K]{
		key:         key,
		pageSize:    o.pageSize,
		concurrency: o.concurrency,
	}
	for _, p := range sources {
		m.sources = append(m.sources, &mergeSource[T]{p: p})
	}
	return m
}

// NextPage returns up to pageSize items in merged order.
func (m *MergedPaginator[T, K]) NextPage(ctx context.Context) ([]T, error) {
	if m.exhausted {
		return nil, ErrExhausted
	}

	if !m.primed {
		if err := m.prime(ctx); err != nil {
			return nil, err
		}
		m.primed = true
	}

	page := make([]T, 0, m.pageSize)
	for len(page) < m.pageSize {
		best := -1
		var bestKey K
		for i, s := range m.sources {
			if err := s.fill(ctx); err != nil {
				return nil, err
			}
			if len(s.buf) == 0 {
				continue
			}
			// Strict comparison keeps the lowest source index on ties.
			if k := m.key(s.buf[0]); best == -1 || k < bestKey {
				best, bestKey = i, k
			}
		}

		if best == -1 {
			m.exhausted = true
			break
		}

		s := m.sources[best]
		page = append(page, s.buf[0])
		s.buf = s.buf[1:]
	}

	if len(page) == 0 {
		return nil, ErrExhausted
	}
	return page, nil
}

// prime loads the first page of every source.
func (m *MergedPaginator[T, K]) prime(ctx context.Context) error {
	if m.concurrency <= 1 {
		for _, s := range m.sources {
			if err := s.fill(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, s := range m.sources {
		g.Go(func() error {
			return s.fill(gctx)
		})
	}
	return g.Wait()
}

// fill refills an empty buffer from its source.
func (s *mergeSource[T]) fill(ctx context.Context) error {
	for len(s.buf) == 0 && !s.done {
		page, err := s.p.NextPage(ctx)
		if errors.Is(err, ErrExhausted) {
			s.done = true
			return nil
		}
		if err != nil {
			return err
		}
		s.buf = page
	}
	return nil
}
