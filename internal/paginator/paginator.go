package paginator

import (
	"context"
	"errors"
)

// ErrExhausted is returned by NextPage once a paginator has no more pages.
// Exhausted paginators are not resumable.
var ErrExhausted = errors.New("paginator exhausted")

// ErrCursorStalled is returned when a full page does not move the cursor
// strictly backwards. The paginator is exhausted afterwards.
var ErrCursorStalled = errors.New("paginator cursor did not advance")

// Paginator is a lazy, ordered source of pages.
type Paginator[T any] interface {
	// NextPage returns the next non-empty page, or ErrExhausted.
	NextPage(ctx context.Context) ([]T, error)
}

// Flatten drains every remaining page of p into one slice, preserving order.
// On error nothing accumulated so far is returned.
func Flatten[T any](ctx context.Context, p Paginator[T]) ([]T, error) {
	var all []T
	for {
		page, err := p.NextPage(ctx)
		if errors.Is(err, ErrExhausted) {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
}

// Limit caps the total number of items p yields. A non-positive n means no
// limit and p is returned unchanged.
func Limit[T any](p Paginator[T], n int) Paginator[T] {
	if n <= 0 {
		return p
	}
	return &limited[T]{src: p, remaining: n}
}

type limited[T any] struct {
	src       Paginator[T]
	remaining int
}

func (l *limited[T]) NextPage(ctx context.Context) ([]T, error) {
	if l.remaining <= 0 {
		return nil, ErrExhausted
	}

	page, err := l.src.NextPage(ctx)
	if err != nil {
		return nil, err
	}

	if len(page) > l.remaining {
		page = page[:l.remaining]
	}
	l.remaining -= len(page)
	return page, nil
}
