package lock

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLocked is returned when the key is held by someone else.
	ErrLocked = errors.New("lock is held")

	// ErrNotHeld is returned when releasing a lock that has expired or was
	// taken over.
	ErrNotHeld = errors.New("lock not held")
)

// Release gives up a lock obtained from a Locker.
type Release func(ctx context.Context) error

// Locker grants exclusive, non-blocking locks per key.
type Locker interface {
	// TryLock acquires key or returns ErrLocked immediately.
	TryLock(ctx context.Context, key string) (Release, error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) TryLock(ctx context.Context, key string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		err := ErrNotHeld
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
			err = nil
		})
		return err
	}, nil
}
