package cron

import (
	"context"
	"sync"
)

// Lock coordinates exclusive runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLock keeps two cycles in one process from overlapping. Sessions live
// in process memory, so every instance sweeps its own and a shared lock would
// only make instances skip work they alone can do.
type LocalLock struct {
	mu sync.Mutex
}

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire never blocks; it reports false when a cycle is already running.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
