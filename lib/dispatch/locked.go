package dispatch

import (
	"context"
	"sync"
)

// IDispatch is the set of store operations shared by Dispatch and Locked.
type IDispatch interface {
	Open(ctx context.Context, name string) (Handle, error)
	Get(ctx context.Context, h Handle, key string) ([]byte, error)
	Set(ctx context.Context, h Handle, key string, value []byte) error
	Delete(ctx context.Context, h Handle, key string) error
	Exists(ctx context.Context, h Handle, key string) (bool, error)
	GetKeys(ctx context.Context, h Handle) ([]string, error)
	Close(h Handle)
	Shutdown() error
}

var (
	_ IDispatch = (*Dispatch)(nil)
	_ IDispatch = (*Locked)(nil)
)

// Locked makes a Dispatch safe for concurrent use.
//
// Open, Close and Shutdown take the write lock. Data operations hold the read
// lock for their whole duration, so they run in parallel with each other but
// never overlap with a handle being opened or closed.
type Locked struct {
	mu sync.RWMutex
	d  *Dispatch
}

// NewLocked wraps d. d must not be used directly afterwards.
func NewLocked(d *Dispatch) *Locked {
	return &Locked{d: d}
}

func (l *Locked) Open(ctx context.Context, name string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.Open(ctx, name)
}

func (l *Locked) Get(ctx context.Context, h Handle, key string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.d.Get(ctx, h, key)
}

func (l *Locked) Set(ctx context.Context, h Handle, key string, value []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.d.Set(ctx, h, key, value)
}

func (l *Locked) Delete(ctx context.Context, h Handle, key string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.d.Delete(ctx, h, key)
}

func (l *Locked) Exists(ctx context.Context, h Handle, key string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.d.Exists(ctx, h, key)
}

func (l *Locked) GetKeys(ctx context.Context, h Handle) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.d.GetKeys(ctx, h)
}

func (l *Locked) Close(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.d.Close(h)
}

func (l *Locked) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.Shutdown()
}
