package sqlstore

import (
	"context"
	"errors"
	"sync"

	"github.com/ValentinKolb/kvmux/lib/blocking"
	"github.com/ValentinKolb/kvmux/lib/store"
)

var errBackendClosed = errors.New("backend is closed")

// LazyConn establishes a Conn on first use and hands out the same Conn afterwards.
//
// The connection is committed only after opening the database and creating the
// schema both succeeded. The commit happens inside the blocking job, so a caller
// that gives up (context cancelled) never leaves a half-initialized connection
// behind: the next caller either finds the finished connection or starts over.
type LazyConn struct {
	location Location
	exec     *blocking.Executor

	mu     sync.Mutex
	conn   *Conn
	closed bool
}

// NewLazyConn creates a LazyConn for location. A nil executor selects blocking.Default().
func NewLazyConn(location Location, exec *blocking.Executor) *LazyConn {
	if exec == nil {
		exec = blocking.Default()
	}
	return &LazyConn{
		location: location,
		exec:     exec,
	}
}

// Get returns the connection, establishing it first if needed.
func (l *LazyConn) Get(ctx context.Context) (*Conn, error) {
	if conn, err := l.current(); conn != nil || err != nil {
		return conn, err
	}

	err := l.exec.Run(ctx, func() error {
		l.mu.Lock()
		defer l.mu.Unlock()

		// someone else finished (or closed) while we waited for a slot
		if l.closed {
			return logError(errBackendClosed)
		}
		if l.conn != nil {
			return nil
		}

		conn, err := openConn(l.location, l.exec)
		if err != nil {
			return logError(err)
		}
		l.conn = conn
		Logger.Infof("connected to sqlite database %s", l.location)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, store.NewRuntimeError(ctxErr.Error())
		}
		return nil, err
	}

	return l.current()
}

// Connected reports whether the connection has been established.
func (l *LazyConn) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Close closes the connection (if any). Later calls to Get fail.
func (l *LazyConn) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

// current returns the established connection, nil if there is none yet, or an
// error once the LazyConn was closed.
func (l *LazyConn) current() (*Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, store.NewStoreError(errBackendClosed.Error())
	}
	return l.conn, nil
}
