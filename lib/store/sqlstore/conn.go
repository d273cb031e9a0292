package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ValentinKolb/kvmux/lib/blocking"
	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	_ "github.com/mattn/go-sqlite3"
)

var Logger = logger.GetLogger("store")

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS kv_store (
		store TEXT NOT NULL,
		key   TEXT NOT NULL,
		value BLOB NOT NULL,

		PRIMARY KEY (store, key)
	)`

	getSQL    = "SELECT value FROM kv_store WHERE store = ? AND key = ?"
	setSQL    = "INSERT INTO kv_store (store, key, value) VALUES (?, ?, ?) ON CONFLICT(store, key) DO UPDATE SET value = excluded.value"
	deleteSQL = "DELETE FROM kv_store WHERE store = ? AND key = ?"
	keysSQL   = "SELECT key FROM kv_store WHERE store = ? ORDER BY key"
)

var errConnClosed = errors.New("connection is closed")

// --------------------------------------------------------------------------
// Location
// --------------------------------------------------------------------------

// Location describes where the sqlite database lives.
type Location struct {
	path     string
	inMemory bool
}

// InMemory returns a location for a private in-memory database.
// Every connection opened for it starts empty.
func InMemory() Location {
	return Location{inMemory: true}
}

// Path returns a location for a database file. The file is created if needed.
func Path(path string) Location {
	return Location{path: path}
}

// IsInMemory reports whether the location is an in-memory database.
func (l Location) IsInMemory() bool {
	return l.inMemory
}

func (l Location) String() string {
	if l.inMemory {
		return ":memory:"
	}
	return l.path
}

// --------------------------------------------------------------------------
// Conn
// --------------------------------------------------------------------------

// Conn is the single physical sqlite connection shared by all stores of a backend.
//
// Every query holds mu for its whole duration and runs on the blocking executor,
// so stores sharing the connection are serialized and callers never block on cgo.
// Rows are partitioned by the store column.
type Conn struct {
	mu    sync.Mutex
	db    *sql.DB
	stmts map[string]*sql.Stmt
	exec  *blocking.Executor
}

// openConn opens the database and creates the schema. It blocks and must be run
// on the executor.
func openConn(location Location, exec *blocking.Executor) (*Conn, error) {
	db, err := sql.Open("sqlite3", location.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One physical connection. For in-memory databases this is also what keeps
	// the data alive: a second connection would see a different database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if !location.IsInMemory() {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
			}
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Conn{
		db:    db,
		stmts: make(map[string]*sql.Stmt),
		exec:  exec,
	}, nil
}

// Get returns the value stored for key in partition.
func (c *Conn) Get(ctx context.Context, partition, key string) ([]byte, error) {
	var value []byte
	err := c.do(ctx, func(ctx context.Context) error {
		stmt, err := c.prepareCached(getSQL)
		if err != nil {
			return logError(err)
		}
		err = stmt.QueryRowContext(ctx, partition, key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNoSuchKey
		}
		if err != nil {
			return logError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set inserts or overwrites the value for key in partition.
func (c *Conn) Set(ctx context.Context, partition, key string, value []byte) error {
	// a nil slice would be bound as NULL
	if value == nil {
		value = []byte{}
	}
	return c.exec1(ctx, setSQL, partition, key, value)
}

// Delete removes key from partition. Absent keys are ignored.
func (c *Conn) Delete(ctx context.Context, partition, key string) error {
	return c.exec1(ctx, deleteSQL, partition, key)
}

// Keys returns all keys of partition in ascending order.
func (c *Conn) Keys(ctx context.Context, partition string) ([]string, error) {
	keys := make([]string, 0)
	err := c.do(ctx, func(ctx context.Context) error {
		stmt, err := c.prepareCached(keysSQL)
		if err != nil {
			return logError(err)
		}
		rows, err := stmt.QueryContext(ctx, partition)
		if err != nil {
			return logError(err)
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return logError(err)
			}
			keys = append(keys, k)
		}
		if err := rows.Err(); err != nil {
			return logError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the cached statements and the connection.
// Operations after Close fail with a store error.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	for query, stmt := range c.stmts {
		stmt.Close()
		delete(c.stmts, query)
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// exec1 runs a statement that does not return rows.
func (c *Conn) exec1(ctx context.Context, query string, args ...any) error {
	return c.do(ctx, func(ctx context.Context) error {
		stmt, err := c.prepareCached(query)
		if err != nil {
			return logError(err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return logError(err)
		}
		return nil
	})
}

// do runs fn on the executor while holding the connection lock.
// fn receives a context that is not cancelled with the caller's: once started,
// a query always runs to completion.
func (c *Conn) do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := c.exec.Run(ctx, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.db == nil {
			return logError(errConnClosed)
		}
		return fn(context.WithoutCancel(ctx))
	})
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return store.NewRuntimeError(ctxErr.Error())
	}
	return err
}

// prepareCached returns a prepared statement for query, preparing it on first use.
// Callers must hold mu.
func (c *Conn) prepareCached(query string) (*sql.Stmt, error) {
	if stmt, ok := c.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := c.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// logError logs a sqlite failure and converts it into a store error.
func logError(err error) error {
	Logger.Warningf("sqlite error: %v", err)
	return store.NewStoreError(err.Error())
}
