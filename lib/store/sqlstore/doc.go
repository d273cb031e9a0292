// Package sqlstore implements the store.IBackend contract on top of an embedded
// sqlite database, either a file or a private in-memory instance.
//
// Key Features:
//   - One physical connection per backend, shared by every store opened from it
//   - One table (kv_store) keyed by (store, key), so each store is a partition
//   - Upsert writes, silent deletes of absent keys, key listing per store
//   - Prepared statements cached on the connection
//
// Implementation Details:
//
//   - Lazy Connection: The database is opened and the schema created on the
//     first Open of a backend (see LazyConn). The connection is only committed
//     once both steps succeeded, so a failed or cancelled Open can simply be
//     retried.
//
//   - Serialization: Every query holds the connection mutex for its whole
//     duration. Stores that share the connection are therefore serialized,
//     which is what sqlite requires for a single connection anyway.
//
//   - Blocking Isolation: Queries run on a blocking.Executor. The calling
//     goroutine only waits for the result and can stop waiting when its
//     context is cancelled; the query itself always completes.
//
//   - Error Mapping: A missing row is reported as store.ErrNoSuchKey. Every
//     driver failure is logged at warning level and returned as a store error
//     with code RetCStore carrying the driver message.
//
// Usage Example:
//
//	backend := sqlstore.NewBackend(sqlstore.Path("kv.db"))
//	defer backend.Close()
//
//	s, err := backend.Open(ctx, "sessions")
//	err = s.Set(ctx, "user:1", []byte("alice"))
//	value, err := s.Get(ctx, "user:1")
//
// The Conn and LazyConn types are exported so that other single-database
// stores (see the nsstore package) can reuse the schema, the error mapping and
// the concurrency discipline without the backend/handle split.
package sqlstore
