package store

import (
	"context"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IBackend is a configured storage engine that can open named stores.
//
// Open may be called any number of times; each call yields a new store handle
// bound to the same underlying resource. One-time setup (connections, schema)
// happens on the first call and is remembered for the lifetime of the backend.
type IBackend interface {
	// Open returns a new store handle for the store with the given name.
	Open(ctx context.Context, name string) (IStoreHandle, error)
	// Close releases the resources held by the backend (connections, clients).
	// Store handles opened from the backend must not be used afterwards.
	Close() error
}

// IStoreHandle is a live binding to one logical namespace of a backend.
// All implementations must be safe for concurrent use.
type IStoreHandle interface {
	// Get returns the value for a key, or an error with code RetCNoSuchKey if the key is absent.
	Get(ctx context.Context, key string) (value []byte, err error)
	// Set inserts or overwrites the value for a key.
	Set(ctx context.Context, key string, value []byte) (err error)
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) (err error)
	// Exists reports whether a key is present.
	// Implementations must behave exactly like ExistsViaGet.
	Exists(ctx context.Context, key string) (ok bool, err error)
}

// IKeyLister is implemented by store handles that can enumerate their keys.
type IKeyLister interface {
	// GetKeys returns all keys currently stored in the namespace of the handle.
	GetKeys(ctx context.Context) (keys []string, err error)
}

// ExistsViaGet implements the exists contract shared by all backends:
// a successful Get means true, ErrNoSuchKey means false and every other
// error is passed through unchanged.
func ExistsViaGet(ctx context.Context, s IStoreHandle, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoSuchKey):
		return false, nil
	default:
		return false, err
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("KVStoreError (code %s)", e.Code)
	}
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is a *Error with the same code.
// This makes errors.Is(err, store.ErrNoSuchKey) work for errors carrying a message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewStoreError wraps a failure of the underlying storage engine.
func NewStoreError(detail string) *Error {
	return NewError(RetCStore, detail)
}

// NewRuntimeError wraps a failure of the surrounding runtime.
func NewRuntimeError(detail string) *Error {
	return NewError(RetCRuntime, detail)
}

// CodeOf returns the return code carried by err.
// It returns RetCSuccess for nil and RetCRuntime for errors that are not a *Error.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCRuntime
}

// Sentinel errors for the codes without a detail message. Use errors.Is to test for them.
var (
	ErrNoSuchStore        = &Error{Code: RetCNoSuchStore}
	ErrStoreTableFull     = &Error{Code: RetCStoreTableFull}
	ErrInvalidStore       = &Error{Code: RetCInvalidStore}
	ErrInvalidNamespace   = &Error{Code: RetCInvalidNamespace}
	ErrNamespaceTableFull = &Error{Code: RetCNamespaceTableFull}
	ErrNoSuchKey          = &Error{Code: RetCNoSuchKey}
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Command executed successfully.
	RetCNoSuchStore                       // 1: No store is configured under the requested name.
	RetCStoreTableFull                    // 2: No free store handle is left.
	RetCInvalidStore                      // 3: The store handle is not open (or the remote store failed).
	RetCInvalidNamespace                  // 4: The namespace id is not open.
	RetCNamespaceTableFull                // 5: No free namespace id is left.
	RetCNoSuchKey                         // 6: The key does not exist.
	RetCStore                             // 7: The storage engine failed.
	RetCRuntime                           // 8: The runtime failed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCNoSuchStore:
		return "NoSuchStore"
	case RetCStoreTableFull:
		return "StoreTableFull"
	case RetCInvalidStore:
		return "InvalidStore"
	case RetCInvalidNamespace:
		return "InvalidNamespace"
	case RetCNamespaceTableFull:
		return "NamespaceTableFull"
	case RetCNoSuchKey:
		return "NoSuchKey"
	case RetCStore:
		return "Store"
	case RetCRuntime:
		return "Runtime"
	default:
		return "Unknown"
	}
}
