package server

import (
	"context"

	"github.com/ValentinKolb/kvmux/rpc/common"
)

// IKVStore is the storage served by one shard, addressed by namespace name.
type IKVStore interface {
	// Get returns the value of key in ns or an error with code store.RetCNoSuchKey
	Get(ctx context.Context, ns, key string) ([]byte, error)
	// Set inserts or overwrites the value of key in ns
	Set(ctx context.Context, ns, key string, value []byte) error
	// Delete removes key from ns
	Delete(ctx context.Context, ns, key string) error
	// Keys returns all keys of ns
	Keys(ctx context.Context, ns string) ([]string, error)
}

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message and a store as parameters.
	// It returns a Message as a response
	// If an error occurs, it should be set in the response
	Handle(ctx context.Context, req *common.Message, store IKVStore) (resp *common.Message)
}
