package server

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/kvmux/lib/blocking"
	"github.com/ValentinKolb/kvmux/lib/store/nsstore"
	"github.com/ValentinKolb/kvmux/lib/store/sqlstore"
	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// kvShard serves one shard from a nsstore.KeyValue.
// Namespace names are opened on first use and the ids are kept for the
// lifetime of the shard.
type kvShard struct {
	kv         *nsstore.KeyValue
	namespaces *xsync.MapOf[string, nsstore.Namespace]
}

// newKVShard creates the storage of a shard as configured.
func newKVShard(config common.ServerShard, exec *blocking.Executor) (*kvShard, error) {
	var location sqlstore.Location
	switch config.Type {
	case common.ShardTypeSQLite:
		if config.Path == "" {
			return nil, fmt.Errorf("shard %d: sqlite shard needs a path", config.ShardID)
		}
		location = sqlstore.Path(config.Path)
	case common.ShardTypeMemory:
		location = sqlstore.InMemory()
	default:
		return nil, fmt.Errorf("shard %d: invalid shard type: %s", config.ShardID, config.Type)
	}

	return &kvShard{
		kv:         nsstore.New(location, exec),
		namespaces: xsync.NewMapOf[string, nsstore.Namespace](),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IKVStore)
// --------------------------------------------------------------------------

func (s *kvShard) Get(ctx context.Context, ns, key string) ([]byte, error) {
	id, err := s.namespace(ns)
	if err != nil {
		return nil, err
	}
	return s.kv.Get(ctx, id, key)
}

func (s *kvShard) Set(ctx context.Context, ns, key string, value []byte) error {
	id, err := s.namespace(ns)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, id, key, value)
}

func (s *kvShard) Delete(ctx context.Context, ns, key string) error {
	id, err := s.namespace(ns)
	if err != nil {
		return err
	}
	return s.kv.Delete(ctx, id, key)
}

func (s *kvShard) Keys(ctx context.Context, ns string) ([]string, error) {
	id, err := s.namespace(ns)
	if err != nil {
		return nil, err
	}
	return s.kv.GetKeys(ctx, id)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// namespace returns the id of the namespace name, opening it on first use.
func (s *kvShard) namespace(name string) (nsstore.Namespace, error) {
	if id, ok := s.namespaces.Load(name); ok {
		return id, nil
	}

	id, err := s.kv.Open(name)
	if err != nil {
		return 0, err
	}

	// another request may have opened the same name concurrently
	actual, loaded := s.namespaces.LoadOrStore(name, id)
	if loaded {
		s.kv.Close(id)
	}
	return actual, nil
}

// close releases all namespaces and closes the database.
func (s *kvShard) close() error {
	s.namespaces.Range(func(name string, id nsstore.Namespace) bool {
		s.kv.Close(id)
		s.namespaces.Delete(name)
		return true
	})
	return s.kv.Shutdown()
}
