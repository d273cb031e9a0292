package client

import (
	"context"
	"sync"

	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/serializer"
	"github.com/ValentinKolb/kvmux/rpc/transport"
	"golang.org/x/time/rate"
)

// KVClient is the client of the remote key-value service.
//
// The transport is connected on the first call, not on construction. A failed
// connect is returned to the caller and tried again on the next call.
// A KVClient is safe for concurrent use.
type KVClient struct {
	rpcClientAdapter
	limiter *rate.Limiter

	mu        sync.Mutex
	connected bool
}

// NewKVClient creates a new client for the shard shardId.
// If config.RateLimit is positive, requests are limited to that many per second.
func NewKVClient(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) *KVClient {
	c := &KVClient{
		rpcClientAdapter: rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}
	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(1, config.RateBurst))
	}
	return c
}

// Connect connects the transport unless it is already connected.
func (c *KVClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	if err := c.transport.Connect(c.config); err != nil {
		return err
	}
	c.connected = true
	return nil
}

// Connected reports whether the transport is connected.
func (c *KVClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Get returns the value of key in namespace ns and whether the key was found.
// The value of a found key is never nil.
func (c *KVClient) Get(ctx context.Context, ns, key string) (value []byte, found bool, err error) {
	resp, err := c.invoke(ctx, common.NewGetRequest(ns, key))
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	if resp.Value == nil {
		return []byte{}, true, nil
	}
	return resp.Value, true, nil
}

// Set stores value under key in namespace ns. A nil value is stored as an empty value.
func (c *KVClient) Set(ctx context.Context, ns, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := c.invoke(ctx, common.NewSetRequest(ns, key, value))
	return err
}

// Clear removes key from namespace ns (a set without value).
func (c *KVClient) Clear(ctx context.Context, ns, key string) error {
	_, err := c.invoke(ctx, common.NewSetRequest(ns, key, nil))
	return err
}

// ListKeys returns all keys of namespace ns.
func (c *KVClient) ListKeys(ctx context.Context, ns string) ([]string, error) {
	resp, err := c.invoke(ctx, common.NewListKeysRequest(ns))
	if err != nil {
		return nil, err
	}
	if resp.Keys == nil {
		return []string{}, nil
	}
	return resp.Keys, nil
}

// Close closes the transport. The next call connects again.
func (c *KVClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	return c.transport.Close()
}

// invoke connects if needed, waits for the rate limiter and sends req.
func (c *KVClient) invoke(ctx context.Context, req *common.Message) (*common.Message, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return invokeRPCRequest(ctx, c.shardId, req, c.transport, c.serializer)
}
