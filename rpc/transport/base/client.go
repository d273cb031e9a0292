package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var errTransportClosed = errors.New("transport is closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection is one pooled connection to an endpoint.
// A broken connection is dropped and dialled again by the next request.
type clientConnection struct {
	endpoint string
	parent   *clientTransport
	pending  *xsync.MapOf[uint64, chan responseResult]

	mu     sync.Mutex // protects conn, closed and writes to conn
	conn   net.Conn
	closed bool
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextRequestID uint64 // Atomic counter for unique request IDs
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	t.connectionsMu.Lock()
	t.config = config
	t.connectionsMu.Unlock()

	connectionsPerEP := max(1, config.Transport.ConnectionsPerEndpoint)
	connections := make([]*clientConnection, 0, len(config.Transport.Endpoints)*connectionsPerEP)
	connected := 0

	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < connectionsPerEP; i++ {
			c := &clientConnection{
				endpoint: endpoint,
				parent:   t,
				pending:  xsync.NewMapOf[uint64, chan responseResult](),
			}
			connections = append(connections, c)

			// Establish the initial connection, a failed one is retried on use
			if _, err := c.ensureConn(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connected++
		}
	}

	if connected == 0 {
		for _, c := range connections {
			c.close()
		}
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected %d out of %d connections to %d endpoints using %s transport",
		connected, len(connections), len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(ctx context.Context, shardId uint64, req []byte) (resp []byte, err error) {
	t.connectionsMu.RLock()
	retries := t.config.Transport.RetryCount
	t.connectionsMu.RUnlock()

	return transport.Retry(ctx, retries, func(attempt int) ([]byte, error) {
		conn := t.getNextConnection()
		if conn == nil {
			return nil, errTransportClosed
		}

		data, err := conn.send(ctx, shardId, atomic.AddUint64(&t.nextRequestID, 1), req)
		if err != nil {
			Logger.Debugf("Request attempt %d to %s failed: %v", attempt+1, conn.endpoint, err)
		}
		return data, err
	})
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	return t.connections[index]
}

// closeConnections closes all connections and removes them from the pool
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		c.close()
	}
}

// clientConfig returns the current configuration
func (t *clientTransport) clientConfig() common.ClientConfig {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()
	return t.config
}

// timeout returns the configured per request timeout (zero means none)
func (t *clientTransport) timeout() time.Duration {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

// ensureConn returns the open connection, dialling it first if needed.
func (c *clientConnection) ensureConn() (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errTransportClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.clientConfig()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}

	c.conn = conn
	go c.readResponses(conn)
	return conn, nil
}

// send writes one request and waits for its response.
func (c *clientConnection) send(ctx context.Context, shardId, requestID uint64, req []byte) ([]byte, error) {
	conn, err := c.ensureConn()
	if err != nil {
		return nil, err
	}

	respCh := make(chan responseResult, 1)
	c.pending.Store(requestID, respCh)
	defer c.pending.Delete(requestID)

	timeout := c.parent.timeout()

	c.mu.Lock()
	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err = writeFrame(conn, shardId, requestID, req)
	c.mu.Unlock()
	if err != nil {
		c.drop(conn, err)
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, fmt.Errorf("request timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readResponses reads responses from conn and distributes them to the waiting requests
// until conn fails or is closed.
func (c *clientConnection) readResponses(conn net.Conn) {
	for {
		shardID, requestID, data, err := readFrame(conn, nil)
		if err != nil {
			c.drop(conn, err)
			return
		}

		respCh, found := c.pending.LoadAndDelete(requestID)
		if !found {
			Logger.Warningf("Received response for unknown request ID %d with shard ID %d", requestID, shardID)
			continue
		}
		respCh <- responseResult{data: data}
	}
}

// drop closes conn (if it is still the current connection) and fails all pending requests.
func (c *clientConnection) drop(conn net.Conn, cause error) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	closed := c.closed
	c.mu.Unlock()

	if !current {
		return
	}
	conn.Close()

	if !closed {
		Logger.Warningf("Connection to %s lost: %v", c.endpoint, cause)
	}

	c.pending.Range(func(id uint64, _ chan responseResult) bool {
		if ch, ok := c.pending.LoadAndDelete(id); ok {
			ch <- responseResult{err: fmt.Errorf("error reading response: %w", cause)}
		}
		return true
	})
}

// close closes the connection permanently.
func (c *clientConnection) close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.drop(conn, errTransportClosed)
	}
}
