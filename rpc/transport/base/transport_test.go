package base_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/transport"
	"github.com/ValentinKolb/kvmux/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEcho serves a handler that answers "<shard>:<request>" on a unix socket
func startEcho(t *testing.T) (string, transport.IRPCServerTransport) {
	t.Helper()

	dir, err := os.MkdirTemp("", "kvmux")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "echo.sock")

	srv := unix.NewUnixDefaultServerTransport()
	srv.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return []byte(fmt.Sprintf("%d:%s", shardId, req))
	})

	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{
			TimeoutSecond: 5,
			Transport:     common.ServerTransportConfig{Endpoint: path, WorkersPerConn: 4},
		})
	}()
	t.Cleanup(func() {
		_ = srv.Close()
		assert.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", path)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	return path, srv
}

func connect(t *testing.T, path string, connections int) transport.IRPCClientTransport {
	t.Helper()
	c := unix.NewUnixClientTransport()
	require.NoError(t, c.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{path},
			RetryCount:             2,
			ConnectionsPerEndpoint: connections,
		},
	}))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSendReceive(t *testing.T) {
	path, _ := startEcho(t)
	c := connect(t, path, 1)

	resp, err := c.Send(context.Background(), 100, []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, "100:ping", string(resp))

	resp, err = c.Send(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Equal(t, "7:", string(resp))
}

func TestConcurrentRequestsAreMatched(t *testing.T) {
	path, _ := startEcho(t)
	c := connect(t, path, 3)

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := fmt.Sprintf("req-%d", i)
			resp, err := c.Send(context.Background(), uint64(i), []byte(req))
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf("%d:%s", i, req); string(resp) != want {
				errs <- fmt.Errorf("got %q, want %q", resp, want)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	c := unix.NewUnixClientTransport()
	err := c.Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoints: []string{filepath.Join(t.TempDir(), "none.sock")}},
	})
	assert.Error(t, err)

	assert.Error(t, c.Connect(common.ClientConfig{}), "no endpoints")
}

func TestSendAfterServerClosed(t *testing.T) {
	path, srv := startEcho(t)
	c := connect(t, path, 1)

	_, err := c.Send(context.Background(), 1, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, srv.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Send(ctx, 1, []byte("x"))
	assert.Error(t, err)
}

func TestSendAfterClientClosed(t *testing.T) {
	path, _ := startEcho(t)
	c := connect(t, path, 1)
	require.NoError(t, c.Close())

	_, err := c.Send(context.Background(), 1, []byte("x"))
	assert.Error(t, err)
}
