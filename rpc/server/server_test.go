package server

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/serializer"
	"github.com/ValentinKolb/kvmux/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer creates an initialized server without starting the transport
func newServer(t *testing.T, shards ...common.ServerShard) (*RPCServer, serializer.IRPCSerializer) {
	t.Helper()
	s := serializer.NewBinarySerializer()
	srv := NewRPCServer(common.ServerConfig{Shards: shards, TimeoutSecond: 5}, tcp.NewTCPServerTransport(), s)
	require.NoError(t, srv.Init())
	t.Cleanup(func() { _ = srv.closeShards() })
	return srv, s
}

// call sends msg to shard through Handle and decodes the response
func call(t *testing.T, srv *RPCServer, s serializer.IRPCSerializer, shard uint64, msg *common.Message) common.Message {
	t.Helper()
	req, err := s.Serialize(*msg)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, s.Deserialize(srv.Handle(shard, req), &resp))
	return resp
}

func TestHandleKeyValue(t *testing.T) {
	srv, s := newServer(t, common.ServerShard{ShardID: 1, Type: common.ShardTypeMemory})

	resp := call(t, srv, s, 1, common.NewGetRequest("ns", "k"))
	assert.Empty(t, resp.Err)
	assert.False(t, resp.Ok)

	resp = call(t, srv, s, 1, common.NewSetRequest("ns", "k", []byte("v")))
	assert.Empty(t, resp.Err)

	resp = call(t, srv, s, 1, common.NewGetRequest("ns", "k"))
	assert.True(t, resp.Ok)
	assert.Equal(t, []byte("v"), resp.Value)

	// other namespaces do not see the key
	resp = call(t, srv, s, 1, common.NewGetRequest("other", "k"))
	assert.False(t, resp.Ok)

	resp = call(t, srv, s, 1, common.NewListKeysRequest("ns"))
	assert.Equal(t, []string{"k"}, resp.Keys)

	// a set without value deletes
	resp = call(t, srv, s, 1, common.NewSetRequest("ns", "k", nil))
	assert.Empty(t, resp.Err)

	resp = call(t, srv, s, 1, common.NewGetRequest("ns", "k"))
	assert.False(t, resp.Ok)
}

func TestHandleEmptyValueIsFound(t *testing.T) {
	srv, s := newServer(t, common.ServerShard{ShardID: 1, Type: common.ShardTypeMemory})

	call(t, srv, s, 1, common.NewSetRequest("ns", "empty", []byte{}))

	resp := call(t, srv, s, 1, common.NewGetRequest("ns", "empty"))
	assert.Empty(t, resp.Err)
	assert.True(t, resp.Ok)
	assert.Empty(t, resp.Value)
}

func TestHandleShardsAreIndependent(t *testing.T) {
	srv, s := newServer(t,
		common.ServerShard{ShardID: 1, Type: common.ShardTypeMemory},
		common.ServerShard{ShardID: 2, Type: common.ShardTypeSQLite, Path: filepath.Join(t.TempDir(), "2.db")},
	)

	call(t, srv, s, 2, common.NewSetRequest("ns", "k", []byte("v")))

	assert.True(t, call(t, srv, s, 2, common.NewGetRequest("ns", "k")).Ok)
	assert.False(t, call(t, srv, s, 1, common.NewGetRequest("ns", "k")).Ok)
}

func TestHandleErrors(t *testing.T) {
	srv, s := newServer(t, common.ServerShard{ShardID: 1, Type: common.ShardTypeMemory})

	resp := call(t, srv, s, 99, common.NewGetRequest("ns", "k"))
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "shard 99 not found")

	resp = call(t, srv, s, 1, &common.Message{MsgType: common.MsgTSuccess})
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "unsupported message type")

	var decoded common.Message
	require.NoError(t, s.Deserialize(srv.Handle(1, []byte{0xFF}), &decoded))
	assert.Equal(t, common.MsgTError, decoded.MsgType)
	assert.Contains(t, decoded.Err, "deserialize")
}

func TestInitRejectsBadShards(t *testing.T) {
	s := serializer.NewBinarySerializer()

	srv := NewRPCServer(common.ServerConfig{Shards: []common.ServerShard{
		{ShardID: 1, Type: common.ShardTypeMemory},
		{ShardID: 1, Type: common.ShardTypeMemory},
	}}, tcp.NewTCPServerTransport(), s)
	assert.ErrorContains(t, srv.Init(), "duplicate shard id 1")

	srv = NewRPCServer(common.ServerConfig{Shards: []common.ServerShard{
		{ShardID: 1, Type: common.ShardTypeSQLite},
	}}, tcp.NewTCPServerTransport(), s)
	assert.Error(t, srv.Init())
}
