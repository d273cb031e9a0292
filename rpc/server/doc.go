// Package server implements the remote key-value service.
//
// An RPCServer owns a set of shards. Every shard is a nsstore.KeyValue on its
// own sqlite location (a file or an in-memory database). Requests name their
// namespace by string; each shard opens a namespace on first use and keeps
// the id for its lifetime.
//
// Key Components:
//
//   - IRPCServerAdapter: translates a request message into calls on an
//     IKVStore and builds the response. NewKVServerAdapter handles Get, Set
//     (a Set without value deletes) and ListKeys.
//
//   - NewRPCServer: creates a server for a configuration, transport and serializer.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	    Shards: []common.ServerShard{
//	        {ShardID: 100, Type: common.ShardTypeSQLite, Path: "kv.db"},
//	        {ShardID: 200, Type: common.ShardTypeMemory},
//	    },
//	    TimeoutSecond: 5,
//	    Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	    log.Fatalf("Server error: %v", err)
//	}
//
// Errors never terminate a connection: an unknown shard, a malformed request
// or a storage failure become error responses.
//
// Every handled request is counted in kvmux_rpc_requests_total{type} and timed
// in kvmux_rpc_request_duration_seconds{type}.
package server
