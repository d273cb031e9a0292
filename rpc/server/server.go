package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/kvmux/lib/blocking"
	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/serializer"
	"github.com/ValentinKolb/kvmux/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates and the adapter that handles requests for the store
type serverShard struct {
	Store   *kvShard
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
		exec:       blocking.Default(),
	}
}

// RPCServer is the remote key-value service. It routes every request to the
// shard named in the transport frame.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	exec       *blocking.Executor
}

// Init creates the shards and registers the request handler with the transport.
// Serve calls it; it is exported for tests that drive Handle directly.
func (s *RPCServer) Init() error {
	Logger.Infof("Created RPC Server")
	Logger.Infof("configuration:\n%s", s.config.String())

	for _, shardConfig := range s.config.Shards {
		if _, exists := s.shards.Load(shardConfig.ShardID); exists {
			s.closeShards()
			return fmt.Errorf("duplicate shard id %d", shardConfig.ShardID)
		}

		shard, err := newKVShard(shardConfig, s.exec)
		if err != nil {
			s.closeShards()
			return err
		}

		s.shards.Store(shardConfig.ShardID, serverShard{
			Store:   shard,
			Adapter: NewKVServerAdapter(),
		})
		Logger.Infof("created %s store for shard %d", shardConfig.Type, shardConfig.ShardID)
	}

	s.transport.RegisterHandler(s.Handle)

	Logger.Infof("kvmux setup completed successfully")
	return nil
}

// Handle processes one serialized request for shardId and returns the serialized response.
func (s *RPCServer) Handle(shardId uint64, req []byte) []byte {
	var respMsg *common.Message

	shard, ok := s.shards.Load(shardId)
	if !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else {
		var msg common.Message
		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
		} else {
			ctx, cancel := s.requestContext()
			start := time.Now()
			respMsg = shard.Adapter.Handle(ctx, &msg, shard.Store)
			cancel()

			metrics.GetOrCreateCounter(fmt.Sprintf(`kvmux_rpc_requests_total{type=%q}`, msg.MsgType)).Inc()
			metrics.GetOrCreateHistogram(fmt.Sprintf(`kvmux_rpc_request_duration_seconds{type=%q}`, msg.MsgType)).UpdateDuration(start)
		}
	}

	if respMsg.Err != "" {
		Logger.Debugf("request for shard %d failed: %s", shardId, respMsg.Err)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// Serve starts the RPC server
// This function will also initialize the shards and start the transport layer.
// It blocks until Close is called.
func (s *RPCServer) Serve() error {
	if err := s.Init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport and closes the databases of all shards.
func (s *RPCServer) Close() error {
	err := s.transport.Close()
	return errors.Join(err, s.closeShards())
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// requestContext returns the context a request is processed with
func (s *RPCServer) requestContext() (context.Context, context.CancelFunc) {
	if s.config.TimeoutSecond > 0 {
		return context.WithTimeout(context.Background(), time.Duration(s.config.TimeoutSecond)*time.Second)
	}
	return context.WithCancel(context.Background())
}

// closeShards closes and removes all shards
func (s *RPCServer) closeShards() error {
	var errs []error
	s.shards.Range(func(id uint64, shard serverShard) bool {
		if err := shard.Store.close(); err != nil {
			errs = append(errs, fmt.Errorf("shard %d: %w", id, err))
		}
		s.shards.Delete(id)
		return true
	})
	return errors.Join(errs...)
}
