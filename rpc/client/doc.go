// Package client implements the client of the remote key-value service.
//
// KVClient speaks the Get / Set / ListKeys protocol of the rpc/common package
// over any transport and serializer. Deleting a key is a Set without a value
// (Clear).
//
// Usage Example:
//
//	config := common.ClientConfig{
//	    TimeoutSecond: 5,
//	    Transport: common.ClientTransportConfig{
//	        Endpoints:  []string{"localhost:8080"},
//	        RetryCount: 3,
//	    },
//	}
//
//	c := client.NewKVClient(100, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	defer c.Close()
//
//	err := c.Set(ctx, "users", "alice", []byte("admin"))
//	value, found, err := c.Get(ctx, "users", "alice")
//
// The first call connects the transport. Retries with backoff happen inside
// the transport; the client itself never retries.
package client
