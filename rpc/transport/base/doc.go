// Package base implements the framed transport shared by the tcp and unix
// transports. The protocol specific parts (dialling, listening, socket options)
// are injected through IClientConnector and IServerConnector.
//
// Every frame carries a shard id, a request id and a length prefixed payload.
// Responses are matched to requests by request id, so a single connection
// carries many requests concurrently.
//
// Key Components:
//
//   - clientTransport: a pool of connections (ConnectionsPerEndpoint per
//     endpoint) used round robin. A broken connection fails its pending
//     requests and is dialled again by the next request. Failed attempts are
//     retried with backoff (transport.Retry).
//
//   - serverTransport: accepts connections and processes up to
//     WorkersPerConn requests per connection concurrently. Read buffers are
//     pooled with a sync.Pool.
//
// All exported functionality is safe for concurrent use.
package base
