// Package transport defines the interfaces for moving opaque request and
// response bytes between an rpc client and server, addressed by shard id.
//
// Key Components:
//
//   - IRPCClientTransport: client side; connects to the configured endpoints
//     and sends requests. Send retries failed attempts (see Retry).
//
//   - IRPCServerTransport: server side; receives requests and passes them to
//     the registered ServerHandleFunc.
//
//   - Retry: attempt loop with exponential backoff and jitter shared by all
//     client transports.
//
// Implementations live in the http, tcp and unix subpackages; tcp and unix
// share the framed connection handling of the base package.
package transport
