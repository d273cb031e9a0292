// Package rpc contains the remote key-value protocol of kvmux: the service
// behind the "remote" backend and the client used to reach it.
//
// The package is organized into several subpackages:
//
//   - common: the Message protocol, client and server configuration and the
//     logger setup.
//
//   - transport: network communication with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization (Binary, JSON, GOB).
//
//   - client: KVClient, the client of the remote key-value service.
//
//   - server: the remote key-value service, serving sqlite backed shards.
package rpc
