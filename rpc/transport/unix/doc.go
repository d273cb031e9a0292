// Package unix implements the Unix domain socket transport of the kvmux RPC
// system, for clients running on the same machine as the service.
//
// It only provides the connectors; framing, connection pooling and request
// routing come from the base package. The default server buffer size is 64 KB.
package unix
