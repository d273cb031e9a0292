// Package tcp implements the TCP socket transport of the kvmux RPC system.
// It provides the TCP connectors for the base package, which does the framing,
// connection pooling and request routing.
//
// The server reads frames into pooled 512 KB buffers. Socket options (no delay,
// keep alive, linger, buffer sizes) come from the transport configuration.
package tcp
