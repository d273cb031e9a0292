// Package http implements the HTTP transport of the kvmux RPC system.
//
// Requests are POSTed to /{shardId} with the serialized message as body; the
// response body carries the serialized response. The server also exposes the
// process and kvmux metrics in Prometheus text format on GET /metrics.
//
// Key Components:
//
//   - httpClientTransport: IRPCClientTransport with round-robin selection
//     across the configured endpoints and retries with backoff.
//
//   - httpServerTransport: IRPCServerTransport based on net/http. Handler()
//     exposes the routing so the server can also be mounted elsewhere (for
//     example in an httptest.Server).
package http
