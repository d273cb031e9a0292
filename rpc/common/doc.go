// Package common provides the data structures shared by the kvmux rpc
// packages: the wire message, the client and server configuration and the
// logger setup.
//
// Key Components:
//
//   - Message: the single structure used for every request and response.
//     Which fields are used depends on the MessageType. Factory functions
//     create the request and response messages for Get, Set and ListKeys.
//
//   - ServerConfig / ClientConfig: configuration of the remote key-value
//     service and of its clients, with human readable String() renderings.
//
//   - Logger: a logger factory for dragonboats logger package that renders
//     through log/slog and tint. Packages obtain loggers with
//     logger.GetLogger(name); InitLoggers installs the factory and sets levels.
package common
