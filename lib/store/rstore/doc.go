// Package rstore implements the remote backend: stores that live in a
// namespace of the remote key-value service (see rpc/server).
//
// All remote stores of a façade share one SharedClient. The client connects
// on the first request; a failed connect or any other transport or protocol
// failure is reported as store.RetCInvalidStore with the detail in the
// message, and logged at warn level. Retrying is left to the transport.
package rstore
