// Package cmd implements the kvmux command-line interface.
//
// The package is organized into several subpackages:
//
//   - kv: store operations (get, set, del, has, keys, perf) through the
//     dispatch façade, configured by a YAML store file
//   - serve: runs the remote key-value service
//   - util: shared flag and configuration helpers (internal use)
//
// Every flag can also be set as an environment variable KVMUX_<FLAG>, read
// from the process environment or from .env and .env.local.
//
// See kvmux -help for a list of all commands.
package cmd
