// Package blocking isolates blocking work from the code that waits for it.
//
// The sqlite backends call into cgo and the file system on every operation.
// Instead of running those calls on the caller's goroutine, they hand them to
// an Executor which runs each job on a dedicated goroutine and bounds how many
// of them run at once. The caller only waits on a channel, so it stays
// responsive to context cancellation while the blocking call is in flight.
package blocking
