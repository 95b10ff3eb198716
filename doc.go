// Package stream provides a minimal, synchronous-by-default byte/string/object
// streaming primitive for in-process producer-to-consumer pipelines.
//
// Semantics and design:
//   - A Stream accepts writes from a producer, buffers them internally when
//     no consumer is attached, and emits them to consumers (event handlers or
//     piped destinations) as soon as consumers appear.
//   - Three payload shapes are supported, chosen at construction and fixed
//     for the lifetime of the Stream: Bytes (raw byte slices), Text (decoded
//     strings, multi-byte-codepoint safe), and Object (arbitrary values).
//   - Consumption is one of three modes: paused (data accumulates), flowing
//     (data is emitted as it arrives), or flowing-discarded (emitted but
//     dropped, because resume() was called before any consumer attached).
//   - End-of-stream is a cluster of four events fired in order: end,
//     prefinish, finish, and (only if requested) close.
//   - By default all emission happens synchronously, within the call to
//     Write/End that produced it. WithAsync defers every emission to the next
//     turn of a per-stream deferral queue, preserving FIFO order.
//
// The Stream is single-threaded cooperative: all operations are expected to
// run from one goroutine at a time and are not safe for concurrent use from
// multiple goroutines without external synchronization, matching the
// single-owner state-machine model this package implements.
package stream
