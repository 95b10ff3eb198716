package stream

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument reports an invalid combination of construction options.
	ErrInvalidArgument = errors.New("stream: invalid argument")

	// ErrWriteAfterEnd reports a write attempted after End was accepted.
	ErrWriteAfterEnd = errors.New("stream: write after end")

	// ErrNonContiguousData reports a chunk that cannot be normalized to a
	// byte slice in non-Object mode.
	ErrNonContiguousData = errors.New("stream: non-contiguous data written to non-objectMode stream")

	// ErrConcatObjectMode reports that Concat was called on an Object-mode stream.
	ErrConcatObjectMode = errors.New("stream: cannot concat in objectMode")

	// ErrStreamDestroyed is the well-known error code emitted on writes to an
	// already-destroyed stream. The write itself still reports success (it is
	// not a usage error): see Write's contract in stream.go.
	ErrStreamDestroyed = errors.New("ERR_STREAM_DESTROYED")
)

// destroyError annotates err with the operation that triggered Destroy, the
// way xtaci/kcptun wraps dial/connect failures with errors.Wrap so the
// original cause survives under errors.Cause while the message carries
// context about where the stream died.
func destroyError(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, op)
}
