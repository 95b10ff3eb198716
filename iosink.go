package stream

import "io"

// ioWriterSink adapts a plain io.Writer (e.g. a net.Conn, *os.File, or
// bytes.Buffer) into a Writable pipe destination, exposing the wrapped
// writer's file descriptor when it has one (see Fd).
//
// io.Writer has no backpressure or drain signal of its own, so Write here
// either fully succeeds or reports failure by returning false; there is no
// DrainNotifier implementation, so a paused source piped into one of these
// will stay paused until something else resumes it. This is a known and
// documented limitation of wrapping a purely synchronous collaborator.
type ioWriterSink struct {
	w       io.Writer
	lastErr error
}

// NewIOWriterSink wraps w as a Writable pipe destination.
func NewIOWriterSink(w io.Writer) Writable {
	return &ioWriterSink{w: w}
}

func (s *ioWriterSink) Write(chunk any) bool {
	var b []byte
	switch v := chunk.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return false
	}
	if len(b) == 0 {
		return true
	}
	_, err := s.w.Write(b)
	if err != nil {
		s.lastErr = err
		return false
	}
	return true
}

func (s *ioWriterSink) End() {
	if c, ok := s.w.(io.Closer); ok {
		_ = c.Close()
	}
}

// Fd satisfies fdHolder when the wrapped writer exposes a file descriptor
// (e.g. *os.File), letting Pipe recognize process stdout/stderr sinks
// wrapped through this adapter.
func (s *ioWriterSink) Fd() uintptr {
	if fh, ok := s.w.(interface{ Fd() uintptr }); ok {
		return fh.Fd()
	}
	return 0
}

// Err returns the last error observed from the underlying writer, if any.
func (s *ioWriterSink) Err() error {
	return s.lastErr
}
