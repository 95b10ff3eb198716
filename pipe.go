package stream

import "os"

// Writable is the contract a pipe destination must satisfy: a writable
// collaborator exposes Write and End plus event subscription (spec §6).
// Event subscription is modeled through the optional DrainNotifier and
// ErrorReceiver interfaces below rather than a single polymorphic
// subscription method, since Go callbacks are typed per event.
type Writable interface {
	// Write delivers chunk to the destination. It returns false to signal
	// backpressure: the source should pause until the destination drains.
	Write(chunk any) bool
	// End signals no more data will be written.
	End()
}

// DrainNotifier is implemented by writable destinations that can signal
// backpressure relief. A pipe subscribes to this, when present, to resume
// the source once the destination drains.
type DrainNotifier interface {
	OnDrain(fn func()) Unsubscribe
}

// ErrorReceiver is implemented by writable destinations that accept
// out-of-band error notifications. The error-proxying pipe variant forwards
// every source error here.
type ErrorReceiver interface {
	Error(err error)
}

// fdHolder lets Pipe recognize the process's stdout/stderr sink by file
// descriptor, the way *os.File and the ioWriterSink adapter both do,
// independent of pointer identity (so any *os.File wrapping fd 1 or 2 is
// recognized, not only the global os.Stdout/os.Stderr values).
type fdHolder interface {
	Fd() uintptr
}

func isProcessStdSink(dest Writable) bool {
	fh, ok := dest.(fdHolder)
	if !ok {
		return false
	}
	fd := fh.Fd()
	return fd == os.Stdout.Fd() || fd == os.Stderr.Fd()
}

// pipeRecord is a binding from a Stream to one downstream Writable (spec
// §4.7). The plain variant only forwards data and end; the error-proxying
// variant additionally forwards source errors to the destination.
type pipeRecord struct {
	dest        Writable
	end         bool
	unsubDrain  Unsubscribe
	unsubError  Unsubscribe
}

func (p *pipeRecord) write(chunk any) bool {
	return p.dest.Write(chunk)
}

// teardown detaches this record's subscriptions without ending dest. Used
// by both Unpipe and the end-of-stream pipe teardown.
func (p *pipeRecord) teardown() {
	if p.unsubDrain != nil {
		p.unsubDrain()
		p.unsubDrain = nil
	}
	if p.unsubError != nil {
		p.unsubError()
		p.unsubError = nil
	}
}

// closePipe tears down the record and, if opts.end was set, ends dest.
func (p *pipeRecord) closePipe() {
	p.teardown()
	if p.end {
		p.dest.End()
	}
}

// Pipe relays this Stream's data to dest, returning dest for chaining (spec
// §4.7). It is a no-op returning dest if the stream is already destroyed.
func (s *Stream) Pipe(dest Writable, opts ...PipeOption) Writable {
	if s.destroyed {
		return dest
	}
	s.discarded = false

	po := PipeOptions{End: true}
	if isProcessStdSink(dest) {
		po.End = false
	}
	for _, o := range opts {
		o(&po)
	}

	if s.emittedEnd {
		if po.End {
			dest.End()
		}
		return dest
	}

	rec := &pipeRecord{dest: dest, end: po.End}
	if dn, ok := dest.(DrainNotifier); ok {
		rec.unsubDrain = dn.OnDrain(func() { s.Resume() })
	}
	if po.ProxyErrors {
		if er, ok := dest.(ErrorReceiver); ok {
			rec.unsubError = s.OnError(func(err error) { er.Error(err) })
		}
	}
	s.pipes = append(s.pipes, rec)

	s.sched.defer_(func() { s.Resume() })
	return dest
}

// Unpipe detaches dest from this Stream's pipe list, if attached, without
// ending dest (spec §4.7).
func (s *Stream) Unpipe(dest Writable) {
	for i, p := range s.pipes {
		if p.dest == dest {
			p.teardown()
			s.pipes = append(s.pipes[:i], s.pipes[i+1:]...)
			if len(s.pipes) == 0 && s.dataListenerCount == 0 {
				s.flowing = false
			}
			return
		}
	}
}
