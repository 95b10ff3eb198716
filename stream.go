package stream

import (
	"context"
)

// Unsubscribe removes a previously registered event handler when called.
// Calling it more than once is a harmless no-op.
type Unsubscribe func()

// Stream is an in-process producer-to-consumer byte/string/object pipe. See
// the package doc comment for the full state-machine semantics; this type
// implements spec §3's data model and §4's component design directly.
//
// A Stream is single-threaded cooperative: callers are expected to drive it
// from one logical owner at a time (see the package doc comment). WithAsync
// mode introduces one dedicated background goroutine per stream that drains
// the deferral queue; when WithSignal is also used, a second goroutine
// watches the signal and hands the abort to that queue. In synchronous mode there is no background goroutine at
// all — a WithSignal cancellation is instead detected cooperatively, the
// next time Write or Read runs on the owning goroutine, so abort() always
// runs on the same goroutine that is otherwise mutating the Stream.
// Application code should not call Stream methods concurrently from
// multiple goroutines without its own synchronization.
type Stream struct {
	mode     Mode
	encoding string // ModeText only; "utf-8" is the only implemented encoding

	// observable flags (spec §3)
	writable   bool
	readable   bool
	destroyed  bool
	aborted    bool
	emittedEnd bool

	// endish lifecycle (spec §4.6)
	eof              bool
	emittingEnd      bool
	closeRequested   bool
	prefinishEmitted bool
	finishEmitted    bool
	closeEmitted     bool

	// consumption mode (spec §4.5)
	flowing   bool
	paused    bool
	discarded bool

	buf *buffer
	dec *decoder

	pipes             []*pipeRecord
	events            *eventRegistry
	dataListenerCount int

	lastError    error
	lastErrorSet bool

	sched *scheduler
	async bool

	signal context.Context
	// signalDone is closed by Destroy to unblock the async-mode signal
	// watcher goroutine for a signal that never fires, so it never leaks
	// past the Stream's own lifetime. Unused (nil) in sync mode, which has
	// no watcher goroutine to unblock.
	signalDone chan struct{}

	// closeHook is the subclass-hook analogue of spec §4.11/§9: a caller
	// can attach one via SetCloseHook to release an external resource when
	// Destroy first runs.
	closeHook func()
}

// New constructs a Stream. With no options it is in Bytes mode, synchronous,
// with no external cancellation. WithEncoding and WithObjectMode are
// mutually exclusive; combining them returns ErrInvalidArgument.
func New(opts ...Option) (*Stream, error) {
	cfg := defaultConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.encodingSet && cfg.objectModeSet {
		return nil, ErrInvalidArgument
	}

	mode := ModeBytes
	encoding := ""
	if cfg.encodingSet {
		mode = ModeText
		encoding = cfg.encoding
	} else if cfg.objectModeSet {
		mode = ModeObject
	}

	s := &Stream{
		mode:      mode,
		encoding:  encoding,
		writable:  true,
		readable:  true,
		paused:    true,
		buf:       newBuffer(mode),
		dec:       newDecoder(),
		events:    newEventRegistry(),
		async:     cfg.async,
		sched:     newScheduler(cfg.async),
	}

	if cfg.signal != nil {
		s.signal = cfg.signal
		if cfg.signal.Err() != nil {
			s.abort(signalReason(cfg.signal))
		} else if cfg.async {
			// Only async mode gets a watcher goroutine: its scheduler
			// already serializes deferred work onto one dedicated
			// goroutine, so handing abort() to it there is safe. Sync mode
			// instead polls the signal cooperatively; see checkSignal.
			s.signalDone = make(chan struct{})
			go s.watchSignal(cfg.signal, s.signalDone)
		}
	}

	return s, nil
}

func signalReason(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}

func (s *Stream) watchSignal(ctx context.Context, done chan struct{}) {
	select {
	case <-ctx.Done():
		s.sched.defer_(func() { s.abort(signalReason(ctx)) })
	case <-done:
	}
}

// checkSignal detects a WithSignal cancellation cooperatively in sync mode,
// where no background watcher goroutine exists (see the Stream doc
// comment): Write and Read poll it so a canceled signal is honored on the
// next call from the owning goroutine rather than from a second one. In
// async mode the watcher goroutine already handles this, so checkSignal is
// a no-op there.
func (s *Stream) checkSignal() {
	if s.async || s.signal == nil || s.aborted || s.destroyed {
		return
	}
	if s.signal.Err() != nil {
		s.abort(signalReason(s.signal))
	}
}

// SetCloseHook attaches the subclass-hook analogue described in spec
// §4.11/§9: Destroy invokes it exactly once, the first time the stream
// transitions to destroyed.
func (s *Stream) SetCloseHook(fn func()) {
	s.closeHook = fn
}

// Writable reports whether the producer may still call Write.
func (s *Stream) Writable() bool { return s.writable }

// Readable reports whether data events may still fire.
func (s *Stream) Readable() bool { return s.readable }

// Destroyed reports whether Destroy has been called.
func (s *Stream) Destroyed() bool { return s.destroyed }

// Aborted reports whether the stream was terminated via its cancellation
// signal.
func (s *Stream) Aborted() bool { return s.aborted }

// EmittedEnd reports whether the end event has fired.
func (s *Stream) EmittedEnd() bool { return s.emittedEnd }

// BufferLength returns the current aggregate size of the internal buffer:
// byte length (Bytes), character count (Text), or item count (Object).
func (s *Stream) BufferLength() int { return s.buf.length }

// ---- normalization (spec §4.3) ----

func isFalsy(mode Mode, chunk any) bool {
	switch mode {
	case ModeBytes:
		b, ok := chunk.([]byte)
		return ok && len(b) == 0
	case ModeText:
		str, ok := chunk.(string)
		return ok && str == ""
	default:
		return false
	}
}

// normalizeChunk implements the non-Object-mode normalization rules: native
// byte slices and strings pass through; anything exposing Bytes() []byte
// (the idiomatic Go shape for "buffer-like views", e.g. *bytes.Buffer) is
// unwrapped; anything else fails.
func normalizeChunk(chunk any) (any, error) {
	switch v := chunk.(type) {
	case []byte:
		return v, nil
	case string:
		return v, nil
	case interface{ Bytes() []byte }:
		return v.Bytes(), nil
	default:
		return nil, ErrNonContiguousData
	}
}

// ---- write side (spec §4.3) ----

// Write accepts a chunk from the producer. It returns the stream's current
// flowing flag; the producer should pause further writes when it returns
// false.
//
// Write-after-End and a non-Object-mode chunk that cannot be normalized to a
// contiguous buffer are usage errors: Write reports them through its error
// return, following the teacher's convention of surfacing recoverable usage
// mistakes as a plain Go error (`framer.Writer.Write` returns `ErrTooLong`
// rather than panicking) instead of panicking.
func (s *Stream) Write(chunk any, opts ...WriteOption) (bool, error) {
	wc := writeConfig{encoding: "utf-8"}
	for _, o := range opts {
		o(&wc)
	}

	s.checkSignal()
	if s.aborted {
		return false, nil
	}
	if s.eof {
		return false, ErrWriteAfterEnd
	}
	if s.destroyed {
		s.emitErrorEvent(ErrStreamDestroyed)
		return true, nil
	}

	if s.mode == ModeObject {
		return s.writeObject(chunk, wc.cb), nil
	}
	if s.mode == ModeText {
		return s.writeText(chunk, wc.encoding, wc.cb)
	}
	return s.writeBytesMode(chunk, wc.cb)
}

func (s *Stream) writeObject(chunk any, cb func(error)) bool {
	if s.flowing {
		s.emitDataEvent(chunk)
	} else {
		s.buf.push(chunk)
	}
	if !s.buf.empty() {
		s.emitReadable()
	}
	s.fireCallback(cb, nil)
	return s.flowing
}

func (s *Stream) writeBytesMode(chunk any, cb func(error)) (bool, error) {
	raw, err := normalizeChunk(chunk)
	if err != nil {
		return false, err
	}
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	}
	return s.writeBytes(b, cb), nil
}

func (s *Stream) writeBytes(b []byte, cb func(error)) bool {
	if len(b) == 0 {
		if !s.buf.empty() {
			s.emitReadable()
		}
		s.fireCallback(cb, nil)
		return s.flowing
	}
	if s.flowing && !s.buf.empty() {
		s.flushBufferWithoutDrain()
	}
	if s.flowing {
		s.emitDataEvent(b)
	} else {
		s.buf.push(b)
	}
	if !s.buf.empty() {
		s.emitReadable()
	}
	s.fireCallback(cb, nil)
	return s.flowing
}

func (s *Stream) writeText(chunk any, encName string, cb func(error)) (bool, error) {
	raw, err := normalizeChunk(chunk)
	if err != nil {
		return false, err
	}

	var str string
	switch v := raw.(type) {
	case string:
		if len(v) == 0 {
			if !s.buf.empty() {
				s.emitReadable()
			}
			s.fireCallback(cb, nil)
			return s.flowing, nil
		}
		if encName == s.encoding && !s.dec.hasPending() {
			str = v
		} else {
			str = s.dec.write([]byte(v))
		}
	case []byte:
		if len(v) == 0 {
			if !s.buf.empty() {
				s.emitReadable()
			}
			s.fireCallback(cb, nil)
			return s.flowing, nil
		}
		str = s.dec.write(v)
	}

	if str == "" {
		// Only a partial codepoint has accumulated inside the decoder so
		// far (spec §8 "utf-8 split codepoint"); nothing to emit yet, but
		// the write still completes normally.
		if !s.buf.empty() {
			s.emitReadable()
		}
		s.fireCallback(cb, nil)
		return s.flowing, nil
	}

	if s.flowing && !s.buf.empty() {
		s.flushBufferWithoutDrain()
	}
	if s.flowing {
		s.emitDataEvent(str)
	} else {
		s.buf.push(str)
	}
	if !s.buf.empty() {
		s.emitReadable()
	}
	s.fireCallback(cb, nil)
	return s.flowing, nil
}

func (s *Stream) flushBufferWithoutDrain() {
	for !s.buf.empty() {
		item := s.buf.shift()
		s.emitDataEvent(item)
	}
}

func (s *Stream) fireCallback(cb func(error), err error) {
	if cb == nil {
		return
	}
	s.sched.defer_(func() { cb(err) })
}

// ---- read side (spec §4.4) ----

// Read returns everything currently buffered, or reports false if nothing
// is available. In Bytes/Text mode multiple buffered items are first joined
// into one, so a single Read drains the whole buffer; in Object mode it
// shifts and returns one item.
func (s *Stream) Read() (any, bool) { return s.readN(-1) }

// ReadN behaves like Read but, in Bytes/Text mode, returns at most n units
// (bytes or characters) of the head item, leaving the remainder buffered.
// In Object mode n is ignored: at most one whole item is ever returned. A
// call with n == 0, or n greater than BufferLength, returns false without
// mutating the buffer.
func (s *Stream) ReadN(n int) (any, bool) {
	if n < 0 {
		n = 0
	}
	return s.readN(n)
}

func (s *Stream) readN(n int) (any, bool) {
	s.checkSignal()
	if s.destroyed {
		return nil, false
	}
	s.discarded = false

	if s.buf.empty() || n == 0 || (n > 0 && n > s.buf.length) {
		s.maybeEmitEnd()
		return nil, false
	}

	var item any
	if s.mode == ModeObject {
		item = s.buf.shift()
	} else {
		if len(s.buf.items) > 1 {
			s.buf.coalesce()
		}
		if n < 0 {
			item = s.buf.shift()
		} else {
			item = s.splitHead(n)
		}
	}

	s.events.emitData("data", item)
	if s.buf.empty() && !s.eof {
		s.emitDrain()
	}
	s.maybeEmitEnd()
	return item, true
}

func (s *Stream) splitHead(n int) any {
	head := s.buf.items[0]
	switch v := head.(type) {
	case []byte:
		if n >= len(v) {
			return s.buf.shift()
		}
		prefix := append([]byte(nil), v[:n]...)
		s.buf.items[0] = v[n:]
		s.buf.length -= n
		return prefix
	case string:
		runes := []rune(v)
		if n >= len(runes) {
			return s.buf.shift()
		}
		prefix := string(runes[:n])
		s.buf.items[0] = string(runes[n:])
		s.buf.length -= n
		return prefix
	}
	return nil
}

// ---- consumption mode transitions (spec §4.5) ----

// Pause stops automatic emission: data accumulates in the buffer until the
// next Read, Resume, or consumer arrival.
func (s *Stream) Pause() {
	s.flowing = false
	s.paused = true
	s.discarded = false
}

// Resume starts (or restarts) automatic emission. If no data listener or
// pipe is attached at the moment of the call, data is flowing but discarded
// (spec §4.5's "flowing-discarded" pseudo-state) rather than buffered.
func (s *Stream) Resume() {
	hadConsumers := s.dataListenerCount > 0 || len(s.pipes) > 0
	s.flowing = true
	s.paused = false
	s.discarded = !hadConsumers

	s.events.emitVoid("resume")
	s.maybeEmitEnd()

	if !s.buf.empty() {
		s.flushBufferWithoutDrain()
	} else if s.eof {
		s.maybeEmitEnd()
	} else {
		s.emitDrain()
	}
}

// ---- event emission (spec §4.8) ----

func (s *Stream) emitDataEvent(chunk any) bool {
	if s.destroyed {
		return false
	}
	if isFalsy(s.mode, chunk) {
		return false
	}
	run := func() {
		for _, p := range s.pipes {
			if !p.write(chunk) {
				s.Pause()
			}
		}
		if !s.discarded {
			s.events.emitData("data", chunk)
		}
		s.maybeEmitEnd()
	}
	s.sched.defer_(run)
	return true
}

func (s *Stream) emitReadable() {
	if s.destroyed {
		return
	}
	s.events.emitVoid("readable")
	s.maybeEmitEnd()
}

func (s *Stream) emitDrain() {
	if s.destroyed {
		return
	}
	s.events.emitVoid("drain")
	s.maybeEmitEnd()
}

// Error emits an error event: it stores the error as the "last error" (so
// late error handlers replay it), and unless a cancellation signal is
// present with no registered handler (spec's suppressed-errors rule),
// invokes every registered error handler. It also satisfies the
// ErrorReceiver interface, so a Stream can be used as an error-proxying
// pipe destination.
func (s *Stream) Error(err error) {
	s.emitErrorEvent(err)
}

func (s *Stream) emitErrorEvent(err error) {
	s.lastError = err
	s.lastErrorSet = true
	s.events.emitVoid("error-internal")
	suppressed := s.signal != nil && s.events.count("error") == 0
	if !suppressed {
		s.events.emitData("error", err)
	}
	s.maybeEmitEnd()
}

// ---- endish lifecycle (spec §4.6) ----

func (s *Stream) maybeEmitEnd() {
	if s.emittingEnd || s.emittedEnd || s.destroyed || !s.buf.empty() || !s.eof {
		return
	}
	s.emittingEnd = true
	s.emitEndEvent()
}

func (s *Stream) emitEndEvent() bool {
	if s.emittedEnd {
		return false
	}
	s.emittedEnd = true
	s.readable = false

	run := func() {
		if s.mode == ModeText {
			if tail := s.dec.end(); tail != "" {
				for _, p := range s.pipes {
					p.write(tail)
				}
				if !s.discarded {
					s.events.emitData("data", tail)
				}
			}
		}
		for _, p := range s.pipes {
			p.closePipe()
		}
		s.pipes = nil

		s.events.emitVoid("end")
		s.events.removeAll("end")

		s.afterEnd()
	}
	s.sched.defer_(run)
	return true
}

func (s *Stream) afterEnd() {
	s.prefinishEmitted = true
	s.events.emitVoid("prefinish")
	s.events.removeAll("prefinish")

	s.finishEmitted = true
	s.events.emitVoid("finish")
	s.events.removeAll("finish")

	if s.closeRequested {
		s.emitClose()
	}
	s.emittingEnd = false
}

// emitClose fires the close event. It is a no-op (to be retried later by
// the endish chain) unless end has already been emitted or the stream is
// destroyed, matching spec §4.6's gating rule.
func (s *Stream) emitClose() {
	if !s.emittedEnd && !s.destroyed {
		return
	}
	s.closeEmitted = true
	s.events.emitVoid("close")
	s.events.removeAll("close")
}

// End signals that no more data will be written, optionally writing a final
// chunk first and optionally registering a one-shot end handler. If the
// final chunk fails to write (the same usage errors Write itself can
// return), End reports the error and leaves the stream otherwise
// unaffected rather than finalizing it.
func (s *Stream) End(opts ...EndOption) (*Stream, error) {
	ec := endConfig{encoding: "utf-8"}
	for _, o := range opts {
		o(&ec)
	}

	if ec.hasChunk {
		if _, err := s.Write(ec.chunk, WithWriteEncoding(ec.encoding)); err != nil {
			return s, err
		}
	}
	if ec.cb != nil {
		s.OnEnd(ec.cb)
	}

	s.eof = true
	s.writable = false

	if s.flowing || !s.paused {
		s.maybeEmitEnd()
	}
	return s, nil
}

// ---- destroy and abort (spec §4.11) ----

// Destroy tears the stream down immediately: the buffer is cleared, no
// further data will ever be emitted, and err (if non-nil) is emitted as an
// error event, wrapped with the "destroy" operation (errors.Is and
// errors.Cause still reach err); otherwise the internal destroy marker fires
// (observed by Promise/Collect as a non-nil-but-generic termination).
// Calling Destroy on an already-destroyed stream re-emits err (unwrapped)
// or the destroy marker without re-running teardown.
func (s *Stream) Destroy(err error) {
	if s.destroyed {
		if err != nil {
			s.emitErrorEvent(err)
		} else {
			s.events.emitVoid("destroy-internal")
		}
		return
	}

	s.destroyed = true
	s.discarded = true
	s.buf = newBuffer(s.mode)

	alreadyRequested := s.closeRequested
	s.closeRequested = true
	if s.closeHook != nil && !alreadyRequested {
		s.closeHook()
	}
	if s.signalDone != nil && !alreadyRequested {
		close(s.signalDone)
	}

	if err != nil {
		s.emitErrorEvent(destroyError("destroy", err))
	} else {
		s.events.emitVoid("destroy-internal")
	}
	s.emitClose()
	s.sched.stop()
}

func (s *Stream) abort(reason error) {
	if s.aborted {
		return
	}
	s.aborted = true
	s.events.emitData("abort", reason)
	s.Destroy(reason)
}

// ---- event registration (spec §4.9) ----

// OnData registers a handler for every emitted data chunk. Registering a
// data handler clears the discarded latch and, if no pipe is attached and
// the stream is not already flowing, starts flow.
func (s *Stream) OnData(fn func(chunk any)) Unsubscribe {
	s.discarded = false
	s.dataListenerCount++
	h := &handler{data: fn}
	s.events.on("data", h)
	if len(s.pipes) == 0 && !s.flowing {
		s.Resume()
	}
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		s.events.off("data", h)
		s.dataListenerCount--
		if s.dataListenerCount < 0 {
			s.dataListenerCount = 0
		}
		if s.dataListenerCount == 0 && !s.discarded && len(s.pipes) == 0 {
			s.flowing = false
		}
	}
}

// OnReadable registers a handler fired after every write that leaves the
// buffer non-empty. If the buffer is already non-empty at registration time, fn
// fires once immediately in addition to future emissions.
func (s *Stream) OnReadable(fn func()) Unsubscribe {
	if !s.buf.empty() {
		fn()
	}
	h := &handler{void: fn}
	s.events.on("readable", h)
	return func() { s.events.off("readable", h) }
}

// OnDrain registers a handler fired whenever the buffer becomes empty after
// a Read, and whenever Resume finds the buffer empty, while EOF has not yet
// been seen.
func (s *Stream) OnDrain(fn func()) Unsubscribe {
	h := &handler{void: fn}
	s.events.on("drain", h)
	return func() { s.events.off("drain", h) }
}

// OnResume registers a handler fired whenever Resume runs.
func (s *Stream) OnResume(fn func()) Unsubscribe {
	h := &handler{void: fn}
	s.events.on("resume", h)
	return func() { s.events.off("resume", h) }
}

// OnAbort registers a handler fired once, with the cancellation reason, if
// the stream's signal fires.
func (s *Stream) OnAbort(fn func(reason error)) Unsubscribe {
	h := &handler{data: func(c any) { fn(c.(error)) }}
	s.events.on("abort", h)
	return func() { s.events.off("abort", h) }
}

// OnError registers an error handler. If an error has already been emitted,
// fn is invoked immediately (or on the next deferral-queue turn in async
// mode) with the stored error, matching spec's late-subscription replay.
func (s *Stream) OnError(fn func(err error)) Unsubscribe {
	if s.lastErrorSet {
		err := s.lastError
		s.sched.defer_(func() { fn(err) })
	}
	h := &handler{data: func(c any) { fn(c.(error)) }}
	s.events.on("error", h)
	return func() { s.events.off("error", h) }
}

// OnEnd registers a handler for the end event. If end has already fired,
// fn is invoked immediately (deferred one turn in async mode) and is not
// otherwise registered, matching spec's late-subscription replay-once rule.
func (s *Stream) OnEnd(fn func()) Unsubscribe {
	if s.emittedEnd {
		s.sched.defer_(fn)
		return func() {}
	}
	h := &handler{void: fn}
	s.events.on("end", h)
	return func() { s.events.off("end", h) }
}

// OnPrefinish registers a handler for the prefinish event, with the same
// late-subscription replay rule as OnEnd.
func (s *Stream) OnPrefinish(fn func()) Unsubscribe {
	if s.prefinishEmitted {
		s.sched.defer_(fn)
		return func() {}
	}
	h := &handler{void: fn}
	s.events.on("prefinish", h)
	return func() { s.events.off("prefinish", h) }
}

// OnFinish registers a handler for the finish event, with the same
// late-subscription replay rule as OnEnd.
func (s *Stream) OnFinish(fn func()) Unsubscribe {
	if s.finishEmitted {
		s.sched.defer_(fn)
		return func() {}
	}
	h := &handler{void: fn}
	s.events.on("finish", h)
	return func() { s.events.off("finish", h) }
}

// OnClose registers a handler for the close event, with the same
// late-subscription replay rule as OnEnd.
func (s *Stream) OnClose(fn func()) Unsubscribe {
	if s.closeEmitted {
		s.sched.defer_(fn)
		return func() {}
	}
	h := &handler{void: fn}
	s.events.on("close", h)
	return func() { s.events.off("close", h) }
}

func (s *Stream) onDestroyMarker(fn func()) Unsubscribe {
	h := &handler{void: fn}
	s.events.on("destroy-internal", h)
	return func() { s.events.off("destroy-internal", h) }
}

// RemoveAllListeners removes every handler registered for event. Passing ""
// removes every handler for every event. Either form, when it clears the
// last data listener with no pipes attached and the stream not explicitly
// discarded, performs an implicit Pause (spec §4.5).
func (s *Stream) RemoveAllListeners(event string) {
	s.events.removeAll(event)
	if event == "data" || event == "" {
		s.dataListenerCount = 0
		if !s.discarded && len(s.pipes) == 0 {
			s.flowing = false
		}
	}
}
