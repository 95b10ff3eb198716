package stream

import "context"

// SyncIterator pulls already-buffered chunks from a Stream without blocking,
// the Go rendition of spec §5's synchronous iteration surface: it never
// waits for more data, it only drains what Read already has available.
type SyncIterator struct {
	s *Stream
}

// Iter returns a SyncIterator over s.
func (s *Stream) Iter() *SyncIterator { return &SyncIterator{s: s} }

// Next returns the next buffered chunk, or ok == false if the buffer is
// currently empty (whether or not the stream has ended).
func (it *SyncIterator) Next() (chunk any, ok bool) {
	return it.s.Read()
}

// Done reports whether the stream has both ended and drained, meaning Next
// will never again return ok == true.
func (it *SyncIterator) Done() bool {
	return it.s.emittedEnd && it.s.buf.empty()
}

// AsyncIterator pulls chunks from a Stream one at a time, blocking via
// channel receive until a chunk is available, end is reached, or the
// context is canceled. It is the Go analogue of spec §5's asynchronous
// for-await consumption mode, since Go has no native async generator
// protocol; this is a pull loop built on OnData/OnEnd/OnError/OnAbort
// subscriptions feeding a single buffered channel, in the teacher's style
// of building sequential read APIs atop event callbacks
// (code.hybscloud.com/framer's Read wrapping onReadable).
type AsyncIterator struct {
	s       *Stream
	items   chan any
	done    chan struct{}
	errOnce error
	unsub   []Unsubscribe
}

// Range returns an AsyncIterator consuming every chunk s emits from this
// point forward. It switches s into flowing mode.
func (s *Stream) Range() *AsyncIterator {
	it := &AsyncIterator{
		s:     s,
		items: make(chan any, 16),
		done:  make(chan struct{}),
	}
	var closeOnce bool
	closeDone := func() {
		if !closeOnce {
			closeOnce = true
			close(it.done)
		}
	}

	it.unsub = append(it.unsub, s.OnData(func(chunk any) {
		select {
		case it.items <- chunk:
		case <-it.done:
		}
	}))
	it.unsub = append(it.unsub, s.OnEnd(closeDone))
	it.unsub = append(it.unsub, s.OnError(func(err error) {
		it.errOnce = err
		closeDone()
	}))
	it.unsub = append(it.unsub, s.OnAbort(func(reason error) {
		it.errOnce = reason
		closeDone()
	}))

	return it
}

// Next blocks until a chunk arrives, the stream ends, the stream errors, or
// ctx is canceled, whichever happens first.
func (it *AsyncIterator) Next(ctx context.Context) (chunk any, err error) {
	select {
	case c, ok := <-it.items:
		if ok {
			return c, nil
		}
	case <-it.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case c := <-it.items:
		return c, nil
	default:
	}
	if it.errOnce != nil {
		return nil, it.errOnce
	}
	return nil, nil
}

// Stop unsubscribes the iterator from its stream. Safe to call more than
// once.
func (it *AsyncIterator) Stop() {
	for _, u := range it.unsub {
		if u != nil {
			u()
		}
	}
	it.unsub = nil
}
