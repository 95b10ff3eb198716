package stream

import "context"

// CollectResult is the outcome of draining a Stream to completion: either it
// ended cleanly, with every chunk observed in Items, or it terminated early
// via error/abort/destroy, in which case Err is set and Items holds
// whatever was collected before termination. DataLength is the aggregate
// byte length (Bytes mode) or character length (Text mode) of Items,
// computed the same way buffer.length is; spec §4.10 fixes it at 0 for
// Object mode regardless of item count, since "size" has no meaning there.
type CollectResult struct {
	Items      []any
	DataLength int
	Err        error
}

// Collect drains s to completion, accumulating every emitted chunk, and
// blocks until the stream ends, errors, aborts, is destroyed, or ctx is
// canceled. It is the Go rendition of spec §5's promise-returning "collect
// everything" convenience, built the same way the teacher's higher-level
// helpers are: composed from the lower-level event/read primitives rather
// than a separate implementation.
func Collect(ctx context.Context, s *Stream) CollectResult {
	var (
		items  []any
		result = make(chan CollectResult, 1)
		sent   bool
	)
	send := func(err error) {
		if sent {
			return
		}
		sent = true
		result <- CollectResult{Items: items, DataLength: dataLength(s.mode, items), Err: err}
	}

	unData := s.OnData(func(chunk any) { items = append(items, chunk) })
	unEnd := s.OnEnd(func() { send(nil) })
	unErr := s.OnError(func(err error) { send(err) })
	unAbort := s.OnAbort(func(reason error) { send(reason) })
	unDestroy := s.onDestroyMarker(func() { send(ErrStreamDestroyed) })
	defer func() {
		unData()
		unEnd()
		unErr()
		unAbort()
		unDestroy()
	}()

	select {
	case r := <-result:
		return r
	case <-ctx.Done():
		return CollectResult{Items: items, DataLength: dataLength(s.mode, items), Err: ctx.Err()}
	}
}

// dataLength computes CollectResult.DataLength for a finished collection:
// 0 for Object mode (spec §4.10), otherwise the same sizeOf aggregate
// buffer.length tracks, by replaying items through a scratch buffer rather
// than reimplementing the size rule.
func dataLength(mode Mode, items []any) int {
	if mode == ModeObject {
		return 0
	}
	tmp := newBuffer(mode)
	for _, it := range items {
		tmp.push(it)
	}
	return tmp.length
}

// Promise drains s to completion without accumulating data, reporting only
// whether it finished cleanly. It is the Go rendition of spec §4.10's
// promise() → future<void>: resolves (nil) when s ends, rejects with the
// triggering error/abort reason when s errors, aborts, or is destroyed, or
// with ctx.Err() if ctx is canceled first. Built from the same event
// subscriptions as Collect, minus the OnData accumulation.
func Promise(ctx context.Context, s *Stream) error {
	var (
		result = make(chan error, 1)
		sent   bool
	)
	send := func(err error) {
		if sent {
			return
		}
		sent = true
		result <- err
	}

	unEnd := s.OnEnd(func() { send(nil) })
	unErr := s.OnError(func(err error) { send(err) })
	unAbort := s.OnAbort(func(reason error) { send(reason) })
	unDestroy := s.onDestroyMarker(func() { send(ErrStreamDestroyed) })
	defer func() {
		unEnd()
		unErr()
		unAbort()
		unDestroy()
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Concat drains s to completion like Collect, then joins every collected
// chunk into a single value using the same rule buffer.coalesce applies:
// byte-concatenation for Bytes mode, string-concatenation for Text mode.
// Concat in Object mode is a usage error reported as ErrConcatObjectMode
// rather than panicking, the same convention Write follows.
func Concat(ctx context.Context, s *Stream) (any, error) {
	if s.mode == ModeObject {
		return nil, ErrConcatObjectMode
	}
	res := Collect(ctx, s)
	if res.Err != nil {
		return nil, res.Err
	}
	if len(res.Items) == 0 {
		if s.mode == ModeText {
			return "", nil
		}
		return []byte{}, nil
	}

	tmp := newBuffer(s.mode)
	for _, it := range res.Items {
		tmp.push(it)
	}
	tmp.coalesce()
	return tmp.items[0], nil
}
