package stream

import "bytes"

// buffer is an ordered queue of pending payload items plus a cached
// aggregate size. The size metric depends on mode: byte length for Bytes,
// character count for Text, item count for Object.
//
// length is tracked incrementally on push/shift/coalesce and is never
// recomputed by summing items, matching spec's "bufferLength is exact,
// never computed lazily" invariant.
type buffer struct {
	mode  Mode
	items []any
	length int
}

func newBuffer(mode Mode) *buffer {
	return &buffer{mode: mode}
}

func (b *buffer) empty() bool { return len(b.items) == 0 }

func sizeOf(mode Mode, item any) int {
	switch mode {
	case ModeObject:
		return 1
	case ModeText:
		return len([]rune(item.(string)))
	default: // ModeBytes
		return len(item.([]byte))
	}
}

// push appends item and updates the cached length.
func (b *buffer) push(item any) {
	b.items = append(b.items, item)
	b.length += sizeOf(b.mode, item)
}

// shift removes and returns the head item, updating the cached length.
// It must not be called on an empty buffer.
func (b *buffer) shift() any {
	item := b.items[0]
	b.items = b.items[1:]
	b.length -= sizeOf(b.mode, item)
	return item
}

// coalesce replaces the buffer's contents with a single aggregated item when
// there are 2 or more items and mode is not Object. It is used only by the
// read(n) slow path (§4.1/§4.4): callers that only ever push/shift/emit
// whole items never need it.
func (b *buffer) coalesce() {
	if b.mode == ModeObject || len(b.items) < 2 {
		return
	}
	switch b.mode {
	case ModeText:
		var sb []byte
		total := 0
		for _, it := range b.items {
			total += len(it.(string))
		}
		sb = make([]byte, 0, total)
		for _, it := range b.items {
			sb = append(sb, it.(string)...)
		}
		b.items = []any{string(sb)}
	default: // ModeBytes
		var buf bytes.Buffer
		for _, it := range b.items {
			buf.Write(it.([]byte))
		}
		b.items = []any{buf.Bytes()}
	}
	// length is unchanged by coalescing: the aggregate size metric of a
	// join/concat equals the sum of the parts' size metrics.
}
