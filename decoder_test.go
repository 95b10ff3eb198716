package stream

import "testing"

func TestDecoder_WholeCodepointsDecodeImmediately(t *testing.T) {
	d := newDecoder()
	got := d.write([]byte("hello"))
	if got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
	if d.hasPending() {
		t.Fatalf("decoder should have no pending bytes")
	}
}

func TestDecoder_SplitCodepointAcrossTwoWrites(t *testing.T) {
	d := newDecoder()
	// 'é' is 0xC3 0xA9 in utf-8; split the two bytes across separate writes.
	full := []byte("é")
	if len(full) != 2 {
		t.Fatalf("test assumption broken: len(é) = %d", len(full))
	}

	got := d.write(full[:1])
	if got != "" {
		t.Fatalf("partial codepoint should decode to empty string, got %q", got)
	}
	if !d.hasPending() {
		t.Fatalf("decoder should be holding back the partial byte")
	}

	got = d.write(full[1:])
	if got != "é" {
		t.Fatalf("got %q, want é", got)
	}
	if d.hasPending() {
		t.Fatalf("decoder should have flushed its pending byte")
	}
}

func TestDecoder_End_FlushesIncompleteTrailAsReplacementChar(t *testing.T) {
	d := newDecoder()
	full := []byte("é")
	d.write(full[:1])
	got := d.end()
	if got != "�" {
		t.Fatalf("got %q, want the replacement character", got)
	}
	if d.hasPending() {
		t.Fatalf("end should clear pending bytes")
	}
}

func TestDecoder_EndWithNoPendingReturnsEmpty(t *testing.T) {
	d := newDecoder()
	d.write([]byte("abc"))
	if got := d.end(); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
