// Package codec provides the pure byte-boundary arithmetic behind the
// stream package's decoder adapter. It holds no state and knows nothing
// about Stream, Buffer, or events, mirroring how the teacher package
// (code.hybscloud.com/framer) factors its byte-order selection out into
// internal/bo as a standalone dependency.
package codec

import "unicode/utf8"

// ValidPrefixLen returns the length of the longest prefix of b that consists
// entirely of complete UTF-8 codepoints (valid or not). Any trailing bytes
// (0 to utf8.UTFMax-1 of them) form a possibly-incomplete codepoint and must
// be retained by the caller and prepended to the next chunk.
//
// Invalid-but-complete byte sequences are counted as part of the prefix:
// it is the decoder adapter's job, not this function's, to decide whether
// to render them as the replacement character.
func ValidPrefixLen(b []byte) int {
	i := 0
	n := len(b)
	for i < n {
		if utf8.FullRune(b[i:]) {
			_, size := utf8.DecodeRune(b[i:])
			i += size
			continue
		}
		// Not a full rune: only possible at the very end of b, and only
		// when the tail could still be completed by more bytes.
		break
	}
	return i
}
