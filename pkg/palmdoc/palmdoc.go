// Package palmdoc implements the PalmDOC LZ77-variant content codec used
// on stored records. It is the only non-trivial content
// codec in the HotSync stack.
package palmdoc

import "github.com/palmsync/hotsync-nexus/pkg/codec"

const (
	minMatchLen = 3
	maxMatchLen = 10
	maxDistance = 2047
)

// Decompress expands a PalmDOC-encoded byte stream per the classic
// token rules: literal runs, single literals, back-references, and the
// space+XOR pair shorthand.
func Decompress(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)*2)

	for i := 0; i < len(src); {
		b1 := src[i]
		switch {
		case b1 == 0x00:
			out = append(out, 0x00)
			i++

		case b1 >= 0x01 && b1 <= 0x08:
			n := int(b1)
			i++
			if i+n > len(src) {
				return nil, codec.EncodingError("palmdoc: literal run of %d bytes overruns input at offset %d", n, i)
			}
			out = append(out, src[i:i+n]...)
			i += n

		case b1 >= 0x09 && b1 <= 0x7F:
			out = append(out, b1)
			i++

		case b1 >= 0x80 && b1 <= 0xBF:
			if i+1 >= len(src) {
				return nil, codec.EncodingError("palmdoc: truncated back-reference token at offset %d", i)
			}
			b2 := src[i+1]
			word := uint16(b1&0x3F)<<8 | uint16(b2)
			distance := int(word >> 3)
			length := int(word&0x07) + 3
			if distance < 1 || distance > len(out) {
				return nil, codec.EncodingError("palmdoc: back-reference distance %d exceeds decoded length %d", distance, len(out))
			}
			start := len(out) - distance
			for j := 0; j < length; j++ {
				out = append(out, out[start+j])
			}
			i += 2

		default: // 0xC0-0xFF
			out = append(out, ' ', b1^0x80)
			i++
		}
	}
	return out, nil
}

// Compress encodes src using the classic PalmDOC greedy strategy: at
// each position, prefer the longest back-reference within the
// 2047-byte window (3-10 bytes), else a space+XOR pair, else a single
// literal, else a multi-byte literal run.
func Compress(src []byte) []byte {
	out := make([]byte, 0, len(src))

	i := 0
	for i < len(src) {
		if dist, length, ok := findMatch(src, i); ok {
			word := uint16((dist << 3) | (length - 3))
			b1 := byte(0x80 | (word>>8)&0x3F)
			b2 := byte(word)
			out = append(out, b1, b2)
			i += length
			continue
		}

		if i+1 < len(src) && src[i] == ' ' && src[i+1] >= 0x40 && src[i+1] < 0x80 {
			out = append(out, src[i+1]^0x80)
			i += 2
			continue
		}

		b := src[i]
		if b == 0x00 || (b >= 0x09 && b <= 0x7F) {
			out = append(out, b)
			i++
			continue
		}

		// Multi-byte literal run: consume up to 8 bytes that cannot be
		// represented by any of the other three token types.
		run := 1
		for run < 8 && i+run < len(src) && !literalEncodable(src[i+run]) {
			run++
		}
		out = append(out, byte(run))
		out = append(out, src[i:i+run]...)
		i += run
	}
	return out
}

// literalEncodable reports whether b can stand alone as a single-byte
// literal token (0x00 or 0x09-0x7F) — used to decide when a multi-byte
// literal run must end so the following byte can be emitted via its own
// more specific token.
func literalEncodable(b byte) bool {
	return b == 0x00 || (b >= 0x09 && b <= 0x7F)
}

// findMatch looks for the longest back-reference of length in
// [minMatchLen, maxMatchLen] within maxDistance bytes preceding position
// i, falling back to shorter matches when no longer one is found.
func findMatch(src []byte, i int) (distance, length int, ok bool) {
	if i+minMatchLen > len(src) {
		return 0, 0, false
	}

	windowStart := i - maxDistance
	if windowStart < 0 {
		windowStart = 0
	}

	bestLen := 0
	bestDist := 0
	maxLen := maxMatchLen
	if i+maxLen > len(src) {
		maxLen = len(src) - i
	}

	for start := windowStart; start < i; start++ {
		l := matchLength(src, start, i, maxLen)
		if l >= minMatchLen && l > bestLen {
			bestLen = l
			bestDist = i - start
		}
	}

	if bestLen == 0 {
		return 0, 0, false
	}
	return bestDist, bestLen, true
}

// matchLength returns how many bytes starting at cur match the bytes
// starting at start, up to maxLen, allowing overlapping copies (start <
// cur) exactly as the decoder's byte-by-byte copy does.
func matchLength(src []byte, start, cur, maxLen int) int {
	n := 0
	for n < maxLen && cur+n < len(src) && src[start+n] == src[cur+n] {
		n++
	}
	return n
}
