// Package palmdoc implements the LZ77-style byte compression used by
// PalmDOC and MOBI text records.
//
// The encoded stream is a sequence of opcodes:
//
//	0x00        literal NUL
//	0x01..0x08  copy the next n bytes verbatim
//	0x09..0x7F  literal byte
//	0x80..0xBF  two-byte back-reference (11-bit distance, 3-bit length-3)
//	0xC0..0xFF  space followed by (byte ^ 0x80)
package palmdoc

const (
	maxDistance = 2047
	minMatch    = 3
	maxMatch    = 10
	maxLiteral  = 8
)

// Decompress decodes a PalmDOC compressed record.
// It never fails: a back-reference pointing before the start of the output
// ends decoding of the record, and a truncated literal run copies what is left.
func Decompress(src []byte) []byte {
	out := make([]byte, 0, len(src)*2)

	for i := 0; i < len(src); {
		b := src[i]
		i++

		switch {
		case b == 0x00 || (b >= 0x09 && b <= 0x7F):
			out = append(out, b)

		case b <= 0x08:
			n := int(b)
			if i+n > len(src) {
				n = len(src) - i
			}
			out = append(out, src[i:i+n]...)
			i += n

		case b <= 0xBF:
			if i >= len(src) {
				return out
			}
			pair := int(b&0x3F)<<8 | int(src[i])
			i++
			distance := pair >> 3
			length := pair&0x07 + minMatch
			if distance == 0 || distance > len(out) {
				return out
			}
			// Source and destination may overlap when distance < length,
			// so this must copy byte by byte from the growing buffer.
			start := len(out) - distance
			for k := 0; k < length; k++ {
				out = append(out, out[start+k])
			}

		default:
			out = append(out, ' ', b^0x80)
		}
	}

	return out
}

// Compress encodes src with a greedy PalmDOC encoder.
// Decompress(Compress(x)) reproduces x for every input.
func Compress(src []byte) []byte {
	out := make([]byte, 0, len(src))

	for i := 0; i < len(src); {
		if dist, length := longestMatch(src, i); length >= minMatch {
			pair := dist<<3 | (length - minMatch)
			out = append(out, byte(0x80|pair>>8), byte(pair))
			i += length
			continue
		}

		b := src[i]
		if b == ' ' && i+1 < len(src) && src[i+1] >= 0x40 && src[i+1] <= 0x7F {
			out = append(out, src[i+1]^0x80)
			i += 2
			continue
		}

		if b == 0x00 || (b >= 0x09 && b <= 0x7F) {
			out = append(out, b)
			i++
			continue
		}

		// Escape a run of bytes that cannot stand alone
		end := i + 1
		for end < len(src) && end-i < maxLiteral && needsEscape(src[end]) {
			end++
		}
		out = append(out, byte(end-i))
		out = append(out, src[i:end]...)
		i = end
	}

	return out
}

// CompressLiteral encodes src using only the verbatim-copy opcodes (1..8).
func CompressLiteral(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/maxLiteral+1)
	for i := 0; i < len(src); i += maxLiteral {
		end := min(i+maxLiteral, len(src))
		out = append(out, byte(end-i))
		out = append(out, src[i:end]...)
	}
	return out
}

func needsEscape(b byte) bool {
	return (b >= 0x01 && b <= 0x08) || b >= 0x80
}

// longestMatch finds the longest earlier occurrence of the bytes at pos
// within the back-reference window.
func longestMatch(src []byte, pos int) (distance, length int) {
	if pos+minMatch > len(src) {
		return 0, 0
	}
	limit := min(maxMatch, len(src)-pos)
	start := max(0, pos-maxDistance)

	for j := pos - 1; j >= start; j-- {
		n := 0
		for n < limit && src[j+n] == src[pos+n] {
			n++
		}
		if n > length {
			distance, length = pos-j, n
			if n == limit {
				break
			}
		}
	}
	return distance, length
}
