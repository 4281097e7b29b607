package txt

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// Encoding names the character encoding DecodeText settled on.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
	EncodingCP1252  Encoding = "windows-1252"
)

// sniffWindow is how many leading bytes the UTF-8 validator looks at.
const sniffWindow = 64 * 1024

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts raw file bytes to NFC-normalised text with "\n" line
// endings. A byte-order mark wins; otherwise the first sniffWindow bytes
// are checked for well-formed UTF-8 and anything else is read as
// Windows-1252.
func DecodeText(data []byte) (string, Encoding) {
	var (
		text string
		enc  Encoding
	)
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		text, enc = string(data[len(bomUTF8):]), EncodingUTF8
	case bytes.HasPrefix(data, bomUTF16LE):
		text, enc = decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data), EncodingUTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		text, enc = decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data), EncodingUTF16BE
	case looksLikeUTF8(data):
		text, enc = string(data), EncodingUTF8
	default:
		text, enc = decodeWith(charmap.Windows1252, data), EncodingCP1252
	}

	text = strings.ToValidUTF8(text, "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text), enc
}

func decodeWith(e encoding.Encoding, data []byte) string {
	out, err := e.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// looksLikeUTF8 validates a sample window. A multi-byte sequence cut off by
// the end of the window is not held against the input.
func looksLikeUTF8(data []byte) bool {
	sample := data
	if len(sample) > sniffWindow {
		sample = sample[:sniffWindow]
		for i := 1; i <= utf8.UTFMax; i++ {
			tail := sample[len(sample)-i:]
			if utf8.RuneStart(tail[0]) {
				if !utf8.FullRune(tail) {
					sample = sample[:len(sample)-i]
				}
				break
			}
		}
	}
	return utf8.Valid(sample)
}
