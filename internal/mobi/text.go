package mobi

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/readmigo/reader/internal/palmdoc"
	"golang.org/x/text/encoding/charmap"
)

// trailingEntrySize reads one backward-encoded variable-width size
// from the end of data[:size].
func trailingEntrySize(data []byte, size int) int {
	result, shift := 0, 0
	for size > 0 {
		v := data[size-1]
		result |= int(v&0x7F) << shift
		shift += 7
		size--
		if v&0x80 != 0 || shift >= 28 {
			break
		}
	}
	return result
}

// trailingBytes returns how many bytes at the end of a text record are
// trailing entries rather than compressed text.
func trailingBytes(rec []byte, flags uint16) int {
	n := 0
	for f := flags >> 1; f != 0; f >>= 1 {
		if f&1 != 0 {
			n += trailingEntrySize(rec, len(rec)-n)
			if n >= len(rec) {
				return len(rec)
			}
		}
	}
	if flags&1 != 0 && len(rec)-n-1 >= 0 {
		n += int(rec[len(rec)-n-1]&0x3) + 1
	}
	return min(n, len(rec))
}

// extractText decompresses the text records into one raw byte stream.
func extractText(records [][]byte, th TextHeader, mh *MOBIHeader, logger *slog.Logger) []byte {
	count := th.RecordCount
	if count <= 0 || count > len(records)-1 {
		count = len(records) - 1
	}

	var extraFlags uint16
	if mh != nil {
		extraFlags = mh.ExtraRecordFlags
	}

	if th.Compression == CompressionHuffman {
		logger.Warn("huffman/cdic text records are not decoded", "records", count)
	}

	var out []byte
	for i := 1; i <= count; i++ {
		rec := records[i]
		if extraFlags != 0 {
			rec = rec[:len(rec)-trailingBytes(rec, extraFlags)]
		}
		switch th.Compression {
		case CompressionPalmDoc:
			out = append(out, palmdoc.Decompress(rec)...)
		default:
			out = append(out, rec...)
		}
	}

	if th.TextLength > 0 && int(th.TextLength) < len(out) {
		out = out[:th.TextLength]
	}
	return out
}

// decodeText converts raw text bytes to a string using the declared
// encoding. Without a declaration, invalid UTF-8 is treated as CP1252.
func decodeText(raw []byte, encoding uint32) string {
	switch {
	case encoding == EncodingCP1252:
		return decodeCP1252(raw)
	case encoding == 0 && !utf8.Valid(raw):
		return decodeCP1252(raw)
	default:
		return strings.ToValidUTF8(string(raw), "�")
	}
}

func decodeCP1252(raw []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(out)
}
