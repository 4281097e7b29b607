package source

import (
	"bytes"

	"github.com/readmigo/reader/internal/mobi"
)

// Format identifies the file format of a local book
type Format int

const (
	FormatUnknown Format = iota
	FormatMOBI
	FormatHTML
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatMOBI:
		return "mobi"
	case FormatHTML:
		return "html"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// sniffLen bounds how much of a file DetectFormat inspects
const sniffLen = 512

var htmlPrefixes = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<body"),
	[]byte("<?xml"),
}

// DetectFormat guesses the format from the leading bytes of data.
// Palm databases are matched by their type/creator signature, markup by a
// leading document tag, and anything else that is not binary is text.
func DetectFormat(data []byte) Format {
	if mobi.Detect(data) {
		return FormatMOBI
	}
	if len(data) == 0 {
		return FormatUnknown
	}

	head := data[:min(len(data), sniffLen)]
	if bytes.HasPrefix(head, []byte{0xFF, 0xFE}) || bytes.HasPrefix(head, []byte{0xFE, 0xFF}) {
		return FormatText
	}

	trimmed := bytes.ToLower(bytes.TrimLeft(bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF}), " \t\r\n"))
	for _, p := range htmlPrefixes {
		if bytes.HasPrefix(trimmed, p) {
			return FormatHTML
		}
	}

	if bytes.IndexByte(head, 0) >= 0 {
		return FormatUnknown
	}
	return FormatText
}
