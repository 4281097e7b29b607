package mobi

import "time"

// Compression identifies how text records are encoded.
type Compression uint16

const (
	CompressionNone    Compression = 1
	CompressionPalmDoc Compression = 2
	CompressionHuffman Compression = 17480
)

// String returns a human-readable name for the compression method.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionPalmDoc:
		return "palmdoc"
	case CompressionHuffman:
		return "huffcdic"
	default:
		return "unknown"
	}
}

// Text encodings declared by the MOBI header.
const (
	EncodingCP1252 uint32 = 1252
	EncodingUTF8   uint32 = 65001
)

// Metadata holds the descriptive fields of a book.
// Fields absent from the container are empty strings.
type Metadata struct {
	Title       string
	Author      string
	Publisher   string
	Language    string
	ISBN        string
	Description string
}

// Chapter is one inferred chapter of the document.
type Chapter struct {
	// ID is a stable identifier ("chapter-1", "chapter-2", ...).
	ID string

	// Title is the heading text, or a generated "Chapter N" title.
	Title string

	// Content is the plain text of the chapter.
	Content string

	// HTML is the raw markup fragment of the chapter.
	HTML string
}

// Image is an embedded image record.
type Image struct {
	// Name is "image_NNNNN.<ext>" where NNNNN is the 1-based image record index.
	Name string

	// MediaType is the MIME type detected from the magic bytes.
	MediaType string

	// Data is the raw image bytes.
	Data []byte

	// Width and Height are decoded from the image header (0 if undecodable).
	Width  int
	Height int
}

// PalmHeader is the fixed 78-byte Palm database header.
type PalmHeader struct {
	Name       string
	Attributes uint16
	Version    uint16
	Created    time.Time
	Modified   time.Time
	Type       string // e.g. "BOOK"
	Creator    string // e.g. "MOBI"
	NumRecords int
}

// TextHeader is the PalmDOC header at the start of record 0.
type TextHeader struct {
	Compression    Compression
	TextLength     uint32
	RecordCount    int
	RecordSize     int
	EncryptionType uint16
}

// MOBIHeader is the optional MOBI header that follows the PalmDOC header.
type MOBIHeader struct {
	HeaderLength     uint32
	Type             uint32
	TextEncoding     uint32
	FullNameOffset   uint32
	FullNameLength   uint32
	FirstImageIndex  uint32
	EXTHFlags        uint32
	ExtraRecordFlags uint16
}

// HasEXTH reports whether an EXTH block follows the MOBI header.
func (h *MOBIHeader) HasEXTH() bool {
	return h.EXTHFlags&0x40 != 0
}

// Document is the result of parsing a container.
type Document struct {
	Metadata Metadata
	Chapters []Chapter
	HTML     string
	CSS      string
	Images   map[string]Image

	Palm PalmHeader
	Text TextHeader
	MOBI *MOBIHeader // nil when the container has no MOBI header

	// TextOnly is set for PalmDOC-only containers. HTML then holds the
	// decoded text as-is, not markup.
	TextOnly bool
}
