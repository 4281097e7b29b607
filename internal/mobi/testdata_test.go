package mobi

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/readmigo/reader/internal/palmdoc"
)

const testMOBIHeaderLen = 0xE8

type exthEntry struct {
	typ   uint32
	value string
}

// testBook describes a synthetic container for buildContainer.
type testBook struct {
	name        string
	noMOBI      bool
	encoding    uint32
	compression Compression
	exth        []exthEntry
	fullName    string
	text        []byte
	extraFlags  uint16
	trailing    []byte // appended to every text record
	images      [][]byte
}

// buildContainer assembles a Palm database from b. It calls t.Fatal on
// impossible layouts.
func buildContainer(t *testing.T, b testBook) []byte {
	t.Helper()

	if b.compression == 0 {
		b.compression = CompressionPalmDoc
	}

	var textRecords [][]byte
	for i := 0; i < len(b.text); i += 4096 {
		chunk := b.text[i:min(i+4096, len(b.text))]
		if b.compression == CompressionPalmDoc {
			chunk = palmdoc.Compress(chunk)
		}
		rec := append(append([]byte{}, chunk...), b.trailing...)
		textRecords = append(textRecords, rec)
	}

	rec0 := make([]byte, 16)
	binary.BigEndian.PutUint16(rec0[0:], uint16(b.compression))
	binary.BigEndian.PutUint32(rec0[4:], uint32(len(b.text)))
	binary.BigEndian.PutUint16(rec0[8:], uint16(len(textRecords)))
	binary.BigEndian.PutUint16(rec0[10:], 4096)

	if !b.noMOBI {
		hdr := make([]byte, testMOBIHeaderLen)
		copy(hdr, "MOBI")
		binary.BigEndian.PutUint32(hdr[4:], testMOBIHeaderLen)
		binary.BigEndian.PutUint32(hdr[8:], 2)
		enc := b.encoding
		if enc == 0 {
			enc = EncodingUTF8
		}
		binary.BigEndian.PutUint32(hdr[12:], enc)
		rec0 = append(rec0, hdr...)

		firstImage := uint32(noImageIndex)
		if len(b.images) > 0 {
			firstImage = uint32(1 + len(textRecords))
		}
		binary.BigEndian.PutUint32(rec0[offFirstImage:], firstImage)
		binary.BigEndian.PutUint16(rec0[offExtraFlags:], b.extraFlags)

		if len(b.exth) > 0 {
			binary.BigEndian.PutUint32(rec0[offEXTHFlags:], 0x40)
			var body bytes.Buffer
			for _, e := range b.exth {
				binary.Write(&body, binary.BigEndian, e.typ)
				binary.Write(&body, binary.BigEndian, uint32(8+len(e.value)))
				body.WriteString(e.value)
			}
			exth := []byte("EXTH")
			exth = binary.BigEndian.AppendUint32(exth, uint32(12+body.Len()))
			exth = binary.BigEndian.AppendUint32(exth, uint32(len(b.exth)))
			exth = append(exth, body.Bytes()...)
			rec0 = append(rec0, exth...)
		}

		if b.fullName != "" {
			binary.BigEndian.PutUint32(rec0[offFullNameOffset:], uint32(len(rec0)))
			binary.BigEndian.PutUint32(rec0[offFullNameLength:], uint32(len(b.fullName)))
			rec0 = append(rec0, b.fullName...)
			rec0 = append(rec0, 0, 0)
		}
	}

	records := append([][]byte{rec0}, textRecords...)
	records = append(records, b.images...)

	header := make([]byte, palmHeaderSize)
	copy(header, b.name)
	copy(header[60:], "BOOKMOBI")
	binary.BigEndian.PutUint16(header[76:], uint16(len(records)))

	offset := palmHeaderSize + len(records)*recordEntrySize + 2
	var table, body []byte
	for i, rec := range records {
		table = binary.BigEndian.AppendUint32(table, uint32(offset))
		table = binary.BigEndian.AppendUint32(table, uint32(i*2))
		body = append(body, rec...)
		offset += len(rec)
	}

	out := append(header, table...)
	out = append(out, 0, 0)
	return append(out, body...)
}

// testPNG encodes a w x h PNG image.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("testPNG: %v", err)
	}
	return buf.Bytes()
}
