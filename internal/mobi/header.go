package mobi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	palmHeaderSize  = 78
	recordEntrySize = 8
	textHeaderSize  = 16
	mobiMagicOffset = 16
)

// Record 0 offsets of MOBI fields (record-relative).
const (
	offFullNameOffset = 0x54
	offFullNameLength = 0x58
	offFirstImage     = 0x6C
	offEXTHFlags      = 0x80
	offExtraFlags     = 0xF2
	minExtraFlagsLen  = 0xE4
)

// palmEpoch is the origin of Palm OS timestamps with the high bit set.
var palmEpoch = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)

func u16(b []byte, off int) uint16 {
	if off < 0 || off+2 > len(b) {
		return 0
	}
	return binary.BigEndian.Uint16(b[off:])
}

func u32(b []byte, off int) uint32 {
	if off < 0 || off+4 > len(b) {
		return 0
	}
	return binary.BigEndian.Uint32(b[off:])
}

func palmTime(v uint32) time.Time {
	if v == 0 {
		return time.Time{}
	}
	if v&0x80000000 != 0 {
		return palmEpoch.Add(time.Duration(v) * time.Second)
	}
	return time.Unix(int64(v), 0).UTC()
}

// parsePalmHeader reads the fixed database header and the record table.
// The returned slices hold each record's bytes, bounded by the next offset.
func parsePalmHeader(data []byte) (PalmHeader, [][]byte, error) {
	var h PalmHeader
	if len(data) < palmHeaderSize {
		return h, nil, fmt.Errorf("%w: %d bytes is shorter than the database header", ErrInvalidContainer, len(data))
	}

	name := data[:32]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	h.Name = string(bytes.TrimSpace(name))
	h.Attributes = u16(data, 32)
	h.Version = u16(data, 34)
	h.Created = palmTime(u32(data, 36))
	h.Modified = palmTime(u32(data, 40))
	h.Type = string(data[60:64])
	h.Creator = string(data[64:68])
	h.NumRecords = int(u16(data, 76))

	if h.NumRecords == 0 {
		return h, nil, fmt.Errorf("%w: no records", ErrInvalidContainer)
	}
	tableEnd := palmHeaderSize + h.NumRecords*recordEntrySize
	if tableEnd > len(data) {
		return h, nil, fmt.Errorf("%w: %d records need %d bytes, have %d",
			ErrTruncatedOffsetTable, h.NumRecords, tableEnd, len(data))
	}

	offsets := make([]int, h.NumRecords)
	for i := range offsets {
		offsets[i] = int(u32(data, palmHeaderSize+i*recordEntrySize))
	}

	records := make([][]byte, h.NumRecords)
	for i, start := range offsets {
		end := len(data)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		start = min(max(start, 0), len(data))
		end = min(max(end, start), len(data))
		records[i] = data[start:end]
	}
	return h, records, nil
}

// parseTextHeader reads the PalmDOC header at the start of record 0.
func parseTextHeader(rec0 []byte) TextHeader {
	if len(rec0) < textHeaderSize {
		return TextHeader{Compression: CompressionNone}
	}
	return TextHeader{
		Compression:    Compression(u16(rec0, 0)),
		TextLength:     u32(rec0, 4),
		RecordCount:    int(u16(rec0, 8)),
		RecordSize:     int(u16(rec0, 10)),
		EncryptionType: u16(rec0, 12),
	}
}

// parseMOBIHeader returns nil when record 0 carries no MOBI magic.
func parseMOBIHeader(rec0 []byte) *MOBIHeader {
	if len(rec0) < mobiMagicOffset+8 || string(rec0[mobiMagicOffset:mobiMagicOffset+4]) != "MOBI" {
		return nil
	}
	h := &MOBIHeader{
		HeaderLength:    u32(rec0, mobiMagicOffset+4),
		Type:            u32(rec0, mobiMagicOffset+8),
		TextEncoding:    u32(rec0, mobiMagicOffset+12),
		FullNameOffset:  u32(rec0, offFullNameOffset),
		FullNameLength:  u32(rec0, offFullNameLength),
		FirstImageIndex: u32(rec0, offFirstImage),
		EXTHFlags:       u32(rec0, offEXTHFlags),
	}
	if h.HeaderLength >= minExtraFlagsLen {
		h.ExtraRecordFlags = u16(rec0, offExtraFlags)
	}
	return h
}

// fullName returns the embedded full title, or "" if the declared range
// does not fit inside record 0.
func fullName(rec0 []byte, h *MOBIHeader) []byte {
	if h == nil || h.FullNameLength == 0 {
		return nil
	}
	start := int(h.FullNameOffset)
	end := start + int(h.FullNameLength)
	if start <= 0 || end > len(rec0) || end < start {
		return nil
	}
	return rec0[start:end]
}

// EXTH record types.
const (
	exthAuthor       = 100
	exthPublisher    = 101
	exthDescription  = 103
	exthISBN         = 104
	exthUpdatedTitle = 503
	exthLanguage     = 524
)

// parseEXTH decodes the EXTH records that follow the MOBI header.
// Unknown record types are ignored; a truncated block stops early.
func parseEXTH(rec0 []byte, h *MOBIHeader) map[uint32][]byte {
	out := make(map[uint32][]byte)
	if h == nil || !h.HasEXTH() {
		return out
	}
	start := mobiMagicOffset + int(h.HeaderLength)
	if start+12 > len(rec0) || string(rec0[start:start+4]) != "EXTH" {
		return out
	}
	count := int(u32(rec0, start+8))
	pos := start + 12
	for i := 0; i < count; i++ {
		if pos+8 > len(rec0) {
			break
		}
		typ := u32(rec0, pos)
		length := int(u32(rec0, pos+4))
		if length < 8 || pos+length > len(rec0) {
			break
		}
		if _, seen := out[typ]; !seen {
			out[typ] = rec0[pos+8 : pos+length]
		}
		pos += length
	}
	return out
}
