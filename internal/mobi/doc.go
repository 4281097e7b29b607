// Package mobi decodes legacy MOBI / PalmDOC e-book containers into text,
// metadata and images.
//
// A container is a Palm database: a 78-byte header, a table of record
// offsets and the records themselves. Record 0 carries a PalmDOC header
// and, for MOBI books, a MOBI header optionally followed by an EXTH
// metadata block. Records 1..n hold (usually PalmDOC-compressed) text,
// and image records follow from the MOBI header's first-image index.
//
// Use [Parse] to decode a whole buffer:
//
//	doc, err := mobi.Parse(data)
//	if err != nil {
//	    return err
//	}
//	for _, ch := range doc.Chapters {
//	    fmt.Println(ch.Title)
//	}
//
// Parsing is a pure function of the input. Malformed regions degrade to
// empty fields; only an unreadable record-offset table is reported as an
// error ([ErrInvalidContainer], [ErrTruncatedOffsetTable]).
//
// Huffman/CDIC compressed text is not decoded; such records pass through
// as raw bytes.
package mobi
