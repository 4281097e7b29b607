package mobi

import (
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Detect reports whether data looks like a Palm database e-book
// ("BOOKMOBI" or "TEXtREAd" at offset 60).
func Detect(data []byte) bool {
	if len(data) < palmHeaderSize {
		return false
	}
	sig := string(data[60:68])
	return sig == "BOOKMOBI" || sig == "TEXtREAd"
}

// Parse decodes a container using the default logger.
func Parse(data []byte) (*Document, error) {
	return ParseWithLogger(data, nil)
}

// ParseWithLogger decodes a container into a Document.
//
// Only an unreadable record-offset table is an error. A missing MOBI header
// yields Palm-name-only metadata and a single chapter.
func ParseWithLogger(data []byte, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	palm, records, err := parsePalmHeader(data)
	if err != nil {
		return nil, err
	}

	rec0 := records[0]
	doc := &Document{
		Palm:   palm,
		Text:   parseTextHeader(rec0),
		MOBI:   parseMOBIHeader(rec0),
		Images: map[string]Image{},
	}
	doc.Metadata.Title = palm.Name

	var encoding uint32
	if doc.MOBI != nil {
		encoding = doc.MOBI.TextEncoding
		applyMetadata(&doc.Metadata, rec0, doc.MOBI, encoding)
	} else {
		logger.Warn("container has no MOBI header, using single chapter", "name", palm.Name)
	}

	if doc.Text.EncryptionType != 0 {
		logger.Warn("container declares encryption, text may be unreadable", "type", doc.Text.EncryptionType)
	}

	raw := extractText(records, doc.Text, doc.MOBI, logger)

	var byIndex map[int]string
	doc.Images, byIndex = extractImages(records, doc.MOBI)

	// Image links are rewritten per slice so filepos offsets stay valid
	decode := func(b []byte) string {
		return norm.NFC.String(decodeText(linkImages(b, byIndex), encoding))
	}
	doc.HTML = decode(raw)
	doc.CSS = extractCSS(doc.HTML)

	if doc.MOBI == nil {
		doc.TextOnly = true
		doc.Chapters = []Chapter{newChapter(0, fallbackTitle(doc.Metadata.Title), doc.HTML)}
	} else {
		doc.Chapters = splitChapters(raw, fallbackTitle(doc.Metadata.Title), decode)
	}

	logger.Debug("parsed container",
		"name", palm.Name,
		"records", palm.NumRecords,
		"compression", doc.Text.Compression.String(),
		"chapters", len(doc.Chapters),
		"images", len(doc.Images))

	return doc, nil
}

func fallbackTitle(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}

// applyMetadata fills metadata from the full-name field and EXTH records.
func applyMetadata(md *Metadata, rec0 []byte, mh *MOBIHeader, encoding uint32) {
	text := func(b []byte) string {
		return norm.NFC.String(strings.TrimSpace(decodeText(b, encoding)))
	}

	if name := fullName(rec0, mh); len(name) > 0 {
		md.Title = text(name)
	}

	exth := parseEXTH(rec0, mh)
	if v, ok := exth[exthUpdatedTitle]; ok && len(v) > 0 {
		md.Title = text(v)
	}
	md.Author = text(exth[exthAuthor])
	md.Publisher = text(exth[exthPublisher])
	md.Description = text(exth[exthDescription])
	md.ISBN = text(exth[exthISBN])
	md.Language = NormalizeLanguage(text(exth[exthLanguage]))
}

// NormalizeLanguage canonicalises a language tag ("en-us" -> "en-US").
// Unparseable values are returned trimmed but otherwise unchanged.
func NormalizeLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return t.String()
}
