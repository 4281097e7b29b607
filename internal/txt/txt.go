// Package txt turns plain-text books into chapters.
//
// Plain text carries no structure, so chapters are found by matching
// heading lines against an ordered pattern list (see DefaultPatterns) and
// paragraphs by re-joining wrapped lines.
package txt

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Document is a decoded and segmented plain-text book.
type Document struct {
	Title    string
	Encoding Encoding
	Chapters []Chapter
}

// Parse decodes data and segments it with the default Segmenter.
func Parse(data []byte, title string) *Document {
	return NewSegmenter().Parse(data, title)
}

// Parse decodes data and segments it.
func (s *Segmenter) Parse(data []byte, title string) *Document {
	text, enc := DecodeText(data)
	return &Document{
		Title:    fallbackTitle(title),
		Encoding: enc,
		Chapters: s.Segment(text, title),
	}
}

// ToHTML renders a chapter as a heading followed by one paragraph
// element per paragraph. All text is escaped.
func ToHTML(ch Chapter) string {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(ch.Title))
	b.WriteString("</h2>\n")
	for _, p := range ch.Paragraphs {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p))
		b.WriteString("</p>\n")
	}
	return b.String()
}

// WordCount counts whitespace-separated words, with every Han, kana or
// Hangul rune counted as a word of its own.
func WordCount(text string) int {
	n := 0
	for _, field := range strings.Fields(text) {
		cjk, other := 0, false
		for _, r := range field {
			if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
				cjk++
			} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
				other = true
			}
		}
		n += cjk
		if other {
			n++
		}
	}
	return n
}
