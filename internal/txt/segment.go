package txt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	defaultMinChapterParagraphs = 2
	defaultMaxHeadingLength     = 80
	prologueTitle               = "Prologue"
	untitled                    = "Untitled"
)

// Chapter is one segmented chapter. StartLine is the heading line (or 0 for
// an implicit first chapter) and EndLine is exclusive.
type Chapter struct {
	Title      string
	StartLine  int
	EndLine    int
	Content    string
	Paragraphs []string
}

// Segmenter splits plain text into chapters at heading lines.
type Segmenter struct {
	// Patterns are tried in order; the first match wins.
	Patterns []Pattern
	// MinChapterParagraphs is the smallest chapter a Generic pattern may
	// open. Shorter ones are folded into the previous chapter.
	MinChapterParagraphs int
	// MaxHeadingLength is the longest line, in runes, that can be a heading.
	MaxHeadingLength int
}

// NewSegmenter returns a Segmenter with the default pattern list.
func NewSegmenter() *Segmenter {
	return &Segmenter{
		Patterns:             DefaultPatterns(),
		MinChapterParagraphs: defaultMinChapterParagraphs,
		MaxHeadingLength:     defaultMaxHeadingLength,
	}
}

// Segment splits text into chapters. title names the single chapter
// produced when no heading is found.
func (s *Segmenter) Segment(text, title string) []Chapter {
	return s.SegmentLines(strings.Split(text, "\n"), title)
}

type section struct {
	title   string
	start   int
	end     int
	heading bool
	generic bool
	lines   []string
}

// SegmentLines is Segment over pre-split lines.
func (s *Segmenter) SegmentLines(lines []string, title string) []Chapter {
	var (
		sections []section
		cur      = section{title: prologueTitle}
	)
	for i, line := range lines {
		p, ok := s.match(line)
		if !ok {
			cur.lines = append(cur.lines, line)
			continue
		}
		cur.end = i
		sections = append(sections, cur)
		cur = section{title: strings.TrimSpace(line), start: i, heading: true, generic: p.Generic}
	}
	cur.end = len(lines)
	sections = append(sections, cur)

	// Content before the first heading only survives if it has text.
	if len(sections) > 1 && len(paragraphs(sections[0].lines)) == 0 {
		sections = sections[1:]
	}
	if len(sections) == 1 && !sections[0].heading {
		sections[0].title = fallbackTitle(title)
	}

	sections = s.mergeWeak(sections)

	chapters := make([]Chapter, 0, len(sections))
	for _, sec := range sections {
		chapters = append(chapters, Chapter{
			Title:      sec.title,
			StartLine:  sec.start,
			EndLine:    sec.end,
			Content:    strings.TrimSpace(strings.Join(sec.lines, "\n")),
			Paragraphs: paragraphs(sec.lines),
		})
	}
	return chapters
}

func (s *Segmenter) match(line string) (Pattern, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Pattern{}, false
	}
	maxLen := s.MaxHeadingLength
	if maxLen <= 0 {
		maxLen = defaultMaxHeadingLength
	}
	if utf8.RuneCountInString(line) > maxLen {
		return Pattern{}, false
	}
	for _, p := range s.Patterns {
		if p.Regexp != nil && p.Regexp.MatchString(line) {
			return p, true
		}
	}
	return Pattern{}, false
}

// mergeWeak folds short chapters opened by a generic pattern back into the
// chapter before them, heading line included.
func (s *Segmenter) mergeWeak(sections []section) []section {
	if s.MinChapterParagraphs <= 0 {
		return sections
	}
	out := sections[:0]
	for _, sec := range sections {
		if sec.generic && len(out) > 0 && len(paragraphs(sec.lines)) < s.MinChapterParagraphs {
			prev := &out[len(out)-1]
			prev.lines = append(append(prev.lines, sec.title), sec.lines...)
			prev.end = sec.end
			continue
		}
		out = append(out, sec)
	}
	return out
}

// paragraphs joins wrapped lines. A blank line, or a line that is indented
// or opens with a quotation mark, starts a new paragraph.
func paragraphs(lines []string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			flush()
			continue
		}
		if cur.Len() > 0 && opensParagraph(line) {
			flush()
		}
		if cur.Len() > 0 {
			prev, _ := utf8.DecodeLastRuneInString(cur.String())
			next, _ := utf8.DecodeRuneInString(text)
			if !isCJK(prev) || !isCJK(next) {
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(text)
	}
	flush()
	return out
}

func opensParagraph(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	switch r {
	case ' ', '\t', '　':
		return true
	}
	first, _ := utf8.DecodeRuneInString(strings.TrimSpace(line))
	return strings.ContainsRune("\"“‘«「『", first)
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}

func fallbackTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return untitled
}
