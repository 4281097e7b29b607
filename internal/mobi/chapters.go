package mobi

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// minMarkerSpacing is the minimum distance in bytes between two chapter
// markers; closer markers are treated as noise.
const minMarkerSpacing = 100

var (
	headingPattern      = regexp.MustCompile(`(?is)<h[12]\b[^>]*>(.*?)</h[12]\s*>`)
	chapterClassPattern = regexp.MustCompile(`(?is)<p\b[^>]*\bclass\s*=\s*["']?[^"'>]*chapter[^"'>]*["']?[^>]*>(.*?)</p\s*>`)
	fileposPattern      = regexp.MustCompile(`(?is)<a\b[^>]*\bfilepos\s*=\s*["']?0*(\d+)["']?[^>]*>(.*?)</a\s*>`)
	stylePattern        = regexp.MustCompile(`(?is)<style\b[^>]*>(.*?)</style\s*>`)
)

type marker struct {
	offset int
	title  string
}

// SplitHTML infers chapters from UTF-8 markup using the same heuristics as
// the container parser. fallbackTitle names the single chapter produced
// when no markers are found.
func SplitHTML(markup string, fallbackTitle string) []Chapter {
	return splitChapters([]byte(markup), fallbackTitle, func(b []byte) string { return string(b) })
}

// splitChapters slices raw markup at inferred chapter markers. decode turns
// a raw byte range into text in the document's encoding.
func splitChapters(raw []byte, fallbackTitle string, decode func([]byte) string) []Chapter {
	markers := findMarkers(raw, decode)
	if len(markers) == 0 {
		return []Chapter{newChapter(0, fallbackTitle, decode(raw))}
	}

	var chapters []Chapter
	if prefix := decode(raw[:markers[0].offset]); strings.TrimSpace(PlainText(prefix)) != "" {
		chapters = append(chapters, newChapter(0, fallbackTitle, prefix))
	}
	for i, m := range markers {
		end := len(raw)
		if i+1 < len(markers) {
			end = markers[i+1].offset
		}
		chapters = append(chapters, newChapter(len(chapters), m.title, decode(raw[m.offset:end])))
	}
	return chapters
}

func newChapter(index int, title, markup string) Chapter {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		title = fmt.Sprintf("Chapter %d", index+1)
	}
	return Chapter{
		ID:      fmt.Sprintf("chapter-%d", index+1),
		Title:   title,
		Content: PlainText(markup),
		HTML:    markup,
	}
}

// findMarkers collects heading and chapter-class markers, falling back to
// filepos link targets when the markup has neither. The result is sorted
// by offset with markers closer than minMarkerSpacing dropped.
func findMarkers(raw []byte, decode func([]byte) string) []marker {
	var markers []marker
	for _, re := range []*regexp.Regexp{headingPattern, chapterClassPattern} {
		for _, loc := range re.FindAllSubmatchIndex(raw, -1) {
			markers = append(markers, marker{
				offset: loc[0],
				title:  titleText(decode(raw[loc[2]:loc[3]])),
			})
		}
	}

	if len(markers) == 0 {
		markers = fileposMarkers(raw, decode)
	}

	sort.SliceStable(markers, func(i, j int) bool { return markers[i].offset < markers[j].offset })

	kept := markers[:0]
	for _, m := range markers {
		if len(kept) > 0 && m.offset-kept[len(kept)-1].offset < minMarkerSpacing {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func fileposMarkers(raw []byte, decode func([]byte) string) []marker {
	seen := make(map[int]bool)
	var markers []marker
	for _, m := range fileposPattern.FindAllSubmatchIndex(raw, -1) {
		var target int
		if _, err := fmt.Sscanf(string(raw[m[2]:m[3]]), "%d", &target); err != nil {
			continue
		}
		if target <= 0 || target >= len(raw) {
			continue
		}
		target = tagStart(raw, target)
		if seen[target] {
			continue
		}
		seen[target] = true
		markers = append(markers, marker{offset: target, title: titleText(decode(raw[m[4]:m[5]]))})
	}
	return markers
}

// tagStart moves an offset that lands inside a tag back to the tag's '<'.
func tagStart(raw []byte, off int) int {
	open := bytes.LastIndexByte(raw[:off], '<')
	shut := bytes.LastIndexByte(raw[:off], '>')
	if open > shut {
		return open
	}
	return off
}

func titleText(fragment string) string {
	return strings.Join(strings.Fields(PlainText(fragment)), " ")
}

// extractCSS returns the concatenated contents of all <style> blocks.
func extractCSS(markup string) string {
	var parts []string
	for _, m := range stylePattern.FindAllStringSubmatch(markup, -1) {
		if css := strings.TrimSpace(m[1]); css != "" {
			parts = append(parts, css)
		}
	}
	return strings.Join(parts, "\n")
}

var textBlockTags = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.Div: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Hr: true,
}

// PlainText strips markup, producing one line per block element.
// Script and style content is dropped.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var buf strings.Builder
	skip := 0
	pendingSpace := false

	atLineStart := func() bool {
		s := buf.String()
		return s == "" || strings.HasSuffix(s, "\n")
	}
	newline := func() {
		pendingSpace = false
		if !atLineStart() {
			buf.WriteByte('\n')
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				skip++
				continue
			}
			if skip == 0 && textBlockTags[a] {
				newline()
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if skip == 0 && textBlockTags[atom.Lookup(name)] {
				newline()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				if skip > 0 {
					skip--
				}
				continue
			}
			if skip == 0 && textBlockTags[a] {
				newline()
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			raw := string(z.Text())
			text := strings.Join(strings.Fields(raw), " ")
			if text == "" {
				if raw != "" && !atLineStart() {
					pendingSpace = true
				}
				continue
			}
			if (pendingSpace || startsWithSpace(raw)) && !atLineStart() {
				buf.WriteByte(' ')
			}
			buf.WriteString(text)
			pendingSpace = endsWithSpace(raw)
		}
	}
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s[:1], " \t\r\n") == ""
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s[len(s)-1:], " \t\r\n") == ""
}
