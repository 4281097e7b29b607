// Package style derives presentation from reader settings: a CSS
// stylesheet for markup renderers and lipgloss styles for the terminal.
package style

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/readmigo/reader/internal/domain"
)

// GenerateStylesheet returns the CSS for settings. It has no side effects;
// the column rule is only emitted in paginated mode.
func GenerateStylesheet(s domain.ReaderSettings) string {
	s = s.Normalize()
	t := Lookup(s.Theme)

	hyphens := "manual"
	if s.Hyphenation {
		hyphens = "auto"
	}

	var b strings.Builder
	fmt.Fprintf(&b, ":root {\n")
	fmt.Fprintf(&b, "  --reader-bg: %s;\n", t.Background)
	fmt.Fprintf(&b, "  --reader-text: %s;\n", t.Text)
	fmt.Fprintf(&b, "  --reader-text-secondary: %s;\n", t.SecondaryText)
	fmt.Fprintf(&b, "  --reader-highlight: %s;\n", t.Highlight)
	fmt.Fprintf(&b, "  --reader-link: %s;\n", t.Link)
	fmt.Fprintf(&b, "  --reader-margin: %dpx;\n", s.Margin)
	fmt.Fprintf(&b, "}\n\n")

	fmt.Fprintf(&b, "html, body {\n  margin: 0;\n  padding: 0;\n  background: var(--reader-bg);\n  color: var(--reader-text);\n}\n\n")

	fmt.Fprintf(&b, ".reader-content {\n")
	fmt.Fprintf(&b, "  font-family: %s;\n", s.FontFamily)
	fmt.Fprintf(&b, "  font-size: %dpx;\n", s.FontSize)
	fmt.Fprintf(&b, "  line-height: %s;\n", num(s.LineHeight))
	fmt.Fprintf(&b, "  letter-spacing: %spx;\n", num(s.LetterSpacing))
	fmt.Fprintf(&b, "  word-spacing: %spx;\n", num(s.WordSpacing))
	fmt.Fprintf(&b, "  text-align: %s;\n", s.TextAlign)
	fmt.Fprintf(&b, "  hyphens: %s;\n", hyphens)
	fmt.Fprintf(&b, "  -webkit-hyphens: %s;\n", hyphens)
	fmt.Fprintf(&b, "  padding: 0 var(--reader-margin);\n")
	fmt.Fprintf(&b, "  box-sizing: border-box;\n")
	if s.ReadingMode == domain.ReadingModePaginated {
		fmt.Fprintf(&b, "  height: 100vh;\n")
		fmt.Fprintf(&b, "  column-width: calc(100vw - %dpx);\n", 2*s.Margin)
		fmt.Fprintf(&b, "  column-gap: %dpx;\n", 2*s.Margin)
		fmt.Fprintf(&b, "  column-fill: auto;\n")
	} else {
		fmt.Fprintf(&b, "  overflow-y: auto;\n")
	}
	fmt.Fprintf(&b, "}\n\n")

	fmt.Fprintf(&b, ".reader-content p {\n  margin: 0 0 %sem;\n}\n\n", num(s.ParagraphSpacing))
	b.WriteString(elementRules)
	return b.String()
}

const elementRules = `.reader-content a {
  color: var(--reader-link);
  text-decoration: underline;
}

.reader-content img {
  max-width: 100%;
  max-height: 95vh;
  height: auto;
  display: block;
  margin: 1em auto;
  break-inside: avoid;
}

.reader-content blockquote {
  margin: 1em 0;
  padding-left: 1em;
  border-left: 3px solid var(--reader-text-secondary);
  color: var(--reader-text-secondary);
}

.reader-content pre, .reader-content code {
  font-family: ui-monospace, Menlo, Consolas, monospace;
  font-size: 0.9em;
  background: var(--reader-highlight);
}

.reader-content pre {
  padding: 0.75em;
  overflow-x: auto;
  white-space: pre-wrap;
  break-inside: avoid;
}

.reader-content h1, .reader-content h2, .reader-content h3,
.reader-content h4, .reader-content h5, .reader-content h6 {
  line-height: 1.3;
  text-align: left;
  hyphens: none;
  margin: 1.2em 0 0.6em;
  break-after: avoid;
}

.reader-content table {
  border-collapse: collapse;
  max-width: 100%;
  margin: 1em 0;
}

.reader-content th, .reader-content td {
  border: 1px solid var(--reader-text-secondary);
  padding: 0.25em 0.5em;
}

.reader-content figure {
  margin: 1em 0;
  text-align: center;
  break-inside: avoid;
}

.reader-content figcaption {
  font-size: 0.85em;
  color: var(--reader-text-secondary);
}
`

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
