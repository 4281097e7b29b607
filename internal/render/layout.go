package render

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/readmigo/reader/internal/domain"
	"github.com/readmigo/reader/internal/style"
)

// cellPixels is the CSS pixel width assumed for one terminal cell when
// converting margins.
const cellPixels = 8

const (
	quotePrefix = "│ "
	ruleText    = "*  *  *"
	tabWidth    = 4
)

// Line is one laid-out row of a column.
type Line struct {
	Text string
	Kind BlockKind
}

// layout is the result of flowing blocks into a viewport of fixed size.
type layout struct {
	lines    []Line
	margin   int // cells on each side of a column
	colWidth int
	columns  int
}

// marginCells converts a pixel margin to cells, leaving at least one
// column of text.
func marginCells(px, width int) int {
	m := (px + cellPixels/2) / cellPixels
	return max(0, min(m, (width-1)/2))
}

// blockGap is the number of blank lines between blocks.
func blockGap(spacing float64) int {
	if spacing <= 0 {
		return 0
	}
	return max(1, int(math.Round(spacing)))
}

// layoutBlocks flows blocks into columns of the viewport's height. Each
// column is the viewport width minus both margins, so adjacent columns are
// separated by twice the margin. Scroll mode uses a single column of
// unbounded height.
func layoutBlocks(blocks []Block, width, height int, s domain.ReaderSettings) layout {
	m := marginCells(s.Margin, width)
	colW := max(width-2*m, 1)
	align := style.Align(s.TextAlign)
	gap := blockGap(s.ParagraphSpacing)

	var lines []Line
	for i, blk := range blocks {
		if i > 0 {
			for range gap {
				lines = append(lines, Line{Kind: BlockParagraph})
			}
		}
		for _, text := range blockLines(blk, colW, align) {
			lines = append(lines, Line{Text: text, Kind: blk.Kind})
		}
	}

	columns := 1
	if s.ReadingMode == domain.ReadingModePaginated && height > 0 {
		columns = max(1, (len(lines)+height-1)/height)
	}
	return layout{lines: lines, margin: m, colWidth: colW, columns: columns}
}

func blockLines(b Block, w int, align lipgloss.Position) []string {
	switch b.Kind {
	case BlockHeading:
		return wrap(b.Text, w, lipgloss.Left)
	case BlockQuote:
		return prefixed(wrap(b.Text, w-runewidth.StringWidth(quotePrefix), align), quotePrefix, quotePrefix)
	case BlockCode:
		var out []string
		for _, line := range strings.Split(strings.ReplaceAll(b.Text, "\t", strings.Repeat(" ", tabWidth)), "\n") {
			out = append(out, hardWrap(line, w)...)
		}
		return out
	case BlockListItem:
		marker := b.Marker + " "
		indent := runewidth.StringWidth(marker)
		return prefixed(wrap(b.Text, w-indent, lipgloss.Left), marker, strings.Repeat(" ", indent))
	case BlockImage:
		label := "[image]"
		if alt := strings.TrimSpace(b.Text); alt != "" {
			label = "[image: " + alt + "]"
		}
		return wrap(label, w, lipgloss.Center)
	case BlockCaption:
		return wrap(b.Text, w, lipgloss.Center)
	case BlockRule:
		return wrap(ruleText, w, lipgloss.Center)
	default:
		return wrap(b.Text, w, align)
	}
}

// wrap word-wraps text to w cells and aligns each line.
func wrap(text string, w int, align lipgloss.Position) []string {
	w = max(w, 1)
	out := lipgloss.NewStyle().Width(w).Align(align).Render(text)
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines
}

// hardWrap breaks a line at exactly w cells without regard to words.
func hardWrap(line string, w int) []string {
	w = max(w, 1)
	if runewidth.StringWidth(line) <= w {
		return []string{line}
	}
	var (
		out []string
		cur strings.Builder
		cw  int
	)
	for _, r := range line {
		rw := runewidth.RuneWidth(r)
		if cw+rw > w && cw > 0 {
			out = append(out, cur.String())
			cur.Reset()
			cw = 0
		}
		cur.WriteRune(r)
		cw += rw
	}
	return append(out, cur.String())
}

func prefixed(lines []string, first, rest string) []string {
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = rest + lines[i]
		}
	}
	return lines
}

// renderLine pads a line to the column width, styles it and adds margins.
func renderLine(l Line, colW, margin int, st style.TerminalStyles) string {
	text := runewidth.FillRight(runewidth.Truncate(l.Text, colW, ""), colW)
	pad := strings.Repeat(" ", margin)
	return pad + styleFor(l.Kind, st).Render(text) + pad
}

func styleFor(k BlockKind, st style.TerminalStyles) lipgloss.Style {
	switch k {
	case BlockHeading:
		return st.Heading
	case BlockQuote:
		return st.Quote
	case BlockCode:
		return st.Code
	case BlockImage, BlockCaption:
		return st.Caption
	case BlockRule:
		return st.Rule
	default:
		return st.Text
	}
}
