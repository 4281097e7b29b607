package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/readmigo/reader/internal/domain"
)

// TerminalStyles is the themed style set used by the terminal renderer.
type TerminalStyles struct {
	Page    lipgloss.Style
	Text    lipgloss.Style
	Heading lipgloss.Style
	Quote   lipgloss.Style
	Code    lipgloss.Style
	Caption lipgloss.Style
	Rule    lipgloss.Style
	Align   lipgloss.Position
}

// Terminal builds the terminal styles for settings.
func Terminal(s domain.ReaderSettings) TerminalStyles {
	s = s.Normalize()
	t := Lookup(s.Theme)

	return TerminalStyles{
		Page: lipgloss.NewStyle().
			Background(t.Background).
			Foreground(t.Text),
		Text: lipgloss.NewStyle().
			Foreground(t.Text),
		Heading: lipgloss.NewStyle().
			Foreground(t.Text).
			Bold(true),
		Quote: lipgloss.NewStyle().
			Foreground(t.SecondaryText).
			Italic(true),
		Code: lipgloss.NewStyle().
			Foreground(t.Text).
			Background(t.Highlight),
		Caption: lipgloss.NewStyle().
			Foreground(t.SecondaryText),
		Rule: lipgloss.NewStyle().
			Foreground(t.SecondaryText),
		Align: Align(s.TextAlign),
	}
}

// Align maps a text alignment onto a lipgloss position. The terminal has
// no justification, so justified text is laid out flush left.
func Align(a domain.TextAlign) lipgloss.Position {
	switch a {
	case domain.TextAlignCenter:
		return lipgloss.Center
	case domain.TextAlignRight:
		return lipgloss.Right
	default:
		return lipgloss.Left
	}
}
