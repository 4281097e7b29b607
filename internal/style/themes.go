package style

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a reading color scheme.
type Theme struct {
	Name          string
	Background    lipgloss.Color
	Text          lipgloss.Color
	SecondaryText lipgloss.Color
	Highlight     lipgloss.Color
	Link          lipgloss.Color
}

// DefaultTheme is used for unknown theme names.
const DefaultTheme = "light"

// Built-in themes
var themes = map[string]Theme{
	"light": {
		Name:          "light",
		Background:    lipgloss.Color("#FFFFFF"),
		Text:          lipgloss.Color("#1A1A1A"),
		SecondaryText: lipgloss.Color("#6B7280"),
		Highlight:     lipgloss.Color("#FDE68A"),
		Link:          lipgloss.Color("#2563EB"),
	},
	"sepia": {
		Name:          "sepia",
		Background:    lipgloss.Color("#F4ECD8"),
		Text:          lipgloss.Color("#5B4636"),
		SecondaryText: lipgloss.Color("#8B7355"),
		Highlight:     lipgloss.Color("#E8D5A9"),
		Link:          lipgloss.Color("#8B4513"),
	},
	"dark": {
		Name:          "dark",
		Background:    lipgloss.Color("#1F2937"),
		Text:          lipgloss.Color("#F9FAFB"),
		SecondaryText: lipgloss.Color("#9CA3AF"),
		Highlight:     lipgloss.Color("#374151"),
		Link:          lipgloss.Color("#60A5FA"),
	},
	"night": {
		Name:          "night",
		Background:    lipgloss.Color("#000000"),
		Text:          lipgloss.Color("#B0B0B0"),
		SecondaryText: lipgloss.Color("#6B6B6B"),
		Highlight:     lipgloss.Color("#2A2A2A"),
		Link:          lipgloss.Color("#E5A00D"),
	},
	"green": {
		Name:          "green",
		Background:    lipgloss.Color("#C7EDCC"),
		Text:          lipgloss.Color("#2D3B2D"),
		SecondaryText: lipgloss.Color("#5A6B5A"),
		Highlight:     lipgloss.Color("#A8D8B0"),
		Link:          lipgloss.Color("#10794A"),
	},
}

// Lookup returns the named theme, falling back to DefaultTheme.
func Lookup(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[DefaultTheme]
}

// ThemeNames returns the built-in theme names, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
