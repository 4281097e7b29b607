package domain

import "fmt"

// ReadingMode selects the navigation model of the reader
type ReadingMode string

const (
	ReadingModePaginated ReadingMode = "paginated"
	ReadingModeScroll    ReadingMode = "scroll"
)

// Valid reports whether m is a known reading mode
func (m ReadingMode) Valid() bool {
	return m == ReadingModePaginated || m == ReadingModeScroll
}

// TextAlign is the paragraph alignment
type TextAlign string

const (
	TextAlignLeft    TextAlign = "left"
	TextAlignRight   TextAlign = "right"
	TextAlignCenter  TextAlign = "center"
	TextAlignJustify TextAlign = "justify"
)

// ReaderSettings holds every user-adjustable presentation setting.
// Exactly one ReadingMode is active at a time.
type ReaderSettings struct {
	FontSize         int         // px
	FontFamily       string      // CSS font-family list
	LineHeight       float64     // unitless multiplier
	LetterSpacing    float64     // px
	WordSpacing      float64     // px
	ParagraphSpacing float64     // em between paragraphs
	TextAlign        TextAlign   // left/right/center/justify
	Hyphenation      bool        // hyphens: auto
	Theme            string      // theme name, see style.Themes
	ReadingMode      ReadingMode // paginated or scroll
	Margin           int         // px on each side
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() ReaderSettings {
	return ReaderSettings{
		FontSize:         18,
		FontFamily:       `Georgia, "Times New Roman", serif`,
		LineHeight:       1.6,
		LetterSpacing:    0,
		WordSpacing:      0,
		ParagraphSpacing: 1,
		TextAlign:        TextAlignJustify,
		Hyphenation:      true,
		Theme:            "light",
		ReadingMode:      ReadingModePaginated,
		Margin:           24,
	}
}

// Normalize clamps out-of-range values back to usable ones
func (s ReaderSettings) Normalize() ReaderSettings {
	def := DefaultSettings()
	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	if s.FontFamily == "" {
		s.FontFamily = def.FontFamily
	}
	if s.LineHeight <= 0 {
		s.LineHeight = def.LineHeight
	}
	if s.ParagraphSpacing < 0 {
		s.ParagraphSpacing = 0
	}
	switch s.TextAlign {
	case TextAlignLeft, TextAlignRight, TextAlignCenter, TextAlignJustify:
	default:
		s.TextAlign = def.TextAlign
	}
	if s.Theme == "" {
		s.Theme = def.Theme
	}
	if !s.ReadingMode.Valid() {
		s.ReadingMode = def.ReadingMode
	}
	if s.Margin < 0 {
		s.Margin = 0
	}
	return s
}

// SettingsPatch is a partial update; nil fields are left unchanged
type SettingsPatch struct {
	FontSize         *int
	FontFamily       *string
	LineHeight       *float64
	LetterSpacing    *float64
	WordSpacing      *float64
	ParagraphSpacing *float64
	TextAlign        *TextAlign
	Hyphenation      *bool
	Theme            *string
	ReadingMode      *ReadingMode
	Margin           *int
}

// Apply merges the patch into s and returns the normalized result
func (p SettingsPatch) Apply(s ReaderSettings) (ReaderSettings, error) {
	if p.ReadingMode != nil && !p.ReadingMode.Valid() {
		return s, fmt.Errorf("%w: reading mode %q", ErrInvalidSettings, *p.ReadingMode)
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.LineHeight != nil {
		s.LineHeight = *p.LineHeight
	}
	if p.LetterSpacing != nil {
		s.LetterSpacing = *p.LetterSpacing
	}
	if p.WordSpacing != nil {
		s.WordSpacing = *p.WordSpacing
	}
	if p.ParagraphSpacing != nil {
		s.ParagraphSpacing = *p.ParagraphSpacing
	}
	if p.TextAlign != nil {
		s.TextAlign = *p.TextAlign
	}
	if p.Hyphenation != nil {
		s.Hyphenation = *p.Hyphenation
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.ReadingMode != nil {
		s.ReadingMode = *p.ReadingMode
	}
	if p.Margin != nil {
		s.Margin = *p.Margin
	}
	return s.Normalize(), nil
}
