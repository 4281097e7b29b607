package render

import "github.com/readmigo/reader/internal/style"

// Viewport is the fixed-size, overflow-hidden frame around a chapter's
// content, carrying the stylesheet generated for it.
type Viewport struct {
	content    *Content
	stylesheet string
	styles     style.TerminalStyles
}

// Content returns the laid-out content.
func (v *Viewport) Content() *Content { return v.content }

// Stylesheet returns the CSS attached to the viewport.
func (v *Viewport) Stylesheet() string { return v.stylesheet }

// View renders the visible page with the theme's page style.
func (v *Viewport) View() string {
	return v.styles.Page.
		Width(v.content.width).
		Height(v.content.height).
		Render(v.content.view())
}
