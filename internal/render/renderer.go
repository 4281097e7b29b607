// Package render sanitizes chapter markup and lays it out for display.
//
// Rendering happens in character cells: a chapter is flowed into columns
// one viewport wide (paginated) or a single tall column (scroll), and the
// resulting Content exposes the measurements the pager package navigates
// by.
package render

import (
	"log/slog"

	"github.com/readmigo/reader/internal/domain"
	"github.com/readmigo/reader/internal/style"
)

// Renderer owns the viewport mounted in one container.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	container Container
	settings  domain.ReaderSettings
	logger    *slog.Logger

	markup   string // sanitized
	blocks   []Block
	viewport *Viewport
	content  *Content
}

// NewRenderer creates a renderer for container.
func NewRenderer(container Container, settings domain.ReaderSettings, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		container: container,
		settings:  settings.Normalize(),
		logger:    logger,
	}
}

// Render sanitizes markup and mounts it, replacing any previous chapter.
func (r *Renderer) Render(markup string) (*Content, error) {
	if r.container == nil {
		return nil, domain.ErrNotMounted
	}
	r.Clear()

	root := sanitizeTree(markup)
	r.markup = renderChildren(root)
	r.blocks = parseBlocks(root)
	r.content = newContent()
	r.viewport = &Viewport{content: r.content}
	r.layout()
	r.container.Attach(r.viewport)

	r.logger.Debug("rendered chapter",
		"blocks", len(r.blocks),
		"lines", r.content.ScrollHeight(),
		"columns", r.content.Columns())
	return r.content, nil
}

// UpdateSettings swaps the stylesheet and reflows the cached blocks. The
// markup is not sanitized or parsed again.
func (r *Renderer) UpdateSettings(s domain.ReaderSettings) {
	r.settings = s.Normalize()
	if r.content != nil {
		r.layout()
	}
}

// Relayout reflows the current chapter at the container's current size.
func (r *Renderer) Relayout() {
	if r.content != nil {
		r.layout()
	}
}

func (r *Renderer) layout() {
	width, height := r.container.Size()
	st := style.Terminal(r.settings)
	r.viewport.stylesheet = style.GenerateStylesheet(r.settings)
	r.viewport.styles = st
	r.content.reflow(r.blocks, width, height, r.settings, st)
}

// Clear detaches the mounted viewport and drops the chapter.
func (r *Renderer) Clear() {
	if r.viewport != nil && r.container != nil {
		r.container.Detach(r.viewport)
	}
	r.viewport = nil
	r.content = nil
	r.blocks = nil
	r.markup = ""
}

// Content returns the mounted content, or nil.
func (r *Renderer) Content() *Content { return r.content }

// Viewport returns the mounted viewport, or nil.
func (r *Renderer) Viewport() *Viewport { return r.viewport }

// Markup returns the sanitized markup of the mounted chapter.
func (r *Renderer) Markup() string { return r.markup }

// Settings returns the settings the renderer lays out with.
func (r *Renderer) Settings() domain.ReaderSettings { return r.settings }
