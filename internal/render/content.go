package render

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/readmigo/reader/internal/domain"
	"github.com/readmigo/reader/internal/style"
)

// smoothSteps is how many scroll events a smooth scroll produces.
const smoothSteps = 4

// Content is the laid-out chapter inside a viewport. In paginated mode it
// is a row of columns shifted horizontally by a translate offset; in scroll
// mode it is a single column scrolled vertically.
//
// Content is not safe for concurrent use.
type Content struct {
	width  int
	height int
	mode   domain.ReadingMode
	styles style.TerminalStyles
	layout layout

	translateX int
	scroll     viewport.Model

	listeners map[int]func()
	nextID    int
}

func newContent() *Content {
	return &Content{listeners: make(map[int]func())}
}

// reflow lays blocks out again for a new size or settings. Listeners and
// the scroll offset (clamped) survive.
func (c *Content) reflow(blocks []Block, width, height int, s domain.ReaderSettings, st style.TerminalStyles) {
	top := c.scroll.YOffset

	c.width = max(width, 1)
	c.height = max(height, 1)
	c.mode = s.ReadingMode
	c.styles = st
	c.layout = layoutBlocks(blocks, c.width, c.height, s)

	styled := make([]string, len(c.layout.lines))
	for i, l := range c.layout.lines {
		styled[i] = renderLine(l, c.layout.colWidth, c.layout.margin, st)
	}
	c.scroll = viewport.New(c.width, c.height)
	c.scroll.SetContent(strings.Join(styled, "\n"))
	c.scroll.SetYOffset(top)

	c.translateX = max(c.translateX, -(c.ScrollWidth() - c.width))
}

// ClientWidth is the visible width in cells.
func (c *Content) ClientWidth() int { return c.width }

// ScrollWidth is the total laid-out width: one viewport width per column.
func (c *Content) ScrollWidth() int { return c.layout.columns * c.width }

// SetTranslateX shifts the column row horizontally. x is zero or negative.
func (c *Content) SetTranslateX(x int) { c.translateX = x }

// TranslateX returns the current horizontal shift.
func (c *Content) TranslateX() int { return c.translateX }

// ClientHeight is the visible height in lines.
func (c *Content) ClientHeight() int { return c.height }

// ScrollHeight is the total number of laid-out lines.
func (c *Content) ScrollHeight() int { return len(c.layout.lines) }

// ScrollTop is the index of the first visible line.
func (c *Content) ScrollTop() int { return c.scroll.YOffset }

// ScrollTo moves the first visible line to offset, clamped to the content.
// A smooth scroll passes through intermediate offsets, firing a scroll
// event at each.
func (c *Content) ScrollTo(offset int, smooth bool) {
	from := c.scroll.YOffset
	target := max(0, min(offset, c.ScrollHeight()-c.height))
	if target == from {
		return
	}
	if !smooth {
		c.setTop(target)
		return
	}
	for i := 1; i <= smoothSteps; i++ {
		c.setTop(from + (target-from)*i/smoothSteps)
	}
}

// Scroll moves the scroll offset by delta lines.
func (c *Content) Scroll(delta int) {
	c.ScrollTo(c.scroll.YOffset+delta, false)
}

func (c *Content) setTop(top int) {
	if top == c.scroll.YOffset {
		return
	}
	c.scroll.SetYOffset(top)
	for _, id := range c.listenerIDs() {
		if fn, ok := c.listeners[id]; ok {
			fn()
		}
	}
}

// OnScroll registers fn for scroll events and returns its removal func.
func (c *Content) OnScroll(fn func()) (remove func()) {
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

// ListenerCount reports the number of registered scroll listeners.
func (c *Content) ListenerCount() int { return len(c.listeners) }

func (c *Content) listenerIDs() []int {
	ids := make([]int, 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if _, ok := c.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Lines returns the laid-out lines without styling.
func (c *Content) Lines() []Line { return c.layout.lines }

// Columns is the number of columns in paginated mode, 1 in scroll mode.
func (c *Content) Columns() int { return c.layout.columns }

// view renders the visible window.
func (c *Content) view() string {
	if c.mode == domain.ReadingModeScroll {
		return c.scroll.View()
	}
	col := 0
	if c.width > 0 {
		col = -c.translateX / c.width
	}
	start := col * c.height
	blank := renderLine(Line{}, c.layout.colWidth, c.layout.margin, c.styles)
	rows := make([]string, c.height)
	for i := range rows {
		if n := start + i; n < len(c.layout.lines) {
			rows[i] = renderLine(c.layout.lines[n], c.layout.colWidth, c.layout.margin, c.styles)
		} else {
			rows[i] = blank
		}
	}
	return strings.Join(rows, "\n")
}
