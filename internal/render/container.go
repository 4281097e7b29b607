package render

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Default terminal size when the output is not a terminal.
const (
	defaultTermWidth  = 80
	defaultTermHeight = 24
)

var termGetSize = term.GetSize

// Container is the caller-supplied surface a Renderer mounts into.
type Container interface {
	// Size is the viewport size in cells.
	Size() (width, height int)
	Attach(v *Viewport)
	Detach(v *Viewport)
}

// FixedContainer is a container of constant size.
type FixedContainer struct {
	Width    int
	Height   int
	attached *Viewport
}

// NewFixedContainer returns a container of the given size.
func NewFixedContainer(width, height int) *FixedContainer {
	return &FixedContainer{Width: width, Height: height}
}

func (c *FixedContainer) Size() (int, int) { return c.Width, c.Height }

func (c *FixedContainer) Attach(v *Viewport) { c.attached = v }

func (c *FixedContainer) Detach(v *Viewport) {
	if c.attached == v {
		c.attached = nil
	}
}

// Attached returns the mounted viewport, or nil.
func (c *FixedContainer) Attached() *Viewport { return c.attached }

// TerminalContainer sizes the viewport from a terminal file descriptor.
type TerminalContainer struct {
	file     *os.File
	attached *Viewport
}

// NewTerminalContainer measures f, usually os.Stdout.
func NewTerminalContainer(f *os.File) *TerminalContainer {
	return &TerminalContainer{file: f}
}

// Size returns the terminal size, or 80x24 when it cannot be measured.
func (c *TerminalContainer) Size() (int, int) {
	if c.file == nil {
		return defaultTermWidth, defaultTermHeight
	}
	width, height, err := termGetSize(int(c.file.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return defaultTermWidth, defaultTermHeight
	}
	return width, height
}

func (c *TerminalContainer) Attach(v *Viewport) { c.attached = v }

func (c *TerminalContainer) Detach(v *Viewport) {
	if c.attached == v {
		c.attached = nil
	}
}

// Draw writes the mounted viewport's visible page to w.
func (c *TerminalContainer) Draw(w io.Writer) error {
	if c.attached == nil {
		return nil
	}
	_, err := io.WriteString(w, c.attached.View()+"\n")
	return err
}
