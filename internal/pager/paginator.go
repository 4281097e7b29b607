package pager

import (
	"math"

	"github.com/readmigo/reader/internal/domain"
)

// Paginator pages through content laid out in viewport-wide columns.
type Paginator struct {
	surface  Surface
	onChange StateFunc

	width   int
	total   int
	current int
}

// NewPaginator measures surface and starts on the first page.
func NewPaginator(surface Surface, onChange StateFunc) *Paginator {
	p := &Paginator{surface: surface, onChange: onChange}
	p.measure()
	p.apply()
	return p
}

func (p *Paginator) isMode() {}

// measure reads the surface: total = max(1, round(scrollWidth/clientWidth)).
func (p *Paginator) measure() {
	p.width = p.surface.ClientWidth()
	p.total = 1
	if p.width > 0 {
		p.total = max(1, int(math.Round(float64(p.surface.ScrollWidth())/float64(p.width))))
	}
}

func (p *Paginator) apply() {
	p.surface.SetTranslateX(-p.current * p.width)
}

func (p *Paginator) emit() {
	if p.onChange != nil {
		p.onChange(p.State())
	}
}

// setPage moves to n and reports whether the page changed.
func (p *Paginator) setPage(n int) bool {
	n = max(0, min(n, p.total-1))
	if n == p.current {
		return false
	}
	p.current = n
	p.apply()
	p.emit()
	return true
}

// TotalPages is always at least 1.
func (p *Paginator) TotalPages() int { return p.total }

// CurrentPage is in [0, TotalPages-1].
func (p *Paginator) CurrentPage() int { return p.current }

// Progress is currentPage/(totalPages-1), or 1 for a single page.
func (p *Paginator) Progress() float64 {
	if p.total <= 1 {
		return 1
	}
	return float64(p.current) / float64(p.total-1)
}

func (p *Paginator) State() domain.PageState {
	return domain.NewPageState(p.current, p.total, p.Progress())
}

// NextPage advances one page; false on the last page.
func (p *Paginator) NextPage() bool { return p.setPage(p.current + 1) }

// PrevPage goes back one page; false on the first page.
func (p *Paginator) PrevPage() bool { return p.setPage(p.current - 1) }

// GoToPage jumps to n, clamped into range.
func (p *Paginator) GoToPage(n int) bool { return p.setPage(n) }

func (p *Paginator) GoToStart() { p.setPage(0) }

func (p *Paginator) GoToEnd() { p.setPage(p.total - 1) }

func (p *Paginator) GoToProgress(f float64) {
	p.setPage(int(math.Round(clamp01(f) * float64(p.total-1))))
}

// Recalculate re-measures after a layout change, keeping the current page
// (clamped) rather than returning to the start.
func (p *Paginator) Recalculate() {
	prev := p.State()
	p.measure()
	p.current = max(0, min(p.current, p.total-1))
	p.apply()
	if p.State() != prev {
		p.emit()
	}
}

// Destroy stops state callbacks.
func (p *Paginator) Destroy() {
	p.onChange = nil
}
