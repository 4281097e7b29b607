package pager

import (
	"math"

	"github.com/readmigo/reader/internal/domain"
)

// ScrollMode tracks a continuously scrolled chapter. Pages are
// viewport-height screens.
type ScrollMode struct {
	scroller Scroller
	onChange StateFunc
	remove   func()
}

// NewScrollMode subscribes to scroller's scroll events.
func NewScrollMode(scroller Scroller, onChange StateFunc) *ScrollMode {
	m := &ScrollMode{scroller: scroller, onChange: onChange}
	m.remove = scroller.OnScroll(m.emit)
	return m
}

func (m *ScrollMode) isMode() {}

func (m *ScrollMode) emit() {
	if m.onChange != nil {
		m.onChange(m.State())
	}
}

func (m *ScrollMode) maxTop() int {
	return max(0, m.scroller.ScrollHeight()-m.scroller.ClientHeight())
}

// Progress is scrollTop/(scrollHeight-clientHeight), or 1 when the content
// fits in the viewport.
func (m *ScrollMode) Progress() float64 {
	limit := m.maxTop()
	if limit == 0 {
		return 1
	}
	return clamp01(float64(m.scroller.ScrollTop()) / float64(limit))
}

func (m *ScrollMode) State() domain.PageState {
	client := max(1, m.scroller.ClientHeight())
	total := max(1, (m.scroller.ScrollHeight()+client-1)/client)
	current := min(m.scroller.ScrollTop()/client, total-1)
	if m.scroller.ScrollTop() >= m.maxTop() {
		current = total - 1
	}
	return domain.NewPageState(current, total, m.Progress())
}

// ScrollTo smooth-scrolls to a fraction of the chapter.
func (m *ScrollMode) ScrollTo(progress float64) {
	m.scroller.ScrollTo(int(math.Round(clamp01(progress)*float64(m.maxTop()))), true)
}

// NextPage scrolls down one screen; false at the bottom.
func (m *ScrollMode) NextPage() bool {
	top := m.scroller.ScrollTop()
	if top >= m.maxTop() {
		return false
	}
	m.scroller.ScrollTo(top+m.scroller.ClientHeight(), false)
	return true
}

// PrevPage scrolls up one screen; false at the top.
func (m *ScrollMode) PrevPage() bool {
	top := m.scroller.ScrollTop()
	if top <= 0 {
		return false
	}
	m.scroller.ScrollTo(top-m.scroller.ClientHeight(), false)
	return true
}

func (m *ScrollMode) GoToStart() { m.scroller.ScrollTo(0, false) }

func (m *ScrollMode) GoToEnd() { m.scroller.ScrollTo(m.maxTop(), false) }

// GoToProgress jumps without animation.
func (m *ScrollMode) GoToProgress(p float64) {
	m.scroller.ScrollTo(int(math.Round(clamp01(p)*float64(m.maxTop()))), false)
}

// Recalculate reports the position after the content was reflowed.
func (m *ScrollMode) Recalculate() { m.emit() }

// Destroy detaches the scroll listener. It is safe to call twice.
func (m *ScrollMode) Destroy() {
	if m.remove != nil {
		m.remove()
		m.remove = nil
	}
	m.onChange = nil
}
