// Package pager turns laid-out content into navigable pages.
//
// Exactly one Mode drives a mounted chapter: a Paginator shifting columns
// horizontally, or a ScrollMode tracking a vertical scroll offset. Both
// report position as a domain.PageState.
package pager

import (
	"math"

	"github.com/readmigo/reader/internal/domain"
)

// Surface is the horizontally paginated content a Paginator moves.
type Surface interface {
	ClientWidth() int
	ScrollWidth() int
	SetTranslateX(x int)
}

// Scroller is the vertically scrolled content a ScrollMode observes.
type Scroller interface {
	ScrollTop() int
	ScrollHeight() int
	ClientHeight() int
	ScrollTo(offset int, smooth bool)
	OnScroll(fn func()) (remove func())
}

// Mode is the active navigation model. It is implemented only by
// *Paginator and *ScrollMode; switch on the concrete type for
// mode-specific operations.
type Mode interface {
	State() domain.PageState
	NextPage() bool
	PrevPage() bool
	GoToStart()
	GoToEnd()
	// GoToProgress moves to a fraction (0..1) of the chapter.
	GoToProgress(p float64)
	Recalculate()
	Destroy()

	isMode()
}

// StateFunc receives a snapshot after every position change.
type StateFunc func(domain.PageState)

// New builds the mode for a reading mode over content that implements
// both Surface and Scroller.
func New(mode domain.ReadingMode, content interface {
	Surface
	Scroller
}, onChange StateFunc) Mode {
	if mode == domain.ReadingModeScroll {
		return NewScrollMode(content, onChange)
	}
	return NewPaginator(content, onChange)
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
