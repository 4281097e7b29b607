package service

import "github.com/readmigo/reader/internal/domain"

// Observer receives engine events. Callbacks run on the goroutine that
// called the engine method, after the engine lock is released, so they may
// call back into the engine.
type Observer interface {
	// OnStateChange receives every completed state transition
	OnStateChange(state domain.ReaderState)

	// OnChapterChange fires before the state change of a chapter load
	OnChapterChange(index int, chapter domain.ChapterContent)

	// OnError receives every error an engine operation returns, except
	// domain.ErrStaleLoad
	OnError(err error)
}

// NoOpObserver ignores every event
type NoOpObserver struct{}

func (NoOpObserver) OnStateChange(domain.ReaderState)          {}
func (NoOpObserver) OnChapterChange(int, domain.ChapterContent) {}
func (NoOpObserver) OnError(error)                              {}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped
type ObserverFuncs struct {
	StateChange   func(domain.ReaderState)
	ChapterChange func(int, domain.ChapterContent)
	Error         func(error)
}

func (f ObserverFuncs) OnStateChange(s domain.ReaderState) {
	if f.StateChange != nil {
		f.StateChange(s)
	}
}

func (f ObserverFuncs) OnChapterChange(i int, c domain.ChapterContent) {
	if f.ChapterChange != nil {
		f.ChapterChange(i, c)
	}
}

func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// ChannelObserver forwards state snapshots and errors to channels, for
// event loops that select on them. Sends never block; a snapshot is dropped
// when its channel is full.
type ChannelObserver struct {
	states chan<- domain.ReaderState
	errs   chan<- error
}

// NewChannelObserver creates a channel-based observer. errs may be nil.
func NewChannelObserver(states chan<- domain.ReaderState, errs chan<- error) *ChannelObserver {
	return &ChannelObserver{states: states, errs: errs}
}

func (o *ChannelObserver) OnStateChange(s domain.ReaderState) {
	select {
	case o.states <- s:
	default: // Non-blocking if channel full
	}
}

func (o *ChannelObserver) OnChapterChange(int, domain.ChapterContent) {}

func (o *ChannelObserver) OnError(err error) {
	if o.errs == nil {
		return
	}
	select {
	case o.errs <- err:
	default:
	}
}
