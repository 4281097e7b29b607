package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/readmigo/reader/internal/domain"
)

var errUnavailable = errors.New("chapter unavailable")

// fakeRepo serves one in-memory book. Chapters are listed in reverse so
// callers must sort them.
type fakeRepo struct {
	mu      sync.Mutex
	book    domain.BookDetail
	markup  map[string]string
	fail    map[string]error
	gates   map[string]chan struct{}
	started chan string
	calls   map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		book: domain.BookDetail{
			Book: domain.Book{ID: "b1", Title: "Voyage"},
			Chapters: []domain.ChapterSummary{
				{ID: "c3", Title: "Arrival", Order: 2},
				{ID: "c2", Title: "The Crossing", Order: 1},
				{ID: "c1", Title: "Departure", Order: 0},
			},
		},
		markup: map[string]string{
			"c1": paragraphs(6),
			"c2": paragraphs(9),
			"c3": paragraphs(1),
		},
		fail:    map[string]error{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 4),
		calls:   map[string]int{},
	}
}

func paragraphs(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "<p>p%d</p>", i)
	}
	return b.String()
}

func (r *fakeRepo) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[key]
}

func (r *fakeRepo) GetBook(_ context.Context, bookID string) (*domain.BookDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["book:"+bookID]++
	if bookID != r.book.ID {
		return nil, fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	}
	out := r.book
	out.Chapters = append([]domain.ChapterSummary(nil), r.book.Chapters...)
	return &out, nil
}

func (r *fakeRepo) GetChapterContent(ctx context.Context, bookID, chapterID string) (*domain.ChapterContent, error) {
	r.mu.Lock()
	r.calls[chapterID]++
	err := r.fail[chapterID]
	gate := r.gates[chapterID]
	var summary *domain.ChapterSummary
	for i := range r.book.Chapters {
		if r.book.Chapters[i].ID == chapterID {
			summary = &r.book.Chapters[i]
		}
	}
	r.mu.Unlock()

	if gate != nil {
		r.started <- chapterID
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if bookID != r.book.ID || summary == nil {
		return nil, domain.ErrChapterNotFound
	}
	return &domain.ChapterContent{
		ID:         summary.ID,
		Title:      summary.Title,
		Order:      summary.Order,
		ContentURL: "mem://" + chapterID,
	}, nil
}

func (r *fakeRepo) FetchMarkup(_ context.Context, contentURL string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	markup, ok := r.markup[strings.TrimPrefix(contentURL, "mem://")]
	if !ok {
		return "", errors.New("no markup at " + contentURL)
	}
	return markup, nil
}

// recorder is an Observer that logs every event in order
type recorder struct {
	mu     sync.Mutex
	events []string
	states []domain.ReaderState
	errs   []error
}

func (r *recorder) OnStateChange(s domain.ReaderState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "state")
	r.states = append(r.states, s)
}

func (r *recorder) OnChapterChange(index int, _ domain.ChapterContent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("chapter:%d", index))
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "error")
	r.errs = append(r.errs, err)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events, r.states, r.errs = nil, nil, nil
}

func (r *recorder) snapshot() ([]string, []domain.ReaderState, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...),
		append([]domain.ReaderState(nil), r.states...),
		append([]error(nil), r.errs...)
}

func (r *recorder) lastState() domain.ReaderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return domain.ReaderState{}
	}
	return r.states[len(r.states)-1]
}
