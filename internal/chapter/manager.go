// Package chapter keeps the navigation index over a book's chapters.
package chapter

import (
	"sort"
	"strings"

	"github.com/readmigo/reader/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Manager tracks the current chapter of a book. It holds no content.
//
// Manager is not safe for concurrent use.
type Manager struct {
	chapters []domain.ChapterSummary
	titles   titleIndex
	current  int
}

// titleIndex implements fuzzy.Source over lowercased chapter titles.
type titleIndex []string

func (t titleIndex) String(i int) string { return t[i] }

func (t titleIndex) Len() int { return len(t) }

// Match is a chapter found by Search.
type Match struct {
	Index          int
	Chapter        domain.ChapterSummary
	MatchedIndexes []int
	Score          int
}

// NewManager sorts chapters by Order and positions on the first one.
// The input slice is not modified.
func NewManager(chapters []domain.ChapterSummary) *Manager {
	sorted := make([]domain.ChapterSummary, len(chapters))
	copy(sorted, chapters)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	titles := make(titleIndex, len(sorted))
	for i, ch := range sorted {
		titles[i] = strings.ToLower(ch.Title)
	}
	return &Manager{chapters: sorted, titles: titles}
}

func (m *Manager) Len() int { return len(m.chapters) }

// Chapters returns a copy of the sorted chapter list.
func (m *Manager) Chapters() []domain.ChapterSummary {
	out := make([]domain.ChapterSummary, len(m.chapters))
	copy(out, m.chapters)
	return out
}

func (m *Manager) CurrentIndex() int { return m.current }

// Current returns the current chapter; false for an empty book.
func (m *Manager) Current() (domain.ChapterSummary, bool) {
	return m.At(m.current)
}

// At returns the chapter at index i.
func (m *Manager) At(i int) (domain.ChapterSummary, bool) {
	if i < 0 || i >= len(m.chapters) {
		return domain.ChapterSummary{}, false
	}
	return m.chapters[i], true
}

// IndexOf returns the index of the chapter with id, or -1.
func (m *Manager) IndexOf(id string) int {
	for i, ch := range m.chapters {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// GoTo makes index i current. Out-of-range indices return false.
func (m *Manager) GoTo(i int) bool {
	if i < 0 || i >= len(m.chapters) {
		return false
	}
	m.current = i
	return true
}

// GoToID makes the chapter with id current.
func (m *Manager) GoToID(id string) bool {
	return m.GoTo(m.IndexOf(id))
}

func (m *Manager) HasNext() bool { return m.current+1 < len(m.chapters) }

func (m *Manager) HasPrev() bool { return m.current > 0 && len(m.chapters) > 0 }

func (m *Manager) Next() bool { return m.GoTo(m.current + 1) }

func (m *Manager) Prev() bool { return m.GoTo(m.current - 1) }

// Search fuzzy-matches query against chapter titles, best match first.
func (m *Manager) Search(query string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(m.titles) == 0 {
		return nil
	}
	found := fuzzy.FindFrom(query, m.titles)
	out := make([]Match, len(found))
	for i, f := range found {
		out[i] = Match{
			Index:          f.Index,
			Chapter:        m.chapters[f.Index],
			MatchedIndexes: f.MatchedIndexes,
			Score:          f.Score,
		}
	}
	return out
}
