package contentapi

import (
	"strings"

	"github.com/readmigo/reader/internal/domain"
	"golang.org/x/text/language"
)

// MapBook converts an API book to a domain book detail with chapters in
// reading order.
func MapBook(r BookResponse) *domain.BookDetail {
	detail := &domain.BookDetail{
		Book: domain.Book{
			ID:        r.ID,
			Title:     strings.TrimSpace(r.Title),
			Author:    strings.TrimSpace(r.Author),
			Language:  normalizeLanguage(r.Language),
			WordCount: r.WordCount,
		},
		Chapters: make([]domain.ChapterSummary, 0, len(r.Chapters)),
	}

	words := 0
	for _, ch := range r.Chapters {
		detail.Chapters = append(detail.Chapters, domain.ChapterSummary{
			ID:        ch.ID,
			Title:     strings.TrimSpace(ch.Title),
			Order:     ch.Order,
			WordCount: ch.WordCount,
		})
		words += ch.WordCount
	}
	if detail.WordCount == 0 {
		detail.WordCount = words
	}

	detail.SortChapters()
	return detail
}

// MapChapterContent converts an API chapter content record
func MapChapterContent(r ChapterContentResponse) *domain.ChapterContent {
	return &domain.ChapterContent{
		ID:                r.ID,
		Title:             strings.TrimSpace(r.Title),
		Order:             r.Order,
		ContentURL:        r.ContentURL,
		WordCount:         r.WordCount,
		PreviousChapterID: r.PreviousChapterID,
		NextChapterID:     r.NextChapterID,
	}
}

func normalizeLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return t.String()
}
