package domain

import "context"

// ContentRepository provides book metadata and chapter content.
// The remote content API and the local file library both implement it.
type ContentRepository interface {
	// GetBook returns the book with its chapter summaries
	GetBook(ctx context.Context, bookID string) (*BookDetail, error)

	// GetChapterContent returns the metadata of one chapter, including its content URL
	GetChapterContent(ctx context.Context, bookID, chapterID string) (*ChapterContent, error)

	// FetchMarkup retrieves the raw markup body behind a content URL
	FetchMarkup(ctx context.Context, contentURL string) (string, error)
}
