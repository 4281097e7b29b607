package domain

import "sort"

// Book is the identity and headline metadata of a readable book
type Book struct {
	ID        string // Source-specific unique identifier
	Title     string // Display title
	Author    string // Primary author ("" if unknown)
	Language  string // BCP 47 tag, normalised ("" if unknown)
	WordCount int    // Total words across all chapters
}

// ChapterSummary describes one chapter without its content
type ChapterSummary struct {
	ID        string // Source-specific chapter identifier
	Title     string // Display title
	Order     int    // Position in reading order (total order, no duplicates)
	WordCount int    // Words in this chapter
}

// BookDetail is a Book plus its ordered chapter list
type BookDetail struct {
	Book
	Chapters []ChapterSummary
}

// SortChapters orders the chapter list by Order ascending.
// Source order is never trusted.
func (b *BookDetail) SortChapters() {
	sort.SliceStable(b.Chapters, func(i, j int) bool {
		return b.Chapters[i].Order < b.Chapters[j].Order
	})
}

// ChapterContent is the fetched metadata of a single chapter
type ChapterContent struct {
	ID                string
	Title             string
	Order             int
	ContentURL        string // Where the raw markup body lives
	WordCount         int
	PreviousChapterID string // "" for the first chapter
	NextChapterID     string // "" for the last chapter
}

// LoadedChapter pairs a chapter's metadata with its fetched markup.
// It lives only as long as the chapter is displayed.
type LoadedChapter struct {
	Index   int
	Content ChapterContent
	Markup  string
}
