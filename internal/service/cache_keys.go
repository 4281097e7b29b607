package service

// Cache key prefixes for fetched content
const (
	// PrefixBook is the prefix for book detail caches (book:{bookID})
	PrefixBook = "book:"

	// PrefixChapter is the prefix for chapter caches (chapter:{bookID}:{chapterID})
	PrefixChapter = "chapter:"
)

func bookKey(bookID string) string {
	return PrefixBook + bookID
}

func chapterKey(bookID, chapterID string) string {
	return PrefixChapter + bookID + ":" + chapterID
}

// BookCachePrefixes returns every cache key prefix that belongs to one book.
// The chapter prefix ends in ':' so "b1" never matches "b10".
func BookCachePrefixes(bookID string) []string {
	return []string{bookKey(bookID), PrefixChapter + bookID + ":"}
}
