package contentapi

// BookResponse is the body of GET /books/{id}
type BookResponse struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Author    string           `json:"author,omitempty"`
	Language  string           `json:"language,omitempty"`
	WordCount int              `json:"wordCount,omitempty"`
	Chapters  []ChapterSummary `json:"chapters"`
}

// ChapterSummary is one entry of a book's chapter list
type ChapterSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	WordCount int    `json:"wordCount,omitempty"`
}

// ChapterContentResponse is the body of GET /books/{id}/content/{chapterId}
type ChapterContentResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Order             int    `json:"order"`
	ContentURL        string `json:"contentUrl"`
	WordCount         int    `json:"wordCount,omitempty"`
	PreviousChapterID string `json:"previousChapterId,omitempty"`
	NextChapterID     string `json:"nextChapterId,omitempty"`
}

// errorResponse is the body the API sends with non-2xx statuses
type errorResponse struct {
	Message string `json:"message"`
}
