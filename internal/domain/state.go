package domain

// PageState is a snapshot of a navigation mode's position within one chapter.
// Build it with NewPageState so the flags always agree with CurrentPage.
type PageState struct {
	CurrentPage int
	TotalPages  int
	Progress    float64 // 0..1 within the chapter
	IsFirstPage bool
	IsLastPage  bool
}

// NewPageState derives the boundary flags from the page numbers
func NewPageState(current, total int, progress float64) PageState {
	if total < 1 {
		total = 1
	}
	return PageState{
		CurrentPage: current,
		TotalPages:  total,
		Progress:    progress,
		IsFirstPage: current == 0,
		IsLastPage:  current == total-1,
	}
}

// ReaderState is the single externally observable snapshot of the engine
type ReaderState struct {
	BookID          string
	ChapterIndex    int
	CurrentPage     int
	TotalPages      int
	ChapterProgress float64
	OverallProgress float64
	IsFirstPage     bool
	IsLastPage      bool
	IsFirstChapter  bool
	IsLastChapter   bool
	Loading         bool
}
