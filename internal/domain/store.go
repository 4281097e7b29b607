package domain

import "time"

// Position is the persisted reading position of one book
type Position struct {
	BookID          string    `json:"bookId"`
	ChapterID       string    `json:"chapterId"`
	ChapterIndex    int       `json:"chapterIndex"`
	Page            int       `json:"page"`
	ChapterProgress float64   `json:"chapterProgress"`
	OverallProgress float64   `json:"overallProgress"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PositionStore persists reading positions (BoltDB + memory)
type PositionStore interface {
	GetPosition(bookID string) (Position, bool)
	SavePosition(pos Position) error
	DeletePosition(bookID string)
	ListPositions() ([]Position, error)
	Close() error
}
