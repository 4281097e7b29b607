package domain

import "errors"

// Sentinel errors for reader operations
var (
	// ErrBookNotFound indicates the requested book does not exist
	ErrBookNotFound = errors.New("book not found")

	// ErrChapterNotFound indicates the requested chapter does not exist in the book
	ErrChapterNotFound = errors.New("chapter not found")

	// ErrServerOffline indicates the content server is unreachable
	ErrServerOffline = errors.New("content server is unreachable")

	// ErrAuthFailed indicates the API token was rejected
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotMounted indicates the engine has no container to render into
	ErrNotMounted = errors.New("reader is not mounted")

	// ErrBookNotLoaded indicates a chapter operation was attempted before LoadBook
	ErrBookNotLoaded = errors.New("no book loaded")

	// ErrInvalidChapter indicates a chapter index or id outside the book
	ErrInvalidChapter = errors.New("invalid chapter")

	// ErrInvalidSettings indicates a settings patch with an unknown value
	ErrInvalidSettings = errors.New("invalid reader settings")

	// ErrStaleLoad indicates a chapter load was superseded by a newer one
	ErrStaleLoad = errors.New("chapter load superseded")
)
