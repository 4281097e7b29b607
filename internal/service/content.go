package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/readmigo/reader/internal/domain"
)

// cachedResult stores cached data with timestamp
type cachedResult struct {
	Items     interface{}
	FetchedAt time.Time
}

// ChapterData is a chapter's metadata with its markup body
type ChapterData struct {
	Content domain.ChapterContent
	Markup  string
}

// ContentService fetches books and chapters through a repository and keeps
// them in a memory cache. Book details are cached until invalidated;
// chapters stay cached until Retain drops them.
type ContentService struct {
	repo   domain.ContentRepository
	logger *slog.Logger

	cache   map[string]cachedResult
	cacheMu sync.RWMutex
}

// NewContentService creates a new content service
func NewContentService(repo domain.ContentRepository, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		repo:   repo,
		logger: logger,
		cache:  make(map[string]cachedResult),
	}
}

// Book returns the book detail with chapters in reading order
func (s *ContentService) Book(ctx context.Context, bookID string) (*domain.BookDetail, error) {
	key := bookKey(bookID)
	if cached, ok := s.getFromCache(key); ok {
		s.logger.Debug("cache hit", "key", key)
		detail := cached.(domain.BookDetail)
		detail.Chapters = append([]domain.ChapterSummary(nil), detail.Chapters...)
		return &detail, nil
	}

	detail, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		s.logger.Error("failed to get book", "bookID", bookID, "error", err)
		return nil, err
	}
	detail.SortChapters()

	stored := *detail
	stored.Chapters = append([]domain.ChapterSummary(nil), detail.Chapters...)
	s.setCache(key, stored)
	s.logger.Info("loaded book", "bookID", bookID, "title", detail.Title, "chapters", len(detail.Chapters))

	return detail, nil
}

// Chapter fetches a chapter's metadata and then its markup
func (s *ContentService) Chapter(ctx context.Context, bookID, chapterID string) (*ChapterData, error) {
	key := chapterKey(bookID, chapterID)
	if cached, ok := s.getFromCache(key); ok {
		s.logger.Debug("cache hit", "key", key)
		data := cached.(ChapterData)
		return &data, nil
	}

	meta, err := s.repo.GetChapterContent(ctx, bookID, chapterID)
	if err != nil {
		s.logger.Error("failed to get chapter", "bookID", bookID, "chapterID", chapterID, "error", err)
		return nil, err
	}
	markup, err := s.repo.FetchMarkup(ctx, meta.ContentURL)
	if err != nil {
		s.logger.Error("failed to fetch chapter markup", "bookID", bookID, "chapterID", chapterID, "error", err)
		return nil, fmt.Errorf("fetch chapter %s markup: %w", chapterID, err)
	}

	data := ChapterData{Content: *meta, Markup: markup}
	s.setCache(key, data)
	s.logger.Debug("loaded chapter", "bookID", bookID, "chapterID", chapterID, "bytes", len(markup))

	return &data, nil
}

// Prefetch warms the cache with a chapter
func (s *ContentService) Prefetch(ctx context.Context, bookID, chapterID string) error {
	_, err := s.Chapter(ctx, bookID, chapterID)
	return err
}

// Cached reports whether a chapter is in the cache
func (s *ContentService) Cached(bookID, chapterID string) bool {
	_, ok := s.getFromCache(chapterKey(bookID, chapterID))
	return ok
}

// InvalidateBook drops a book and all of its chapters from the cache
func (s *ContentService) InvalidateBook(bookID string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	prefixes := BookCachePrefixes(bookID)
	for key := range s.cache {
		if key == prefixes[0] || strings.HasPrefix(key, prefixes[1]) {
			delete(s.cache, key)
		}
	}
	s.logger.Debug("invalidated book cache", "bookID", bookID)
}

// RefreshAll clears all cached data
func (s *ContentService) RefreshAll() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache = make(map[string]cachedResult)
	s.logger.Info("cleared all cache")
}

// getFromCache retrieves an item from memory cache
func (s *ContentService) getFromCache(key string) (interface{}, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	cached, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	return cached.Items, true
}

// setCache stores an item in cache
func (s *ContentService) setCache(key string, items interface{}) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache[key] = cachedResult{
		Items:     items,
		FetchedAt: time.Now(),
	}
}

// Retain drops every cached chapter except the given chapters of bookID
func (s *ContentService) Retain(bookID string, chapterIDs ...string) {
	keep := make(map[string]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		keep[chapterKey(bookID, id)] = true
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	dropped := 0
	for key := range s.cache {
		if strings.HasPrefix(key, PrefixChapter) && !keep[key] {
			delete(s.cache, key)
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Debug("dropped cached chapters", "bookID", bookID, "count", dropped)
	}
}
