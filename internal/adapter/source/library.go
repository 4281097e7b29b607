package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/readmigo/reader/internal/domain"
	"github.com/readmigo/reader/internal/mobi"
	"github.com/readmigo/reader/internal/txt"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LocalScheme is the URL scheme of chapter content served by a Library
const LocalScheme = "local"

// ErrUnsupportedFormat is returned for files DetectFormat cannot classify
var ErrUnsupportedFormat = errors.New("unsupported book format")

// bookExtensions are the file extensions LoadDir picks up
var bookExtensions = map[string]bool{
	".mobi":  true,
	".prc":   true,
	".azw":   true,
	".pdb":   true,
	".txt":   true,
	".html":  true,
	".htm":   true,
	".xhtml": true,
}

type localChapter struct {
	summary domain.ChapterSummary
	markup  string
}

type localBook struct {
	detail   domain.BookDetail
	chapters []localChapter
}

// Library serves local MOBI, HTML and plain-text files as books.
// It implements domain.ContentRepository with local:// content URLs.
type Library struct {
	mu     sync.RWMutex
	books  map[string]*localBook
	logger *slog.Logger
}

var _ domain.ContentRepository = (*Library)(nil)

func NewLibrary(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{books: make(map[string]*localBook), logger: logger}
}

// Add parses data and registers it under id, replacing any book with the
// same id. name is used as the title when the file carries none.
func (l *Library) Add(id, name string, data []byte) (*domain.BookDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("add book: empty id")
	}

	format := DetectFormat(data)
	var (
		book *localBook
		err  error
	)
	switch format {
	case FormatMOBI:
		book, err = l.parseMOBI(id, name, data)
	case FormatHTML:
		book = parseHTML(id, name, data)
	case FormatText:
		book = parseText(id, name, data)
	default:
		return nil, fmt.Errorf("add book %q: %w", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("add book %q: %w", name, err)
	}

	l.mu.Lock()
	l.books[id] = book
	l.mu.Unlock()

	l.logger.Debug("added local book",
		"id", id,
		"format", format.String(),
		"title", book.detail.Title,
		"chapters", len(book.chapters))

	detail := copyDetail(book.detail)
	return &detail, nil
}

// AddFile reads path and adds it with an id derived from the file name
func (l *Library) AddFile(path string) (*domain.BookDetail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return l.Add(BookID(base), name, data)
}

// LoadDir adds every book file directly inside dir. Files that fail to
// parse are logged and skipped; the number of books added is returned.
func (l *Library) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, e := range entries {
		if e.IsDir() || !bookExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if _, err := l.AddFile(filepath.Join(dir, e.Name())); err != nil {
			l.logger.Warn("skipping local book", "file", e.Name(), "error", err)
			continue
		}
		added++
	}
	return added, nil
}

// BookID derives a stable id from a file name ("My Book.mobi" -> "my-book-mobi")
func BookID(fileName string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(fileName) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 0x7F {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Books returns the registered books sorted by title
func (l *Library) Books() []domain.Book {
	l.mu.RLock()
	books := make([]domain.Book, 0, len(l.books))
	for _, b := range l.books {
		books = append(books, b.detail.Book)
	}
	l.mu.RUnlock()

	sort.Slice(books, func(i, j int) bool {
		ti, tj := strings.ToLower(books[i].Title), strings.ToLower(books[j].Title)
		if ti == tj {
			return books[i].ID < books[j].ID
		}
		return ti < tj
	})
	return books
}

// Remove drops a book from the library
func (l *Library) Remove(id string) {
	l.mu.Lock()
	delete(l.books, id)
	l.mu.Unlock()
}

func (l *Library) GetBook(_ context.Context, bookID string) (*domain.BookDetail, error) {
	book, err := l.book(bookID)
	if err != nil {
		return nil, err
	}
	detail := copyDetail(book.detail)
	return &detail, nil
}

func (l *Library) GetChapterContent(_ context.Context, bookID, chapterID string) (*domain.ChapterContent, error) {
	book, err := l.book(bookID)
	if err != nil {
		return nil, err
	}
	idx := book.chapterIndex(chapterID)
	if idx < 0 {
		return nil, fmt.Errorf("book %s chapter %s: %w", bookID, chapterID, domain.ErrChapterNotFound)
	}

	ch := book.chapters[idx].summary
	content := &domain.ChapterContent{
		ID:         ch.ID,
		Title:      ch.Title,
		Order:      ch.Order,
		ContentURL: ContentURL(bookID, ch.ID),
		WordCount:  ch.WordCount,
	}
	if idx > 0 {
		content.PreviousChapterID = book.chapters[idx-1].summary.ID
	}
	if idx+1 < len(book.chapters) {
		content.NextChapterID = book.chapters[idx+1].summary.ID
	}
	return content, nil
}

// FetchMarkup resolves a local://{book}/{chapter} URL
func (l *Library) FetchMarkup(ctx context.Context, contentURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := url.Parse(contentURL)
	if err != nil || u.Scheme != LocalScheme {
		return "", fmt.Errorf("not a local content url: %q", contentURL)
	}
	bookID := u.Host
	chapterID := strings.TrimPrefix(u.Path, "/")

	book, err := l.book(bookID)
	if err != nil {
		return "", err
	}
	idx := book.chapterIndex(chapterID)
	if idx < 0 {
		return "", fmt.Errorf("book %s chapter %s: %w", bookID, chapterID, domain.ErrChapterNotFound)
	}
	return book.chapters[idx].markup, nil
}

// ContentURL builds the local content URL of a chapter
func ContentURL(bookID, chapterID string) string {
	u := url.URL{Scheme: LocalScheme, Host: bookID, Path: "/" + chapterID}
	return u.String()
}

func (l *Library) book(id string) (*localBook, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, domain.ErrBookNotFound)
	}
	return b, nil
}

func (b *localBook) chapterIndex(id string) int {
	for i, ch := range b.chapters {
		if ch.summary.ID == id {
			return i
		}
	}
	return -1
}

func (b *localBook) add(id, title, markup string, words int) {
	b.chapters = append(b.chapters, localChapter{
		summary: domain.ChapterSummary{
			ID:        id,
			Title:     title,
			Order:     len(b.chapters),
			WordCount: words,
		},
		markup: markup,
	})
	b.detail.WordCount += words
}

// finish publishes the chapter list on the detail
func (b *localBook) finish() *localBook {
	b.detail.Chapters = make([]domain.ChapterSummary, len(b.chapters))
	for i, ch := range b.chapters {
		b.detail.Chapters[i] = ch.summary
	}
	return b
}

func copyDetail(d domain.BookDetail) domain.BookDetail {
	d.Chapters = append([]domain.ChapterSummary(nil), d.Chapters...)
	return d
}

func orName(title, name string) string {
	if strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if name != "" {
		return name
	}
	return "Untitled"
}

func (l *Library) parseMOBI(id, name string, data []byte) (*localBook, error) {
	doc, err := mobi.ParseWithLogger(data, l.logger)
	if err != nil {
		return nil, err
	}
	b := &localBook{detail: domain.BookDetail{Book: domain.Book{
		ID:       id,
		Title:    orName(doc.Metadata.Title, name),
		Author:   doc.Metadata.Author,
		Language: doc.Metadata.Language,
	}}}
	// PalmDOC-only files carry plain text; find its chapters like a .txt book
	if doc.TextOnly {
		addSegmented(b, txt.NewSegmenter().Segment(doc.HTML, b.detail.Title))
		return b.finish(), nil
	}
	for _, ch := range doc.Chapters {
		b.add(ch.ID, ch.Title, ch.HTML, txt.WordCount(ch.Content))
	}
	return b.finish(), nil
}

func parseHTML(id, name string, data []byte) *localBook {
	markup, _ := txt.DecodeText(data)
	title, lang, body := documentHead(markup)
	b := &localBook{detail: domain.BookDetail{Book: domain.Book{
		ID:       id,
		Title:    orName(title, name),
		Language: mobi.NormalizeLanguage(lang),
	}}}
	for _, ch := range mobi.SplitHTML(markup[body:], b.detail.Title) {
		b.add(ch.ID, ch.Title, ch.HTML, txt.WordCount(ch.Content))
	}
	return b.finish()
}

func parseText(id, name string, data []byte) *localBook {
	doc := txt.Parse(data, name)
	b := &localBook{detail: domain.BookDetail{Book: domain.Book{
		ID:    id,
		Title: doc.Title,
	}}}
	addSegmented(b, doc.Chapters)
	return b.finish()
}

func addSegmented(b *localBook, chapters []txt.Chapter) {
	for i, ch := range chapters {
		b.add(fmt.Sprintf("chapter-%d", i+1), ch.Title, txt.ToHTML(ch), txt.WordCount(ch.Content))
	}
}

// documentHead reads the <title> text and the <html lang> attribute,
// stopping at <body>. body is the byte offset just past the <body> tag, or
// 0 when the document has none.
func documentHead(markup string) (title, lang string, body int) {
	z := html.NewTokenizer(strings.NewReader(markup))
	inTitle := false
	pos := 0
	for {
		tt := z.Next()
		pos += len(z.Raw())
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return "", "", 0
			}
			return strings.TrimSpace(title), lang, 0
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Html:
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					if string(k) == "lang" || string(k) == "xml:lang" {
						lang = string(v)
					}
				}
			case atom.Title:
				inTitle = true
			case atom.Body:
				return strings.TrimSpace(title), lang, pos
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Title {
				inTitle = false
			}
		case html.TextToken:
			if inTitle {
				title += string(z.Text())
			}
		}
	}
}
