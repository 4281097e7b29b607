package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/readmigo/reader/internal/chapter"
	"github.com/readmigo/reader/internal/domain"
	"github.com/readmigo/reader/internal/pager"
	"github.com/readmigo/reader/internal/progress"
	"github.com/readmigo/reader/internal/render"
)

const prefetchTimeout = 30 * time.Second

// ErrNoChapter indicates a page operation before any chapter was loaded
var ErrNoChapter = errors.New("no chapter loaded")

// landingKind says where a freshly loaded chapter opens
type landingKind int

const (
	landStart landingKind = iota
	landEnd
	landPage
	landProgress
)

type landing struct {
	kind     landingKind
	page     int
	progress float64
}

// events are collected under the lock and dispatched after it is released
type events struct {
	err          error
	chapter      *domain.ChapterContent
	chapterIndex int
	state        *domain.ReaderState
	save         *domain.Position
}

// Option configures an Engine
type Option func(*Engine)

// WithObserver sets the receiver of engine events
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithPositionStore saves the reading position on every state change and
// enables Resume
func WithPositionStore(s domain.PositionStore) Option {
	return func(e *Engine) { e.positions = s }
}

// WithPrefetch fetches the next chapter in the background after each load
func WithPrefetch() Option {
	return func(e *Engine) { e.prefetch = true }
}

// WithContentService shares a content cache between engines
func WithContentService(s *ContentService) Option {
	return func(e *Engine) {
		if s != nil {
			e.source = s
		}
	}
}

// Engine sequences book load, chapter load, rendering and page navigation,
// and keeps one coherent ReaderState observable at all times.
//
// Engine is safe for concurrent use. Fetches run without the lock held; a
// chapter load overtaken by a newer one returns domain.ErrStaleLoad and
// leaves the display untouched.
type Engine struct {
	mu sync.Mutex

	source    *ContentService
	logger    *slog.Logger
	observer  Observer
	positions domain.PositionStore
	prefetch  bool
	now       func() time.Time

	settings   domain.ReaderSettings
	renderer   *render.Renderer // nil while unmounted
	surface    *render.Content
	book       *domain.BookDetail
	chapters   *chapter.Manager
	loaded     *domain.LoadedChapter
	mode       pager.Mode
	page       domain.PageState
	loading    bool
	generation uint64
}

// NewEngine creates an unmounted engine reading from repo
func NewEngine(repo domain.ContentRepository, settings domain.ReaderSettings, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:   logger,
		observer: NoOpObserver{},
		now:      time.Now,
		settings: settings.Normalize(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		e.source = NewContentService(repo, logger)
	}
	return e
}

// === Mounting ===

// Mount binds a renderer to container. A chapter that was displayed before
// is rendered again at the same progress.
func (e *Engine) Mount(container render.Container) error {
	e.mu.Lock()
	if container == nil {
		return e.failUnlock(domain.ErrNotMounted)
	}
	if e.renderer != nil {
		e.unmountLocked()
	}
	e.renderer = render.NewRenderer(container, e.settings, e.logger)

	var ev events
	if e.loaded != nil {
		data := &ChapterData{Content: e.loaded.Content, Markup: e.loaded.Markup}
		land := landing{kind: landProgress, progress: e.page.Progress}
		if err := e.showLocked(e.loaded.Index, data, land); err != nil {
			ev = e.failLocked(err)
			e.mu.Unlock()
			e.dispatch(ev)
			return err
		}
		ev = e.changedLocked()
	}
	e.mu.Unlock()

	e.dispatch(ev)
	e.logger.Debug("mounted reader")
	return nil
}

// Unmount destroys the active mode and releases the container. Loads in
// flight become stale.
func (e *Engine) Unmount() {
	e.mu.Lock()
	e.unmountLocked()
	e.mu.Unlock()
	e.logger.Debug("unmounted reader")
}

func (e *Engine) unmountLocked() {
	e.destroyModeLocked()
	if e.renderer != nil {
		e.renderer.Clear()
	}
	e.renderer = nil
	e.surface = nil
	e.generation++
	e.loading = false
}

// Mounted reports whether a container is bound
func (e *Engine) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer != nil
}

// === Loading ===

// LoadBook fetches a book and resets chapter navigation to its first
// chapter. No chapter is rendered until LoadChapter.
func (e *Engine) LoadBook(ctx context.Context, bookID string) (*domain.BookDetail, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.loading = true
	st := e.stateLocked()
	e.mu.Unlock()
	e.dispatch(events{state: &st})

	detail, err := e.source.Book(ctx, bookID)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil, domain.ErrStaleLoad
	}
	if err != nil {
		ev := e.failLocked(fmt.Errorf("load book %s: %w", bookID, err))
		e.mu.Unlock()
		e.dispatch(ev)
		return nil, ev.err
	}

	e.destroyModeLocked()
	if e.renderer != nil {
		e.renderer.Clear()
	}
	e.surface = nil
	e.loaded = nil
	e.page = domain.PageState{}
	e.book = detail
	e.chapters = chapter.NewManager(detail.Chapters)
	e.loading = false
	ev := e.changedLocked()
	e.mu.Unlock()

	e.dispatch(ev)
	e.logger.Info("book loaded", "bookID", bookID, "chapters", len(detail.Chapters))

	out := *detail
	out.Chapters = append([]domain.ChapterSummary(nil), detail.Chapters...)
	return &out, nil
}

// LoadChapter fetches, renders and opens a chapter at its first page
func (e *Engine) LoadChapter(ctx context.Context, index int) error {
	return e.loadChapter(ctx, index, landing{kind: landStart})
}

// GoToChapterID opens the chapter with the given id
func (e *Engine) GoToChapterID(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.chapters == nil {
		return e.failUnlock(domain.ErrBookNotLoaded)
	}
	idx := e.chapters.IndexOf(id)
	if idx < 0 {
		return e.failUnlock(fmt.Errorf("chapter %s: %w", id, domain.ErrChapterNotFound))
	}
	e.mu.Unlock()
	return e.loadChapter(ctx, idx, landing{kind: landStart})
}

// GoToChapterTitle opens the chapter whose title best matches query and
// returns its index
func (e *Engine) GoToChapterTitle(ctx context.Context, query string) (int, error) {
	e.mu.Lock()
	if e.chapters == nil {
		return -1, e.failUnlock(domain.ErrBookNotLoaded)
	}
	chapters := e.chapters.Chapters()
	titles := make([]string, len(chapters))
	for i, ch := range chapters {
		titles[i] = ch.Title
	}

	ranks := fuzzy.RankFindFold(query, titles)
	if len(ranks) == 0 {
		return -1, e.failUnlock(fmt.Errorf("no chapter title matches %q: %w", query, domain.ErrChapterNotFound))
	}
	// Lower distance is a closer match; ties go to reading order
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	idx := ranks[0].OriginalIndex
	e.mu.Unlock()

	return idx, e.loadChapter(ctx, idx, landing{kind: landStart})
}

// SearchChapters fuzzy-matches chapter titles, best first
func (e *Engine) SearchChapters(query string) []chapter.Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.chapters == nil {
		return nil
	}
	return e.chapters.Search(query)
}

// Resume loads a book and reopens the saved position, or the first chapter
// when none is saved
func (e *Engine) Resume(ctx context.Context, bookID string) error {
	if _, err := e.LoadBook(ctx, bookID); err != nil {
		return err
	}

	index, land := 0, landing{kind: landStart}
	if e.positions != nil {
		if pos, ok := e.positions.GetPosition(bookID); ok {
			e.mu.Lock()
			index = pos.ChapterIndex
			if i := e.chapters.IndexOf(pos.ChapterID); pos.ChapterID != "" && i >= 0 {
				index = i
			}
			if _, ok := e.chapters.At(index); !ok {
				index = 0
			}
			if e.settings.ReadingMode == domain.ReadingModePaginated {
				land = landing{kind: landPage, page: pos.Page, progress: pos.ChapterProgress}
			} else {
				land = landing{kind: landProgress, progress: pos.ChapterProgress}
			}
			e.mu.Unlock()
			e.logger.Debug("resuming", "bookID", bookID, "chapter", index, "page", pos.Page)
		}
	}
	return e.loadChapter(ctx, index, land)
}

func (e *Engine) loadChapter(ctx context.Context, index int, land landing) error {
	e.mu.Lock()
	if e.renderer == nil {
		return e.failUnlock(domain.ErrNotMounted)
	}
	if e.chapters == nil {
		return e.failUnlock(domain.ErrBookNotLoaded)
	}
	summary, ok := e.chapters.At(index)
	if !ok {
		return e.failUnlock(fmt.Errorf("%w: index %d of %d", domain.ErrInvalidChapter, index, e.chapters.Len()))
	}
	e.generation++
	gen := e.generation
	e.loading = true
	bookID := e.book.ID
	st := e.stateLocked()
	e.mu.Unlock()
	e.dispatch(events{state: &st})

	data, err := e.source.Chapter(ctx, bookID, summary.ID)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding superseded chapter load", "bookID", bookID, "index", index)
		return domain.ErrStaleLoad
	}
	if err != nil {
		return e.failUnlock(fmt.Errorf("load chapter %d: %w", index, err))
	}
	if err := e.showLocked(index, data, land); err != nil {
		return e.failUnlock(err)
	}
	e.loading = false

	ev := e.changedLocked()
	ev.chapter = &data.Content
	ev.chapterIndex = index

	// Only the current chapter and its neighbours stay cached
	var nextID string
	keep := []string{summary.ID}
	if prev, ok := e.chapters.At(index - 1); ok {
		keep = append(keep, prev.ID)
	}
	if next, ok := e.chapters.At(index + 1); ok {
		keep = append(keep, next.ID)
		if e.prefetch {
			nextID = next.ID
		}
	}
	e.mu.Unlock()

	e.source.Retain(bookID, keep...)
	e.dispatch(ev)
	e.logger.Info("chapter loaded", "bookID", bookID, "index", index, "title", data.Content.Title)

	if nextID != "" {
		go e.prefetchChapter(bookID, nextID)
	}
	return nil
}

// showLocked renders data and builds a fresh mode over it. Mode state is
// never carried across renders.
func (e *Engine) showLocked(index int, data *ChapterData, land landing) error {
	e.destroyModeLocked()
	content, err := e.renderer.Render(data.Markup)
	if err != nil {
		return err
	}
	e.chapters.GoTo(index)
	e.surface = content
	e.loaded = &domain.LoadedChapter{Index: index, Content: data.Content, Markup: data.Markup}
	e.mode = pager.New(e.settings.ReadingMode, content, e.onPageChange)
	e.page = e.mode.State()

	switch land.kind {
	case landEnd:
		e.mode.GoToEnd()
	case landPage:
		if p, ok := e.mode.(*pager.Paginator); ok {
			p.GoToPage(land.page)
		} else {
			e.mode.GoToProgress(land.progress)
		}
	case landProgress:
		e.mode.GoToProgress(land.progress)
	}
	e.page = e.mode.State()
	return nil
}

func (e *Engine) prefetchChapter(bookID, chapterID string) {
	ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
	defer cancel()
	if err := e.source.Prefetch(ctx, bookID, chapterID); err != nil {
		e.logger.Debug("prefetch failed", "bookID", bookID, "chapterID", chapterID, "error", err)
	}
}

// === Navigation ===

// NextPage advances one page, crossing into the next chapter only from the
// last page of the current one. It returns false at the end of the book.
func (e *Engine) NextPage(ctx context.Context) (bool, error) {
	return e.step(ctx, true)
}

// PrevPage goes back one page. Crossing into the previous chapter lands on
// its last page (paginated) or its bottom (scroll).
func (e *Engine) PrevPage(ctx context.Context) (bool, error) {
	return e.step(ctx, false)
}

func (e *Engine) step(ctx context.Context, forward bool) (bool, error) {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		return false, e.failUnlock(err)
	}

	moved := e.mode.PrevPage
	if forward {
		moved = e.mode.NextPage
	}
	if moved() {
		ev := e.changedLocked()
		e.mu.Unlock()
		e.dispatch(ev)
		return true, nil
	}

	target, land := e.chapters.CurrentIndex()-1, landing{kind: landEnd}
	if forward {
		target, land = e.chapters.CurrentIndex()+1, landing{kind: landStart}
	}
	if _, ok := e.chapters.At(target); !ok {
		e.mu.Unlock()
		return false, nil
	}
	e.mu.Unlock()

	if err := e.loadChapter(ctx, target, land); err != nil {
		return false, err
	}
	return true, nil
}

// GoToPage jumps to a page of the current chapter. Out-of-range pages are
// clamped. In scroll mode a page is one screen.
func (e *Engine) GoToPage(page int) error {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		return e.failUnlock(err)
	}
	if p, ok := e.mode.(*pager.Paginator); ok {
		p.GoToPage(page)
	} else if total := e.page.TotalPages; total > 1 {
		e.mode.GoToProgress(float64(page) / float64(total-1))
	}
	ev := e.changedLocked()
	e.mu.Unlock()
	e.dispatch(ev)
	return nil
}

// GoToProgress jumps to a fraction (0..1) of the current chapter
func (e *Engine) GoToProgress(p float64) error {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		return e.failUnlock(err)
	}
	e.mode.GoToProgress(p)
	ev := e.changedLocked()
	e.mu.Unlock()
	e.dispatch(ev)
	return nil
}

// Scroll moves a scroll-mode chapter by delta lines and reports whether the
// position changed. It does nothing in paginated mode.
func (e *Engine) Scroll(delta int) (bool, error) {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		return false, e.failUnlock(err)
	}
	if _, ok := e.mode.(*pager.ScrollMode); !ok {
		e.mu.Unlock()
		return false, nil
	}
	before := e.surface.ScrollTop()
	e.surface.Scroll(delta)
	if e.surface.ScrollTop() == before {
		e.mu.Unlock()
		return false, nil
	}
	ev := e.changedLocked()
	e.mu.Unlock()
	e.dispatch(ev)
	return true, nil
}

// === Settings and layout ===

// UpdateSettings merges patch into the settings. A reading-mode change
// rebuilds the mode at the same chapter progress; any other change reflows
// the chapter and recalculates the current mode.
func (e *Engine) UpdateSettings(patch domain.SettingsPatch) error {
	e.mu.Lock()
	next, err := patch.Apply(e.settings)
	if err != nil {
		return e.failUnlock(err)
	}
	prev := e.settings
	e.settings = next
	if e.renderer != nil {
		e.renderer.UpdateSettings(next)
	}

	if e.mode == nil {
		st := e.stateLocked()
		e.mu.Unlock()
		e.dispatch(events{state: &st})
		return nil
	}

	if next.ReadingMode != prev.ReadingMode {
		at := e.page.Progress
		e.destroyModeLocked()
		e.mode = pager.New(next.ReadingMode, e.surface, e.onPageChange)
		e.mode.GoToProgress(at)
		e.logger.Debug("reading mode changed", "from", prev.ReadingMode, "to", next.ReadingMode)
	} else {
		e.mode.Recalculate()
	}
	e.page = e.mode.State()
	ev := e.changedLocked()
	e.mu.Unlock()

	e.dispatch(ev)
	return nil
}

// Resize reflows the chapter at the container's current size
func (e *Engine) Resize() error {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		return e.failUnlock(err)
	}
	e.renderer.Relayout()
	e.mode.Recalculate()
	e.page = e.mode.State()
	ev := e.changedLocked()
	e.mu.Unlock()
	e.dispatch(ev)
	return nil
}

// === Accessors ===

// State returns the current snapshot
func (e *Engine) State() domain.ReaderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Settings returns the active settings
func (e *Engine) Settings() domain.ReaderSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Book returns the loaded book, or nil
func (e *Engine) Book() *domain.BookDetail {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.book == nil {
		return nil
	}
	out := *e.book
	out.Chapters = append([]domain.ChapterSummary(nil), e.book.Chapters...)
	return &out
}

// Chapter returns the displayed chapter, or nil
func (e *Engine) Chapter() *domain.LoadedChapter {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded == nil {
		return nil
	}
	out := *e.loaded
	return &out
}

// ActiveMode reports which navigation mode drives the displayed chapter,
// or "" when no chapter is displayed. The mode itself never leaves the
// engine; navigate through Engine methods.
func (e *Engine) ActiveMode() domain.ReadingMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.mode.(type) {
	case *pager.Paginator:
		return domain.ReadingModePaginated
	case *pager.ScrollMode:
		return domain.ReadingModeScroll
	}
	return ""
}

// View returns the visible page of the displayed chapter
func (e *Engine) View() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.renderer == nil || e.renderer.Viewport() == nil {
		return ""
	}
	return e.renderer.Viewport().View()
}

// Stylesheet returns the CSS generated for the active settings
func (e *Engine) Stylesheet() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.renderer == nil || e.renderer.Viewport() == nil {
		return ""
	}
	return e.renderer.Viewport().Stylesheet()
}

// === Internals (called with e.mu held) ===

// onPageChange is the mode callback. Modes only run inside engine methods,
// so the lock is already held.
func (e *Engine) onPageChange(st domain.PageState) {
	e.page = st
}

func (e *Engine) readyLocked() error {
	switch {
	case e.renderer == nil:
		return domain.ErrNotMounted
	case e.chapters == nil:
		return domain.ErrBookNotLoaded
	case e.mode == nil:
		return ErrNoChapter
	}
	return nil
}

func (e *Engine) destroyModeLocked() {
	if e.mode != nil {
		e.mode.Destroy()
		e.mode = nil
	}
}

func (e *Engine) stateLocked() domain.ReaderState {
	st := domain.ReaderState{Loading: e.loading}
	if e.book != nil {
		st.BookID = e.book.ID
	}
	if e.chapters == nil || e.loaded == nil {
		return st
	}

	idx := e.chapters.CurrentIndex()
	total := e.chapters.Len()
	st.ChapterIndex = idx
	st.CurrentPage = e.page.CurrentPage
	st.TotalPages = e.page.TotalPages
	st.ChapterProgress = e.page.Progress
	st.IsFirstPage = e.page.IsFirstPage
	st.IsLastPage = e.page.IsLastPage
	st.IsFirstChapter = !e.chapters.HasPrev()
	st.IsLastChapter = !e.chapters.HasNext()
	if _, ok := e.mode.(*pager.Paginator); ok {
		st.OverallProgress = progress.Overall(idx, e.page.CurrentPage, e.page.TotalPages, total)
	} else {
		st.OverallProgress = progress.Combine(idx, e.page.Progress, total)
	}
	return st
}

// changedLocked snapshots the state and the position to persist
func (e *Engine) changedLocked() events {
	st := e.stateLocked()
	ev := events{state: &st}
	if e.positions != nil && e.loaded != nil {
		ch, _ := e.chapters.Current()
		ev.save = &domain.Position{
			BookID:          st.BookID,
			ChapterID:       ch.ID,
			ChapterIndex:    st.ChapterIndex,
			Page:            st.CurrentPage,
			ChapterProgress: st.ChapterProgress,
			OverallProgress: st.OverallProgress,
			UpdatedAt:       e.now(),
		}
	}
	return ev
}

func (e *Engine) failLocked(err error) events {
	e.loading = false
	st := e.stateLocked()
	return events{err: err, state: &st}
}

// failUnlock reports err and releases the lock
func (e *Engine) failUnlock(err error) error {
	ev := e.failLocked(err)
	e.mu.Unlock()
	e.dispatch(ev)
	return err
}

// dispatch runs without the lock: position first, then error, chapter and
// state callbacks in that order.
func (e *Engine) dispatch(ev events) {
	if ev.save != nil {
		if err := e.positions.SavePosition(*ev.save); err != nil {
			e.logger.Warn("failed to save position", "bookID", ev.save.BookID, "error", err)
		}
	}
	if ev.err != nil {
		e.logger.Error("reader operation failed", "error", ev.err)
		e.observer.OnError(ev.err)
	}
	if ev.chapter != nil {
		e.observer.OnChapterChange(ev.chapterIndex, *ev.chapter)
	}
	if ev.state != nil {
		e.observer.OnStateChange(*ev.state)
	}
}
