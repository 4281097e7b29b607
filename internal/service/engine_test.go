package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/readmigo/reader/internal/domain"
	"github.com/readmigo/reader/internal/progress"
	"github.com/readmigo/reader/internal/render"
	"github.com/readmigo/reader/internal/store"
)

// plainSettings lays each paragraph out on one line with no margins. With
// a 20x3 container the chapters of fakeRepo have 2, 3 and 1 pages.
func plainSettings(mode domain.ReadingMode) domain.ReaderSettings {
	s := domain.DefaultSettings()
	s.Margin = 0
	s.ParagraphSpacing = 0
	s.TextAlign = domain.TextAlignLeft
	s.ReadingMode = mode
	return s
}

type engineFixture struct {
	engine    *Engine
	repo      *fakeRepo
	obs       *recorder
	container *render.FixedContainer
}

// newFixture returns a mounted engine with book b1 loaded
func newFixture(t *testing.T, mode domain.ReadingMode, opts ...Option) *engineFixture {
	t.Helper()
	f := &engineFixture{
		repo:      newFakeRepo(),
		obs:       &recorder{},
		container: render.NewFixedContainer(20, 3),
	}
	opts = append([]Option{WithObserver(f.obs)}, opts...)
	f.engine = NewEngine(f.repo, plainSettings(mode), nil, opts...)
	if err := f.engine.Mount(f.container); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if _, err := f.engine.LoadBook(context.Background(), "b1"); err != nil {
		t.Fatalf("LoadBook: %v", err)
	}
	f.obs.reset()
	return f
}

type spot struct{ Chapter, Page int }

func spotOf(s domain.ReaderState) spot { return spot{s.ChapterIndex, s.CurrentPage} }

func TestEngine_Preconditions(t *testing.T) {
	ctx := context.Background()
	obs := &recorder{}
	e := NewEngine(newFakeRepo(), plainSettings(domain.ReadingModePaginated), nil, WithObserver(obs))

	if err := e.LoadChapter(ctx, 0); !errors.Is(err, domain.ErrNotMounted) {
		t.Errorf("LoadChapter unmounted err = %v", err)
	}
	if err := e.Mount(nil); !errors.Is(err, domain.ErrNotMounted) {
		t.Errorf("Mount(nil) err = %v", err)
	}
	if err := e.Mount(render.NewFixedContainer(20, 3)); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadChapter(ctx, 0); !errors.Is(err, domain.ErrBookNotLoaded) {
		t.Errorf("LoadChapter without book err = %v", err)
	}
	if _, err := e.LoadBook(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.NextPage(ctx); !errors.Is(err, ErrNoChapter) {
		t.Errorf("NextPage without chapter err = %v", err)
	}

	_, _, errs := obs.snapshot()
	if len(errs) != 4 {
		t.Errorf("observer saw %d errors, want 4", len(errs))
	}
	if obs.lastState().Loading {
		t.Error("state left loading after failures")
	}
}

func TestEngine_LoadBookSortsChapters(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	var ids []string
	for _, ch := range f.engine.Book().Chapters {
		ids = append(ids, ch.ID)
	}
	if d := cmp.Diff([]string{"c1", "c2", "c3"}, ids); d != "" {
		t.Errorf("chapter order (-want +got):\n%s", d)
	}

	_, err := f.engine.LoadBook(context.Background(), "missing")
	if !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("LoadBook(missing) err = %v", err)
	}
	if st := f.engine.State(); st.Loading || st.BookID != "b1" {
		t.Errorf("state after failed load = %+v", st)
	}
}

func TestEngine_LoadChapterEvents(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(context.Background(), 0); err != nil {
		t.Fatalf("LoadChapter: %v", err)
	}

	events, states, _ := f.obs.snapshot()
	if d := cmp.Diff([]string{"state", "chapter:0", "state"}, events); d != "" {
		t.Errorf("events (-want +got):\n%s", d)
	}
	if !states[0].Loading {
		t.Error("first state should report loading")
	}

	want := domain.ReaderState{
		BookID:          "b1",
		ChapterIndex:    0,
		CurrentPage:     0,
		TotalPages:      2,
		ChapterProgress: 0,
		OverallProgress: progress.Overall(0, 0, 2, 3),
		IsFirstPage:     true,
		IsFirstChapter:  true,
	}
	if d := cmp.Diff(want, states[len(states)-1]); d != "" {
		t.Errorf("state (-want +got):\n%s", d)
	}
	if d := cmp.Diff(want, f.engine.State()); d != "" {
		t.Errorf("State() (-want +got):\n%s", d)
	}
	if got := f.engine.Chapter(); got == nil || got.Content.ID != "c1" {
		t.Errorf("Chapter() = %+v", got)
	}
	if !strings.Contains(f.engine.View(), "p1") {
		t.Errorf("View() = %q", f.engine.View())
	}
}

func TestEngine_PaginatedNavigation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(ctx, 0); err != nil {
		t.Fatal(err)
	}

	var forward []spot
	for {
		moved, err := f.engine.NextPage(ctx)
		if err != nil {
			t.Fatalf("NextPage: %v", err)
		}
		if !moved {
			break
		}
		forward = append(forward, spotOf(f.engine.State()))
	}
	want := []spot{{0, 1}, {1, 0}, {1, 1}, {1, 2}, {2, 0}}
	if d := cmp.Diff(want, forward); d != "" {
		t.Errorf("forward walk (-want +got):\n%s", d)
	}
	st := f.engine.State()
	if !st.IsLastChapter || !st.IsLastPage || st.OverallProgress != 1 {
		t.Errorf("end of book state = %+v", st)
	}

	var backward []spot
	for {
		moved, err := f.engine.PrevPage(ctx)
		if err != nil {
			t.Fatalf("PrevPage: %v", err)
		}
		if !moved {
			break
		}
		backward = append(backward, spotOf(f.engine.State()))
	}
	// Crossing back lands on the previous chapter's last page
	want = []spot{{1, 2}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}
	if d := cmp.Diff(want, backward); d != "" {
		t.Errorf("backward walk (-want +got):\n%s", d)
	}
	st = f.engine.State()
	if !st.IsFirstChapter || !st.IsFirstPage {
		t.Errorf("start of book state = %+v", st)
	}
}

func TestEngine_GoToPageAndProgress(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.GoToPage(99); err != nil {
		t.Fatal(err)
	}
	if st := f.engine.State(); st.CurrentPage != 2 || st.ChapterProgress != 1 {
		t.Errorf("GoToPage(99) state = %+v", st)
	}
	if err := f.engine.GoToProgress(0.5); err != nil {
		t.Fatal(err)
	}
	if st := f.engine.State(); st.CurrentPage != 1 {
		t.Errorf("GoToProgress(0.5) page = %d, want 1", st.CurrentPage)
	}
}

func TestEngine_InvalidChapter(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	ctx := context.Background()
	if err := f.engine.LoadChapter(ctx, 0); err != nil {
		t.Fatal(err)
	}
	f.obs.reset()

	for _, idx := range []int{-1, 3} {
		if err := f.engine.LoadChapter(ctx, idx); !errors.Is(err, domain.ErrInvalidChapter) {
			t.Errorf("LoadChapter(%d) err = %v", idx, err)
		}
	}
	events, _, _ := f.obs.snapshot()
	if d := cmp.Diff([]string{"error", "state", "error", "state"}, events); d != "" {
		t.Errorf("events (-want +got):\n%s", d)
	}
	if st := f.engine.State(); st.ChapterIndex != 0 || st.Loading {
		t.Errorf("state after invalid chapter = %+v", st)
	}
}

func TestEngine_FetchErrorKeepsDisplay(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	ctx := context.Background()
	if err := f.engine.LoadChapter(ctx, 0); err != nil {
		t.Fatal(err)
	}
	f.repo.fail["c2"] = errUnavailable
	f.obs.reset()

	if err := f.engine.LoadChapter(ctx, 1); !errors.Is(err, errUnavailable) {
		t.Fatalf("LoadChapter err = %v", err)
	}
	events, states, errs := f.obs.snapshot()
	if d := cmp.Diff([]string{"state", "error", "state"}, events); d != "" {
		t.Errorf("events (-want +got):\n%s", d)
	}
	if len(errs) != 1 || !errors.Is(errs[0], errUnavailable) {
		t.Errorf("observer errors = %v", errs)
	}
	if last := states[len(states)-1]; last.Loading || last.ChapterIndex != 0 {
		t.Errorf("state after failure = %+v", last)
	}
	if f.engine.Chapter().Content.ID != "c1" {
		t.Error("failed load replaced the displayed chapter")
	}
}

func TestEngine_StaleLoadDiscarded(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	ctx := context.Background()
	gate := make(chan struct{})
	f.repo.gates["c2"] = gate

	errc := make(chan error, 1)
	go func() { errc <- f.engine.LoadChapter(ctx, 1) }()

	select {
	case <-f.repo.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first load never reached the repository")
	}
	if err := f.engine.LoadChapter(ctx, 2); err != nil {
		t.Fatalf("second load: %v", err)
	}
	close(gate)

	select {
	case err := <-errc:
		if !errors.Is(err, domain.ErrStaleLoad) {
			t.Errorf("superseded load err = %v, want ErrStaleLoad", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("superseded load never returned")
	}

	if st := f.engine.State(); st.ChapterIndex != 2 || st.Loading {
		t.Errorf("state = %+v, want chapter 2 displayed", st)
	}
	if f.engine.Chapter().Content.ID != "c3" {
		t.Errorf("displayed chapter = %s", f.engine.Chapter().Content.ID)
	}
	if _, _, errs := f.obs.snapshot(); len(errs) != 0 {
		t.Errorf("stale load reported errors: %v", errs)
	}
}

func TestEngine_ModeSwitchKeepsPosition(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.GoToPage(1); err != nil {
		t.Fatal(err)
	}

	scroll := domain.ReadingModeScroll
	if err := f.engine.UpdateSettings(domain.SettingsPatch{ReadingMode: &scroll}); err != nil {
		t.Fatalf("switch to scroll: %v", err)
	}
	if m := f.engine.ActiveMode(); m != domain.ReadingModeScroll {
		t.Fatalf("mode = %q, want scroll", m)
	}
	if st := f.engine.State(); st.ChapterProgress != 0.5 || st.CurrentPage != 1 {
		t.Errorf("scroll state = %+v", st)
	}

	paginated := domain.ReadingModePaginated
	if err := f.engine.UpdateSettings(domain.SettingsPatch{ReadingMode: &paginated}); err != nil {
		t.Fatalf("switch back: %v", err)
	}
	if m := f.engine.ActiveMode(); m != domain.ReadingModePaginated {
		t.Fatalf("mode = %q, want paginated", m)
	}
	st := f.engine.State()
	if st.TotalPages != 3 || st.CurrentPage != 1 {
		t.Errorf("round trip state = %+v, want page 1 of 3", st)
	}
	if f.engine.Settings().ReadingMode != domain.ReadingModePaginated {
		t.Errorf("settings mode = %s", f.engine.Settings().ReadingMode)
	}
}

func TestEngine_UpdateSettingsRejectsInvalid(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	bad := domain.ReadingMode("sideways")
	err := f.engine.UpdateSettings(domain.SettingsPatch{ReadingMode: &bad})
	if !errors.Is(err, domain.ErrInvalidSettings) {
		t.Errorf("err = %v, want ErrInvalidSettings", err)
	}
	if f.engine.Settings().ReadingMode != domain.ReadingModePaginated {
		t.Error("invalid patch changed the settings")
	}
	if _, _, errs := f.obs.snapshot(); len(errs) != 1 {
		t.Errorf("observer errors = %v", errs)
	}
}

func TestEngine_UpdateSettingsReflows(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.GoToPage(2); err != nil {
		t.Fatal(err)
	}

	// One blank line between paragraphs: 17 lines, 6 columns of 3
	spacing := 1.0
	if err := f.engine.UpdateSettings(domain.SettingsPatch{ParagraphSpacing: &spacing}); err != nil {
		t.Fatal(err)
	}
	st := f.engine.State()
	if st.TotalPages != 6 || st.CurrentPage != 2 {
		t.Errorf("reflowed state = %+v, want page 2 of 6", st)
	}
}

func TestEngine_Resize(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.GoToPage(2); err != nil {
		t.Fatal(err)
	}

	f.container.Height = 9
	if err := f.engine.Resize(); err != nil {
		t.Fatal(err)
	}
	if st := f.engine.State(); st.TotalPages != 1 || st.CurrentPage != 0 {
		t.Errorf("resized state = %+v, want a single page", st)
	}
}

func TestEngine_ScrollMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ReadingModeScroll)
	if err := f.engine.LoadChapter(ctx, 1); err != nil {
		t.Fatal(err)
	}

	moved, err := f.engine.Scroll(2)
	if err != nil || !moved {
		t.Fatalf("Scroll(2) = %v, %v", moved, err)
	}
	st := f.engine.State()
	if st.ChapterProgress != 2.0/6.0 {
		t.Errorf("progress = %v, want 1/3", st.ChapterProgress)
	}
	if st.OverallProgress != progress.Combine(1, 2.0/6.0, 3) {
		t.Errorf("overall = %v", st.OverallProgress)
	}

	if moved, _ := f.engine.Scroll(-5); !moved {
		t.Error("Scroll(-5) did not move")
	}
	if moved, _ := f.engine.Scroll(-1); moved {
		t.Error("Scroll past the top reported movement")
	}

	// At the top of chapter 1, going back opens chapter 0 at its bottom
	if moved, err := f.engine.PrevPage(ctx); err != nil || !moved {
		t.Fatalf("PrevPage = %v, %v", moved, err)
	}
	st = f.engine.State()
	if st.ChapterIndex != 0 || st.ChapterProgress != 1 || !st.IsLastPage {
		t.Errorf("state after crossing back = %+v", st)
	}
}

func TestEngine_ScrollIgnoredWhenPaginated(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	f.obs.reset()
	moved, err := f.engine.Scroll(3)
	if err != nil || moved {
		t.Errorf("Scroll = %v, %v", moved, err)
	}
	if events, _, _ := f.obs.snapshot(); len(events) != 0 {
		t.Errorf("events = %v", events)
	}
}

func TestEngine_ChapterLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ReadingModePaginated)

	idx, err := f.engine.GoToChapterTitle(ctx, "cross")
	if err != nil || idx != 1 {
		t.Fatalf("GoToChapterTitle = %d, %v", idx, err)
	}
	if f.engine.State().ChapterIndex != 1 {
		t.Errorf("chapter index = %d", f.engine.State().ChapterIndex)
	}
	if _, err := f.engine.GoToChapterTitle(ctx, "zzz"); !errors.Is(err, domain.ErrChapterNotFound) {
		t.Errorf("unmatched title err = %v", err)
	}

	if err := f.engine.GoToChapterID(ctx, "c3"); err != nil {
		t.Fatal(err)
	}
	if f.engine.State().ChapterIndex != 2 {
		t.Errorf("chapter index = %d", f.engine.State().ChapterIndex)
	}
	if err := f.engine.GoToChapterID(ctx, "c9"); !errors.Is(err, domain.ErrChapterNotFound) {
		t.Errorf("unknown id err = %v", err)
	}

	matches := f.engine.SearchChapters("arr")
	if len(matches) == 0 || matches[0].Index != 2 {
		t.Errorf("SearchChapters = %+v", matches)
	}
}

func TestEngine_UnmountAndRemount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ReadingModePaginated)
	if err := f.engine.LoadChapter(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.NextPage(ctx); err != nil {
		t.Fatal(err)
	}

	f.engine.Unmount()
	f.engine.Unmount()
	if f.container.Attached() != nil {
		t.Error("viewport still attached after Unmount")
	}
	if f.engine.Mounted() || f.engine.View() != "" {
		t.Error("engine still reports a mounted view")
	}
	if _, err := f.engine.NextPage(ctx); !errors.Is(err, domain.ErrNotMounted) {
		t.Errorf("NextPage unmounted err = %v", err)
	}

	next := render.NewFixedContainer(20, 3)
	if err := f.engine.Mount(next); err != nil {
		t.Fatal(err)
	}
	if next.Attached() == nil {
		t.Fatal("remount did not attach a viewport")
	}
	if st := f.engine.State(); st.ChapterIndex != 1 || st.CurrentPage != 1 {
		t.Errorf("remounted state = %+v, want chapter 1 page 1", st)
	}
	if !strings.Contains(f.engine.View(), "p4") {
		t.Errorf("View() = %q, want the second page", f.engine.View())
	}
}

func TestEngine_ResumeSavedPosition(t *testing.T) {
	ctx := context.Background()
	positions, err := store.NewPositionStore("", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer positions.Close()

	f := newFixture(t, domain.ReadingModePaginated, WithPositionStore(positions))
	if err := f.engine.LoadChapter(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.NextPage(ctx); err != nil {
		t.Fatal(err)
	}

	pos, ok := positions.GetPosition("b1")
	if !ok {
		t.Fatal("no position saved")
	}
	if pos.ChapterID != "c2" || pos.ChapterIndex != 1 || pos.Page != 1 || pos.UpdatedAt.IsZero() {
		t.Errorf("saved position = %+v", pos)
	}

	resumed := NewEngine(f.repo, plainSettings(domain.ReadingModePaginated), nil, WithPositionStore(positions))
	if err := resumed.Mount(render.NewFixedContainer(20, 3)); err != nil {
		t.Fatal(err)
	}
	if err := resumed.Resume(ctx, "b1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got := spotOf(resumed.State()); got != (spot{1, 1}) {
		t.Errorf("resumed at %+v, want chapter 1 page 1", got)
	}

	positions.DeletePosition("b1")
	fresh := NewEngine(f.repo, plainSettings(domain.ReadingModePaginated), nil, WithPositionStore(positions))
	if err := fresh.Mount(render.NewFixedContainer(20, 3)); err != nil {
		t.Fatal(err)
	}
	if err := fresh.Resume(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	if got := spotOf(fresh.State()); got != (spot{0, 0}) {
		t.Errorf("fresh resume at %+v, want the start", got)
	}
}

func TestEngine_ActiveMode(t *testing.T) {
	f := newFixture(t, domain.ReadingModeScroll)
	if m := f.engine.ActiveMode(); m != "" {
		t.Errorf("mode before any chapter = %q", m)
	}
	if err := f.engine.LoadChapter(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if m := f.engine.ActiveMode(); m != domain.ReadingModeScroll {
		t.Errorf("mode = %q, want scroll", m)
	}
	f.engine.Unmount()
	if m := f.engine.ActiveMode(); m != "" {
		t.Errorf("mode after Unmount = %q", m)
	}
}

func TestEngine_CacheKeepsOnlyNeighbours(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ReadingModePaginated)
	for i := range 3 {
		if err := f.engine.LoadChapter(ctx, i); err != nil {
			t.Fatalf("LoadChapter(%d): %v", i, err)
		}
	}

	cached := map[string]bool{}
	for _, id := range []string{"c1", "c2", "c3"} {
		cached[id] = f.engine.source.Cached("b1", id)
	}
	want := map[string]bool{"c1": false, "c2": true, "c3": true}
	if d := cmp.Diff(want, cached); d != "" {
		t.Errorf("cached chapters with c3 displayed (-want +got):\n%s", d)
	}
}

func TestEngine_Prefetch(t *testing.T) {
	f := newFixture(t, domain.ReadingModePaginated, WithPrefetch())
	if err := f.engine.LoadChapter(context.Background(), 0); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !f.engine.source.Cached("b1", "c2") {
		if time.Now().After(deadline) {
			t.Fatal("next chapter was not prefetched")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := f.engine.LoadChapter(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if n := f.repo.count("c2"); n != 1 {
		t.Errorf("c2 fetched %d times, want 1", n)
	}
}

func TestChannelObserver(t *testing.T) {
	states := make(chan domain.ReaderState, 1)
	errs := make(chan error, 1)
	e := NewEngine(newFakeRepo(), plainSettings(domain.ReadingModePaginated), nil,
		WithObserver(NewChannelObserver(states, errs)))

	// Neither call blocks even though each emits more than one buffered event
	if err := e.LoadChapter(context.Background(), 0); !errors.Is(err, domain.ErrNotMounted) {
		t.Fatalf("err = %v", err)
	}
	if err := <-errs; !errors.Is(err, domain.ErrNotMounted) {
		t.Errorf("forwarded err = %v", err)
	}
	if st := <-states; st.Loading {
		t.Errorf("forwarded state = %+v", st)
	}

	if _, err := e.LoadBook(context.Background(), "b1"); err != nil {
		t.Fatal(err)
	}
	// The loading snapshot filled the buffer; the completed one was dropped
	if st := <-states; !st.Loading {
		t.Errorf("first buffered state = %+v, want loading", st)
	}
	select {
	case st := <-states:
		t.Errorf("unexpected extra state %+v", st)
	default:
	}
}
