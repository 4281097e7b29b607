package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/readmigo/reader/internal/domain"
)

func samplePosition(bookID string, updated time.Time) domain.Position {
	return domain.Position{
		BookID:          bookID,
		ChapterID:       "ch-2",
		ChapterIndex:    1,
		Page:            4,
		ChapterProgress: 0.5,
		OverallProgress: 0.3,
		UpdatedAt:       updated,
	}
}

func openStore(t *testing.T, dir string) *PositionStore {
	t.Helper()
	s, err := NewPositionStore(dir, "https://api.example.com", nil)
	if err != nil {
		t.Fatalf("NewPositionStore: %v", err)
	}
	return s
}

func TestPositionStore_MemoryOnly(t *testing.T) {
	s := openStore(t, "")
	defer s.Close()

	if _, ok := s.GetPosition("b1"); ok {
		t.Fatal("empty store returned a position")
	}

	want := samplePosition("b1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	if err := s.SavePosition(want); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}
	got, ok := s.GetPosition("b1")
	if !ok {
		t.Fatal("position not found after save")
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("position (-want +got):\n%s", d)
	}

	s.DeletePosition("b1")
	if _, ok := s.GetPosition("b1"); ok {
		t.Error("position still present after delete")
	}
}

func TestPositionStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	want := samplePosition("b1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	s := openStore(t, dir)
	if err := s.SavePosition(want); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*", "positions.db"))
	if len(matches) != 1 {
		t.Fatalf("expected one namespaced database, found %v", matches)
	}

	reopened := openStore(t, dir)
	defer reopened.Close()
	got, ok := reopened.GetPosition("b1")
	if !ok {
		t.Fatal("position lost after reopen")
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("position (-want +got):\n%s", d)
	}
}

func TestPositionStore_NamespacesAreSeparate(t *testing.T) {
	dir := t.TempDir()
	a, err := NewPositionStore(dir, "https://a.example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewPositionStore(dir, "https://b.example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.SavePosition(samplePosition("b1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.GetPosition("b1"); ok {
		t.Error("position leaked across namespaces")
	}
}

func TestHashNamespace_Normalizes(t *testing.T) {
	if hashNamespace("https://API.example.com/") != hashNamespace("https://api.example.com") {
		t.Error("case and trailing slash should not change the namespace")
	}
	if got := len(hashNamespace("x")); got != 12 {
		t.Errorf("hash length = %d, want 12", got)
	}
}

func TestPositionStore_SaveStampsTime(t *testing.T) {
	s := openStore(t, "")
	before := time.Now()
	if err := s.SavePosition(domain.Position{BookID: "b1"}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetPosition("b1")
	if got.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v, want >= %v", got.UpdatedAt, before)
	}
}

func TestPositionStore_RejectsEmptyBookID(t *testing.T) {
	s := openStore(t, "")
	if err := s.SavePosition(domain.Position{}); err == nil {
		t.Error("expected error for empty book id")
	}
}

func TestPositionStore_ListPositions(t *testing.T) {
	for _, dir := range []string{"", t.TempDir()} {
		name := "memory"
		if dir != "" {
			name = "bolt"
		}
		t.Run(name, func(t *testing.T) {
			s := openStore(t, dir)
			defer s.Close()

			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, id := range []string{"old", "newest", "middle"} {
				offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
				if err := s.SavePosition(samplePosition(id, base.Add(offsets[i]))); err != nil {
					t.Fatal(err)
				}
			}

			list, err := s.ListPositions()
			if err != nil {
				t.Fatalf("ListPositions: %v", err)
			}
			var got []string
			for _, p := range list {
				got = append(got, p.BookID)
			}
			if d := cmp.Diff([]string{"newest", "middle", "old"}, got); d != "" {
				t.Errorf("order (-want +got):\n%s", d)
			}
		})
	}
}

func TestPositionStore_Clear(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	for _, id := range []string{"a", "b"} {
		if err := s.SavePosition(samplePosition(id, time.Now())); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	list, err := s.ListPositions()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("ListPositions after Clear = %d entries", len(list))
	}
	if _, ok := s.GetPosition("a"); ok {
		t.Error("cache still holds a cleared position")
	}
}
