package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
)

func TestStore_LoadMissing(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec := domain.NewBehaviorRecord()
	rec.RecordVisit("/songs/a")
	rec.RecordClick("Song A")
	rec.AddTime("/songs/a", 125)

	if err := s.Save(ctx, "sess", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the original after save must not leak into the store.
	rec.RecordVisit("/songs/a")

	got, err := s.Load(ctx, "sess")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.PagesVisited["/songs/a"] != 1 {
		t.Errorf("visits = %d, want 1", got.PagesVisited["/songs/a"])
	}
	if got.Clicks["Song A"] != 1 || got.TimeSpent["/songs/a"] != 125 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestStore_ShownState(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.LastShown(ctx, "sess"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("LastShown before mark = %v, want ErrNotFound", err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.MarkShown(ctx, "sess", at); err != nil {
		t.Fatalf("MarkShown: %v", err)
	}

	got, err := s.LastShown(ctx, "sess")
	if err != nil {
		t.Fatalf("LastShown: %v", err)
	}
	if !got.Equal(at) {
		t.Errorf("LastShown = %v, want %v", got, at)
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.Save(ctx, "old", domain.NewBehaviorRecord())

	s.now = func() time.Time { return base.Add(48 * time.Hour) }
	s.Save(ctx, "fresh", domain.NewBehaviorRecord())

	n, err := s.PurgeExpired(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	if _, err := s.Load(ctx, "old"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expired session still present: %v", err)
	}
	if _, err := s.Load(ctx, "fresh"); err != nil {
		t.Errorf("fresh session purged: %v", err)
	}
}
