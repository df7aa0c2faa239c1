package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) Ledger {
	t.Helper()
	l, err := Open("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestHashURLStable(t *testing.T) {
	a := HashURL("https://techcrunch.com/ai/launch-1")
	b := HashURL("https://techcrunch.com/ai/launch-1")
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("hash length = %d, want 16", len(a))
	}
	if a == HashURL("https://techcrunch.com/ai/launch-2") {
		t.Fatal("different urls collided")
	}
}

func TestRecordSeenIdempotent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	url := "https://techcrunch.com/ai/launch-1"
	first := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	if err := l.RecordSeen(ctx, url, "TechCrunch", 42, first); err != nil {
		t.Fatalf("RecordSeen: %v", err)
	}
	// Re-recording with a different score must not overwrite anything.
	if err := l.RecordSeen(ctx, url, "Wired", 99, first.Add(24*time.Hour)); err != nil {
		t.Fatalf("RecordSeen again: %v", err)
	}

	seen, err := l.Seen(ctx, url)
	if err != nil || !seen {
		t.Fatalf("Seen = %v, %v; want true, nil", seen, err)
	}

	stats, err := l.Stats(ctx, 0)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Seen != 1 {
		t.Errorf("Seen count = %d, want 1", stats.Seen)
	}
	if stats.MeanScore != 42 {
		t.Errorf("MeanScore = %v, want 42 (first record wins)", stats.MeanScore)
	}
}

func TestRecordSeenConcurrent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	url := "https://techcrunch.com/ai/raced-story"
	now := time.Now().UTC()

	const writers = 50
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.RecordSeen(ctx, url, "TechCrunch", 10, now)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent RecordSeen: %v", err)
		}
	}

	stats, err := l.Stats(ctx, 0)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Seen != 1 {
		t.Fatalf("Seen count = %d after %d racing writers, want 1", stats.Seen, writers)
	}
}

func TestMarkPublished(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	url := "https://wired.com/story/new-model"
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	if err := l.RecordSeen(ctx, url, "Wired", 30, now); err != nil {
		t.Fatalf("RecordSeen: %v", err)
	}

	pub, err := l.Published(ctx, url)
	if err != nil || pub {
		t.Fatalf("Published before marking = %v, %v; want false, nil", pub, err)
	}

	if err := l.MarkPublished(ctx, url, now); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	pub, err = l.Published(ctx, url)
	if err != nil || !pub {
		t.Fatalf("Published = %v, %v; want true, nil", pub, err)
	}

	// Second stamp is a no-op, not an error.
	if err := l.MarkPublished(ctx, url, now.Add(time.Hour)); err != nil {
		t.Fatalf("MarkPublished second time: %v", err)
	}
}

func TestMarkPublishedUnseen(t *testing.T) {
	l := openTestLedger(t)

	err := l.MarkPublished(context.Background(), "https://nowhere.example/x", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkPublished on unseen url = %v, want ErrNotFound", err)
	}
}

func TestStatsWindow(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recent := "https://techcrunch.com/ai/fresh"
	old := "https://techcrunch.com/ai/stale"

	if err := l.RecordSeen(ctx, recent, "TechCrunch", 50, now.Add(-time.Hour)); err != nil {
		t.Fatalf("RecordSeen recent: %v", err)
	}
	if err := l.RecordSeen(ctx, old, "TechCrunch", 10, now.Add(-30*24*time.Hour)); err != nil {
		t.Fatalf("RecordSeen old: %v", err)
	}
	if err := l.MarkPublished(ctx, recent, now); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}

	week, err := l.Stats(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Stats(week): %v", err)
	}
	if week.Seen != 1 || week.Published != 1 {
		t.Errorf("weekly stats = %+v, want Seen=1 Published=1", week)
	}
	if week.MeanScore != 50 {
		t.Errorf("weekly MeanScore = %v, want 50", week.MeanScore)
	}

	all, err := l.Stats(ctx, 0)
	if err != nil {
		t.Fatalf("Stats(all): %v", err)
	}
	if all.Seen != 2 || all.Published != 1 {
		t.Errorf("all-time stats = %+v, want Seen=2 Published=1", all)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "dsn"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
