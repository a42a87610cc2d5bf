package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"audioqc/internal/metrics"
	"audioqc/internal/scoring"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	analyses := []scoring.Analysis{
		{
			FileMetrics:  metrics.FileMetrics{FilePath: "/music/a.flac", CacheHit: true},
			QualityScore: 91,
			Status:       scoring.StatusGood,
			Confidence:   1.0,
		},
		{
			FileMetrics:  metrics.FileMetrics{FilePath: "/music/b.mp3"},
			QualityScore: 40,
			Status:       scoring.StatusLowBitrate,
			Confidence:   0.9,
		},
	}
	started := time.Now().Add(-time.Minute)
	runID, err := store.RecordRun(ctx, Run{
		Root:       "/music",
		Profile:    "pop",
		StartedAt:  started,
		FinishedAt: time.Now(),
		FileCount:  2,
		CacheHits:  1,
		MeanScore:  65.5,
	}, analyses)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != runID || got.Root != "/music" || got.Profile != "pop" ||
		got.FileCount != 2 || got.CacheHits != 1 || got.MeanScore != 65.5 {
		t.Fatalf("run mismatch: %+v", got)
	}

	results, err := store.ResultsForRun(ctx, runID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].FilePath != "/music/a.flac" || results[0].Score != 91 || !results[0].CacheHit {
		t.Fatalf("best result first: %+v", results[0])
	}
	if results[1].Status != string(scoring.StatusLowBitrate) {
		t.Fatalf("status not persisted: %+v", results[1])
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.RecordRun(ctx, Run{
			Root:       "/music",
			Profile:    "pop",
			StartedAt:  time.Now().Add(time.Duration(i) * time.Hour),
			FinishedAt: time.Now().Add(time.Duration(i)*time.Hour + time.Minute),
		}, nil)
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("limit ignored: %d runs", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("runs not newest-first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if store.Path() != path {
		t.Fatalf("path: %s", store.Path())
	}
}
