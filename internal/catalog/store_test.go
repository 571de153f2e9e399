package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"autocaption/internal/catalog"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "state", "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "run-1", "/videos/lecture.mp4", 0.95, "ssim")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == 0 || run.Status != catalog.StatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	frames := []catalog.KeyFrame{
		{Ordinal: 0, FrameIndex: 0, Start: 0, End: 3 * time.Second, Quality: 12.5, ImagePath: "/out/a.jpg", SHA256: "aaa"},
		{Ordinal: 1, FrameIndex: 3, Start: 3 * time.Second, End: 5500 * time.Millisecond, Quality: 8},
	}
	if err := store.AddKeyFrames(ctx, "run-1", frames); err != nil {
		t.Fatalf("AddKeyFrames: %v", err)
	}
	if err := store.FinishRun(ctx, "run-1", 5, 2); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != catalog.StatusCompleted || got.Frames != 5 || got.KeyFrames != 2 || got.Metric != "ssim" {
		t.Fatalf("unexpected finished run %+v", got)
	}
	if got.FinishedAt.IsZero() || got.Elapsed() < 0 {
		t.Fatalf("expected finish time, got %+v", got)
	}

	stored, err := store.KeyFrames(ctx, "run-1")
	if err != nil {
		t.Fatalf("KeyFrames: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 key frames, got %d", len(stored))
	}
	if stored[1].End != 5500*time.Millisecond || stored[1].FrameIndex != 3 || stored[1].ImagePath != "" {
		t.Fatalf("unexpected second key frame %+v", stored[1])
	}
	if stored[0].SHA256 != "aaa" || stored[0].RunID != "run-1" {
		t.Fatalf("unexpected first key frame %+v", stored[0])
	}
}

func TestFailRunRecordsCause(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.BeginRun(ctx, "run-x", "/videos/broken.mp4", 0.9, "pixel_delta"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.FailRun(ctx, "run-x", catalog.StatusCancelled, 12, 1, errors.New("interrupted")); err != nil {
		t.Fatalf("FailRun: %v", err)
	}
	got, err := store.GetRun(ctx, "run-x")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != catalog.StatusCancelled || got.ErrorMessage != "interrupted" {
		t.Fatalf("unexpected run %+v", got)
	}

	if err := store.FailRun(ctx, "missing", catalog.StatusFailed, 0, 0, nil); !errors.Is(err, catalog.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.BeginRun(ctx, id, "/videos/"+id+".mp4", 0.95, "ssim"); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "c" || runs[1].RunID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
	all, err := store.ListRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all runs, got %d (%v)", len(all), err)
	}
}

func TestBeginRunRejectsDuplicates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.BeginRun(ctx, "dup", "/v.mp4", 0.95, "ssim"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if _, err := store.BeginRun(ctx, "dup", "/v.mp4", 0.95, "ssim"); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
	if _, err := store.BeginRun(ctx, " ", "/v.mp4", 0.95, "ssim"); err == nil {
		t.Fatal("expected blank run id to fail")
	}
}

func TestDescriptionCache(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, ok, err := store.CachedDescription(ctx, "abc", "model-a"); err != nil || ok {
		t.Fatalf("expected cache miss, got ok=%v err=%v", ok, err)
	}
	desc := catalog.Description{SHA256: "abc", Model: "model-a", Summary: "A title slide", OnScreenText: "Intro"}
	if err := store.PutDescription(ctx, desc); err != nil {
		t.Fatalf("PutDescription: %v", err)
	}
	got, ok, err := store.CachedDescription(ctx, "abc", "model-a")
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if got.Summary != "A title slide" || got.OnScreenText != "Intro" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected description %+v", got)
	}
	if _, ok, _ := store.CachedDescription(ctx, "abc", "model-b"); ok {
		t.Fatal("expected descriptions to be keyed by model")
	}
	if err := store.PutDescription(ctx, catalog.Description{Model: "m"}); err == nil {
		t.Fatal("expected missing digest to fail")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.BeginRun(context.Background(), "persist", "/v.mp4", 0.95, "ssim"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	_ = store.Close()

	reopened, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRun(context.Background(), "persist"); err != nil {
		t.Fatalf("expected run to persist: %v", err)
	}
}
