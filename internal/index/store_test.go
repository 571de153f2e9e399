package index_test

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"testing"
	"time"

	"autocaption/internal/export"
	"autocaption/internal/frames"
	"autocaption/internal/index"
	"autocaption/internal/keyframe"
	"autocaption/internal/services"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, err := index.Open(context.Background(), " ", "", nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

// TestStoreRoundTrip needs a Postgres with pgvector; set AUTOCAPTION_TEST_INDEX_DSN to run it.
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("AUTOCAPTION_TEST_INDEX_DSN")
	if dsn == "" {
		t.Skip("AUTOCAPTION_TEST_INDEX_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	table := fmt.Sprintf("slides_test_%d", time.Now().UnixNano())
	store, err := index.Open(ctx, dsn, table, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	left := frames.Solid(0, 0, 64, 36, color.RGBA{255, 255, 255, 255})
	for y := 0; y < 36; y++ {
		for x := 0; x < 32; x++ {
			left.Image.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	top := frames.Solid(5, 5*time.Second, 64, 36, color.RGBA{255, 255, 255, 255})
	for y := 0; y < 18; y++ {
		for x := 0; x < 64; x++ {
			top.Image.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	kfs := []keyframe.KeyFrame{
		{Frame: left, Start: 0, End: 5 * time.Second},
		{Frame: top, Start: 5 * time.Second, End: 9 * time.Second, FirstIndex: 5, LastIndex: 8},
	}
	job := export.Job{Video: "lecture.mp4", RunID: "run-1"}
	if err := store.Export(ctx, job, kfs); err != nil {
		t.Fatalf("Export: %v", err)
	}
	// Re-export replaces rather than duplicates.
	if err := store.Export(ctx, job, kfs); err != nil {
		t.Fatalf("Export again: %v", err)
	}

	matches, err := store.Search(ctx, top.Image, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Ordinal != 1 || matches[0].FrameIndex != 5 || matches[0].Similarity < 0.99 {
		t.Fatalf("unexpected best match %+v", matches[0])
	}
}
