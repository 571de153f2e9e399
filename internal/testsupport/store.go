package testsupport

import (
	"context"
	"testing"

	"autocaption/internal/catalog"
	"autocaption/internal/config"
)

// MustOpenCatalog opens the catalog for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.Paths.CatalogPath)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun records a running extraction for tests.
func BeginRun(t testing.TB, store *catalog.Store, runID, video string) *catalog.Run {
	t.Helper()

	run, err := store.BeginRun(context.Background(), runID, video, 0.95, "ssim")
	if err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
	return run
}
