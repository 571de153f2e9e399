package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"autocaption/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, "autocaption"); cfg.Paths.OutputDir != want {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "autocaption", "catalog.db"); cfg.Paths.CatalogPath != want {
		t.Fatalf("unexpected catalog path: got %q want %q", cfg.Paths.CatalogPath, want)
	}
	if cfg.Extraction.SimilarityThreshold != 0.95 {
		t.Fatalf("expected default threshold 0.95, got %v", cfg.Extraction.SimilarityThreshold)
	}
	if cfg.SamplingInterval() != time.Second {
		t.Fatalf("expected 1s sampling interval, got %v", cfg.SamplingInterval())
	}
	if cfg.Extraction.RollingReference {
		t.Fatal("expected rolling reference disabled by default")
	}
	if cfg.Extraction.MergeShortRuns || cfg.MinRunDuration() != 0 {
		t.Fatal("expected short-run merging disabled by default")
	}
	if cfg.Vision.Enabled || cfg.Correction.Enabled || cfg.Index.Enabled {
		t.Fatal("expected model and index features disabled by default")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfigOverridesExtraction(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg := config.Default()
	cfg.Paths.OutputDir = "~/lectures"
	cfg.Extraction.SamplingInterval = 2.5
	cfg.Extraction.SimilarityThreshold = 0.8
	cfg.Extraction.SimilarityMetric = "PIXEL_DELTA"
	cfg.Extraction.RollingReference = true
	cfg.Extraction.MinRunDuration = 3
	cfg.Extraction.MergeShortRuns = true
	cfg.Logging.Format = "JSON"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(tempHome, "custom.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to be loaded, got %q (exists=%v)", path, resolved, exists)
	}
	if loaded.Paths.OutputDir != filepath.Join(tempHome, "lectures") {
		t.Fatalf("unexpected output dir %q", loaded.Paths.OutputDir)
	}
	if loaded.SamplingInterval() != 2500*time.Millisecond {
		t.Fatalf("unexpected interval %v", loaded.SamplingInterval())
	}
	if loaded.MinRunDuration() != 3*time.Second {
		t.Fatalf("unexpected min run duration %v", loaded.MinRunDuration())
	}
	if loaded.Extraction.SimilarityMetric != "pixel_delta" {
		t.Fatalf("expected metric to be normalized, got %q", loaded.Extraction.SimilarityMetric)
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", loaded.Logging.Format)
	}
}

func TestLoadUsesEnvAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", " env-key ")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"threshold above one", func(c *config.Config) { c.Extraction.SimilarityThreshold = 1.5 }, "similarity_threshold"},
		{"threshold below zero", func(c *config.Config) { c.Extraction.SimilarityThreshold = -0.1 }, "similarity_threshold"},
		{"zero interval", func(c *config.Config) { c.Extraction.SamplingInterval = 0 }, "sampling_interval"},
		{"sub-millisecond interval", func(c *config.Config) { c.Extraction.SamplingInterval = 0.0000005 }, "sampling_interval"},
		{"unknown metric", func(c *config.Config) { c.Extraction.SimilarityMetric = "phash" }, "similarity_metric"},
		{"negative min run", func(c *config.Config) { c.Extraction.MinRunDuration = -1 }, "min_run_duration"},
		{"merge without min run", func(c *config.Config) { c.Extraction.MergeShortRuns = true }, "min_run_duration"},
		{"zero workers", func(c *config.Config) { c.Extraction.Workers = 0 }, "extraction.workers"},
		{"jpeg quality", func(c *config.Config) { c.Export.JPEGQuality = 0 }, "jpeg_quality"},
		{"vision without key", func(c *config.Config) { c.Vision.Enabled = true }, "llm.api_key"},
		{"correction without key", func(c *config.Config) { c.Correction.Enabled = true }, "llm.api_key"},
		{"index without dsn", func(c *config.Config) { c.Index.Enabled = true }, "index.dsn"},
		{"index bad table", func(c *config.Config) {
			c.Index.Enabled = true
			c.Index.DSN = "postgres://localhost/slides"
			c.Index.Table = "slides; drop table x"
		}, "index.table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENROUTER_API_KEY", "")

	path := filepath.Join(tempHome, "config", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Extraction.SimilarityThreshold != 0.95 {
		t.Fatalf("unexpected sample threshold %v", cfg.Extraction.SimilarityThreshold)
	}
}

func TestSectionLLMFallsBackToShared(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "shared"
	cfg.Correction.Model = "correction/model"

	vision := cfg.VisionLLM()
	if vision.Model != cfg.LLM.Model || vision.APIKey != "shared" {
		t.Fatalf("expected vision to inherit shared llm settings, got %+v", vision)
	}
	correction := cfg.CorrectionLLM()
	if correction.Model != "correction/model" {
		t.Fatalf("expected correction model override, got %q", correction.Model)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CatalogPath = filepath.Join(base, "state", "catalog.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.CatalogPath)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist (err=%v)", dir, err)
		}
	}
}
