package preflight

import (
	"context"
	"path/filepath"

	"autocaption/internal/config"
	"autocaption/internal/deps"
)

// MinFreeBytes is the free space below which the output directory check fails.
const MinFreeBytes uint64 = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Model and index checks only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, MinFreeBytes))
	results = append(results, CheckDirectoryAccess("Catalog directory", filepath.Dir(cfg.Paths.CatalogPath)))

	for _, status := range deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary())) {
		results = append(results, binaryResult(status))
	}

	if cfg.Vision.Enabled {
		results = append(results, CheckLLM(ctx, "Vision LLM", cfg.VisionLLM()))
	}
	// The correction check is skipped when it would hit the same model and
	// endpoint the vision check just verified.
	if cfg.Correction.Enabled && !(cfg.Vision.Enabled && sameEndpoint(cfg.VisionLLM(), cfg.CorrectionLLM())) {
		results = append(results, CheckLLM(ctx, "Correction LLM", cfg.CorrectionLLM()))
	}

	if cfg.Index.Enabled {
		results = append(results, CheckIndex(ctx, cfg.Index.DSN, cfg.Index.Table))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func sameEndpoint(a, b config.LLMConfig) bool {
	return a.APIKey == b.APIKey && a.BaseURL == b.BaseURL && a.Model == b.Model
}

func binaryResult(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Command}
	}
	return Result{Name: status.Name, Passed: status.Optional, Detail: status.Detail}
}
