package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateVision(); err != nil {
		return err
	}
	if err := c.validateCorrection(); err != nil {
		return err
	}
	if err := c.validateIndex(); err != nil {
		return err
	}
	return nil
}

// minSamplingInterval matches the decoder's millisecond floor.
const minSamplingInterval = 0.001

func (c *Config) validateExtraction() error {
	e := c.Extraction
	if math.IsNaN(e.SamplingInterval) || e.SamplingInterval < minSamplingInterval {
		return fmt.Errorf("extraction.sampling_interval must be at least %v seconds", minSamplingInterval)
	}
	if math.IsNaN(e.SimilarityThreshold) || e.SimilarityThreshold < 0 || e.SimilarityThreshold > 1 {
		return errors.New("extraction.similarity_threshold must be between 0 and 1")
	}
	switch e.SimilarityMetric {
	case "ssim", "pixel_delta":
	default:
		return fmt.Errorf("extraction.similarity_metric %q is not supported (use ssim or pixel_delta)", e.SimilarityMetric)
	}
	if e.MinRunDuration < 0 {
		return errors.New("extraction.min_run_duration must be zero or positive (seconds)")
	}
	if e.MergeShortRuns && e.MinRunDuration == 0 {
		return errors.New("extraction.min_run_duration must be set when extraction.merge_short_runs is true")
	}
	if err := ensurePositiveMap(map[string]int{
		"extraction.workers":         e.Workers,
		"extraction.prefetch_frames": e.PrefetchFrames,
	}); err != nil {
		return err
	}
	if e.DownsampleMaxSide < 16 || e.DownsampleMaxSide > 4096 {
		return errors.New("extraction.downsample_max_side must be between 16 and 4096")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return errors.New("export.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateVision() error {
	if !c.Vision.Enabled {
		return nil
	}
	if c.Vision.Workers <= 0 {
		return errors.New("vision.workers must be positive")
	}
	if c.Vision.MaxSide < 64 {
		return errors.New("vision.max_side must be at least 64")
	}
	if c.LLM.APIKey == "" {
		return missingKeyError("vision")
	}
	return nil
}

func (c *Config) validateCorrection() error {
	if c.Correction.MinSimilarity < 0 || c.Correction.MinSimilarity > 1 {
		return errors.New("correction.min_similarity must be between 0 and 1")
	}
	if c.Correction.Enabled && c.LLM.APIKey == "" {
		return missingKeyError("correction")
	}
	return nil
}

func (c *Config) validateIndex() error {
	if !c.Index.Enabled {
		return nil
	}
	if c.Index.DSN == "" {
		return errors.New("index.dsn must be set when index.enabled is true (or set AUTOCAPTION_INDEX_DSN)")
	}
	if !identifierPattern.MatchString(c.Index.Table) {
		return fmt.Errorf("index.table %q must be a plain SQL identifier", c.Index.Table)
	}
	return nil
}

func missingKeyError(section string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required when %s.enabled is true. Set OPENROUTER_API_KEY env var or edit %s (create with 'autocaption config init')", section, defaultPath)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", strings.TrimSpace(key))
		}
	}
	return nil
}
