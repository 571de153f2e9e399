package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeVision()
	c.normalizeLLM()
	c.normalizeIndex()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.SimilarityMetric = strings.ToLower(strings.TrimSpace(c.Extraction.SimilarityMetric))
	if c.Extraction.SimilarityMetric == "" {
		c.Extraction.SimilarityMetric = defaultSimilarityMetric
	}
	if c.Extraction.PrefetchFrames == 0 {
		c.Extraction.PrefetchFrames = defaultPrefetchFrames
	}
	if c.Extraction.DownsampleMaxSide == 0 {
		c.Extraction.DownsampleMaxSide = defaultDownsampleMaxSide
	}
}

func (c *Config) normalizeVision() {
	c.Vision.Prompt = strings.TrimSpace(c.Vision.Prompt)
	if c.Vision.Prompt == "" {
		c.Vision.Prompt = defaultVisionPrompt
	}
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	c.Correction.Model = strings.TrimSpace(c.Correction.Model)
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("AUTOCAPTION_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeIndex() {
	c.Index.DSN = strings.TrimSpace(c.Index.DSN)
	if c.Index.DSN == "" {
		if value, ok := os.LookupEnv("AUTOCAPTION_INDEX_DSN"); ok {
			c.Index.DSN = strings.TrimSpace(value)
		}
	}
	c.Index.Table = strings.TrimSpace(c.Index.Table)
	if c.Index.Table == "" {
		c.Index.Table = defaultIndexTable
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json", "color":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
