package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and state directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	CatalogPath string `toml:"catalog_path"`
}

// Extraction contains the key-frame extraction knobs.
type Extraction struct {
	// SamplingInterval is the wall-clock spacing between sampled frames, in seconds.
	SamplingInterval float64 `toml:"sampling_interval"`
	// SimilarityThreshold is the score at or above which a frame joins the active run.
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	SimilarityMetric    string  `toml:"similarity_metric"`
	// RollingReference replaces the run reference with every accepted frame.
	RollingReference bool `toml:"rolling_reference"`
	// MinRunDuration in seconds; runs shorter than this are merged into the
	// previous run when MergeShortRuns is set.
	MinRunDuration    float64 `toml:"min_run_duration"`
	MergeShortRuns    bool    `toml:"merge_short_runs"`
	Workers           int     `toml:"workers"`
	PrefetchFrames    int     `toml:"prefetch_frames"`
	DownsampleMaxSide int     `toml:"downsample_max_side"`
}

// Export controls which artifacts are written for each video.
type Export struct {
	Images      bool `toml:"images"`
	PDF         bool `toml:"pdf"`
	Manifest    bool `toml:"manifest"`
	JPEGQuality int  `toml:"jpeg_quality"`
}

// Vision contains configuration for key-frame descriptions.
type Vision struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
	Prompt  string `toml:"prompt"`
	Workers int    `toml:"workers"`
	MaxSide int    `toml:"max_side"`
}

// Correction contains configuration for language-model caption correction.
type Correction struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
	// MinSimilarity rejects rewrites whose token similarity to the original
	// cue drops below this value.
	MinSimilarity float64 `toml:"min_similarity"`
}

// LLM contains shared LLM connection settings used by multiple features.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Index contains configuration for the optional Postgres slide index.
type Index struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
	Table   string `toml:"table"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for autocaption.
//
// Configuration sections by subsystem:
//   - Paths: output, log, and catalog locations
//   - Extraction: sampling cadence and deduplication policy
//   - Export: artifacts written per video
//   - Vision: frame description via a vision-capable LLM
//   - Correction: caption correction via an LLM
//   - LLM: shared LLM connection settings
//   - Index: Postgres/pgvector slide index
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Extraction Extraction `toml:"extraction"`
	Export     Export     `toml:"export"`
	Vision     Vision     `toml:"vision"`
	Correction Correction `toml:"correction"`
	LLM        LLM        `toml:"llm"`
	Index      Index      `toml:"index"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("autocaption.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories along with the
// catalog's parent directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir}
	if c.Paths.CatalogPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.CatalogPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for decoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// SamplingInterval returns the extraction sampling cadence as a duration.
func (c *Config) SamplingInterval() time.Duration {
	return secondsToDuration(c.Extraction.SamplingInterval)
}

// MinRunDuration returns the short-run merge threshold as a duration.
func (c *Config) MinRunDuration() time.Duration {
	return secondsToDuration(c.Extraction.MinRunDuration)
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains common LLM settings used across features.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// VisionLLM returns the LLM settings for frame descriptions.
// Falls back to the [llm] model when [vision] does not name one.
func (c *Config) VisionLLM() LLMConfig {
	cfg := c.GetLLM()
	if model := strings.TrimSpace(c.Vision.Model); model != "" {
		cfg.Model = model
	}
	cfg.Title = defaultVisionTitle
	return cfg
}

// CorrectionLLM returns the LLM settings for caption correction.
// Falls back to the [llm] model when [correction] does not name one.
func (c *Config) CorrectionLLM() LLMConfig {
	cfg := c.GetLLM()
	if model := strings.TrimSpace(c.Correction.Model); model != "" {
		cfg.Model = model
	}
	cfg.Title = defaultCorrectionTitle
	return cfg
}
