package config

const (
	defaultConfigPath          = "~/.config/autocaption/config.toml"
	defaultOutputDir           = "~/autocaption"
	defaultLogDir              = "~/.local/share/autocaption/logs"
	defaultCatalogPath         = "~/.local/share/autocaption/catalog.db"
	defaultSamplingInterval    = 1.0
	defaultSimilarityThreshold = 0.95
	defaultSimilarityMetric    = "ssim"
	defaultExtractionWorkers   = 5
	defaultPrefetchFrames      = 8
	defaultDownsampleMaxSide   = 256
	defaultJPEGQuality         = 90
	defaultVisionPrompt        = "Please describe this image in detail. What text, if any, is in the image?"
	defaultVisionWorkers       = 2
	defaultVisionMaxSide       = 1280
	defaultCorrectionMinSim    = 0.5
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMReferer          = "https://github.com/autocaption/autocaption"
	defaultLLMTitle            = "autocaption"
	defaultVisionTitle         = "autocaption Frame Describer"
	defaultCorrectionTitle     = "autocaption Caption Corrector"
	defaultLLMTimeoutSeconds   = 60
	defaultIndexTable          = "slide_frames"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Extraction: Extraction{
			SamplingInterval:    defaultSamplingInterval,
			SimilarityThreshold: defaultSimilarityThreshold,
			SimilarityMetric:    defaultSimilarityMetric,
			Workers:             defaultExtractionWorkers,
			PrefetchFrames:      defaultPrefetchFrames,
			DownsampleMaxSide:   defaultDownsampleMaxSide,
		},
		Export: Export{
			Images:      true,
			PDF:         true,
			Manifest:    true,
			JPEGQuality: defaultJPEGQuality,
		},
		Vision: Vision{
			Prompt:  defaultVisionPrompt,
			Workers: defaultVisionWorkers,
			MaxSide: defaultVisionMaxSide,
		},
		Correction: Correction{
			MinSimilarity: defaultCorrectionMinSim,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Index: Index{
			Table: defaultIndexTable,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
