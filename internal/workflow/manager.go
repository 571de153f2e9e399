package workflow

import (
	"context"
	"log/slog"
	"time"

	"autocaption/internal/captions"
	"autocaption/internal/catalog"
	"autocaption/internal/config"
	"autocaption/internal/export"
	"autocaption/internal/extract"
	"autocaption/internal/frames"
	"autocaption/internal/keyframe"
	"autocaption/internal/logging"
	"autocaption/internal/services/llm"
	"autocaption/internal/similarity"
	"autocaption/internal/vision"
)

// FrameOpener starts decoding a video.
type FrameOpener func(ctx context.Context, path string) (frames.Reader, error)

// ProgressFunc receives coarse progress for a named stage. total is 0 when
// unknown.
type ProgressFunc func(stage string, done, total int)

// Manager runs the extraction, description, and captioning workflows for one
// configuration.
type Manager struct {
	cfg       *config.Config
	catalog   *catalog.Store
	logger    *slog.Logger
	open      FrameOpener
	index     export.Exporter
	describer vision.Describer
	corrector captions.Corrector
	progress  ProgressFunc
	sampler   *logging.ProgressSampler
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithCatalog records runs and caches descriptions in store.
func WithCatalog(store *catalog.Store) Option {
	return func(m *Manager) { m.catalog = store }
}

// WithIndex adds exp (normally an index.Store) after the file exporters.
func WithIndex(exp export.Exporter) Option {
	return func(m *Manager) { m.index = exp }
}

// WithFrameOpener replaces the ffmpeg decoder (used in tests).
func WithFrameOpener(open FrameOpener) Option {
	return func(m *Manager) { m.open = open }
}

// WithDescriber replaces the configured vision describer.
func WithDescriber(d vision.Describer) Option {
	return func(m *Manager) { m.describer = d }
}

// WithCorrector replaces the configured caption corrector.
func WithCorrector(c captions.Corrector) Option {
	return func(m *Manager) { m.corrector = c }
}

// WithProgress reports stage progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(m *Manager) { m.progress = fn }
}

// NewManager builds a Manager. Options are applied before the model clients
// are derived from cfg, so explicit describers and correctors win.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{cfg: cfg, logger: logger, sampler: logging.NewProgressSampler(10, 500)}
	for _, opt := range opts {
		opt(m)
	}
	if m.open == nil {
		m.open = m.openFFmpeg
	}
	if m.describer == nil && cfg.Vision.Enabled {
		client := newLLMClient(cfg.VisionLLM())
		var d vision.Describer = &vision.LLMDescriber{
			Client:  client,
			Prompt:  cfg.Vision.Prompt,
			MaxSide: cfg.Vision.MaxSide,
			Logger:  logger,
		}
		if m.catalog != nil {
			d = &vision.Cached{Inner: d, Cache: m.catalog, Model: client.Model(), Logger: logger}
		}
		m.describer = d
	}
	if m.corrector == nil {
		if cfg.Correction.Enabled {
			m.corrector = &captions.LLMCorrector{
				Client:        newLLMClient(cfg.CorrectionLLM()),
				MinSimilarity: cfg.Correction.MinSimilarity,
				Logger:        logger,
			}
		} else {
			m.corrector = captions.Passthrough{}
		}
	}
	return m
}

func newLLMClient(c config.LLMConfig) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		Model:          c.Model,
		Referer:        c.Referer,
		Title:          c.Title,
		TimeoutSeconds: c.TimeoutSeconds,
	})
}

func (m *Manager) openFFmpeg(ctx context.Context, path string) (frames.Reader, error) {
	return frames.Open(ctx, path, frames.Options{
		FFmpegBinary:  m.cfg.FFmpegBinary(),
		FFprobeBinary: m.cfg.FFprobeBinary(),
		Interval:      m.cfg.SamplingInterval(),
		Logger:        m.logger,
	})
}

// extractor builds an Extractor from the extraction settings.
func (m *Manager) extractor(logger *slog.Logger) (*extract.Extractor, error) {
	e := m.cfg.Extraction
	scorer, err := similarity.ByName(e.SimilarityMetric, e.DownsampleMaxSide)
	if err != nil {
		return nil, err
	}
	ex := &extract.Extractor{
		Scorer:   scorer,
		Selector: keyframe.DefaultSelector(),
		Options:  m.segmentOptions(),
		Workers:  e.Workers,
		Prefetch: e.PrefetchFrames,
		Interval: m.cfg.SamplingInterval(),
		Logger:   logger,
	}
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	return ex, nil
}

func (m *Manager) segmentOptions() keyframe.Options {
	e := m.cfg.Extraction
	return keyframe.Options{
		SimilarityThreshold: e.SimilarityThreshold,
		RollingReference:    e.RollingReference,
		MinRunDuration:      m.cfg.MinRunDuration(),
		MergeShortRuns:      e.MergeShortRuns,
	}
}

func (m *Manager) settings() export.Settings {
	e := m.cfg.Extraction
	return export.Settings{
		Threshold:        e.SimilarityThreshold,
		Metric:           e.SimilarityMetric,
		Interval:         m.cfg.SamplingInterval(),
		RollingReference: e.RollingReference,
		MinRunDuration:   m.cfg.MinRunDuration(),
		MergeShortRuns:   e.MergeShortRuns,
	}
}

// exporters lists the sinks enabled in the export section, in write order.
// Images come first so later sinks and the catalog can see their paths.
func (m *Manager) exporters() export.Multi {
	quality := m.cfg.Export.JPEGQuality
	var out export.Multi
	if m.cfg.Export.Images {
		out = append(out, export.Images{Quality: quality})
	}
	if m.cfg.Export.PDF {
		out = append(out, export.PDF{Quality: quality})
	}
	if m.cfg.Export.Manifest {
		out = append(out, export.Manifest{})
	}
	if m.index != nil {
		out = append(out, m.index)
	}
	return out
}

// report forwards progress to the callback and logs a sampled subset of it.
func (m *Manager) report(stage string, done, total int) {
	if m.progress != nil {
		m.progress(stage, done, total)
	}
	if m.sampler.Observe(stage, done, total) {
		m.logger.Info("progress",
			logging.String("stage", stage),
			logging.Int("done", done),
			logging.Int("total", total),
			logging.Float64("percent", logging.Percent(done, total)),
		)
	}
}

// expectedFrames estimates the sample count of a reader for progress.
func expectedFrames(r frames.Reader, interval time.Duration) int {
	if r == nil || interval <= 0 || r.Duration() <= 0 {
		return 0
	}
	return int((r.Duration() + interval - 1) / interval)
}
