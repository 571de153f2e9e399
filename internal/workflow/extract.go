package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"autocaption/internal/catalog"
	"autocaption/internal/export"
	"autocaption/internal/keyframe"
	"autocaption/internal/logging"
	"autocaption/internal/services"
)

// Outcome summarizes one extraction.
type Outcome struct {
	RunID     string
	Video     string
	OutputDir string
	KeyFrames []keyframe.KeyFrame
	Frames    int
	Duration  time.Duration
	Elapsed   time.Duration
	Artifacts *export.Artifacts
}

// ExtractVideo extracts key frames from video and writes every enabled
// export under <output_dir>/<stem>. The run is recorded in the catalog when
// one is attached. Nothing is exported when extraction fails or is
// cancelled.
func (m *Manager) ExtractVideo(ctx context.Context, video string) (Outcome, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithVideo(ctx, filepath.Base(video))
	ctx = services.WithStage(ctx, "extract")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow"))

	job := export.Job{
		Video:     video,
		RunID:     runID,
		Settings:  m.settings(),
		Artifacts: &export.Artifacts{},
	}
	job.OutputDir = filepath.Join(m.cfg.Paths.OutputDir, job.Stem())
	outcome := Outcome{RunID: runID, Video: video, OutputDir: job.OutputDir, Artifacts: job.Artifacts}

	if _, err := os.Stat(video); err != nil {
		return outcome, services.Wrap(services.ErrNotFound, "extract", "stat video", video, err)
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return outcome, services.Wrap(services.ErrConfiguration, "extract", "create output dir", job.OutputDir, err)
	}
	unlock, err := export.LockDir(job.OutputDir)
	if err != nil {
		return outcome, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Debug("release output lock failed", logging.Error(err))
		}
	}()

	if m.catalog != nil {
		if _, err := m.catalog.BeginRun(ctx, runID, video, m.cfg.Extraction.SimilarityThreshold, m.cfg.Extraction.SimilarityMetric); err != nil {
			return outcome, services.Wrap(services.ErrTransient, "extract", "record run", "", err)
		}
	}

	ex, err := m.extractor(logger)
	if err != nil {
		return outcome, m.failRun(ctx, logger, &outcome, err)
	}
	reader, err := m.open(ctx, video)
	if err != nil {
		return outcome, m.failRun(ctx, logger, &outcome, err)
	}
	total := expectedFrames(reader, m.cfg.SamplingInterval())
	m.sampler.Reset()
	ex.Progress = func(done int) { m.report("extract", done, total) }

	logger.Info("extraction started",
		logging.String("output_dir", job.OutputDir),
		logging.Float64("threshold", m.cfg.Extraction.SimilarityThreshold),
		logging.String("metric", m.cfg.Extraction.SimilarityMetric),
		logging.Duration("interval", m.cfg.SamplingInterval()),
	)
	res, err := ex.Run(ctx, reader)
	outcome.Frames = res.Frames
	outcome.Duration = res.Duration
	if err != nil {
		return outcome, m.failRun(ctx, logger, &outcome, err)
	}
	outcome.KeyFrames = res.KeyFrames

	job.Duration = res.Duration
	ctx = services.WithStage(ctx, "export")
	if err := m.exporters().Export(ctx, job, res.KeyFrames); err != nil {
		return outcome, m.failRun(ctx, logger, &outcome, err)
	}

	if m.catalog != nil {
		if err := m.catalog.AddKeyFrames(ctx, runID, catalogKeyFrames(runID, res.KeyFrames, job.Artifacts)); err != nil {
			return outcome, m.failRun(ctx, logger, &outcome, services.Wrap(services.ErrTransient, "extract", "record key frames", "", err))
		}
		if err := m.catalog.FinishRun(ctx, runID, res.Frames, len(res.KeyFrames)); err != nil {
			return outcome, services.Wrap(services.ErrTransient, "extract", "finish run", "", err)
		}
	}

	outcome.Elapsed = time.Since(started)
	logger.Info("extraction completed",
		logging.Int("frames", res.Frames),
		logging.Int("keyframes", len(res.KeyFrames)),
		logging.Duration("video_duration", res.Duration),
		logging.Duration("elapsed", outcome.Elapsed),
		logging.String(logging.FieldEventType, "extraction_completed"),
	)
	return outcome, nil
}

func catalogKeyFrames(runID string, kfs []keyframe.KeyFrame, artifacts *export.Artifacts) []catalog.KeyFrame {
	out := make([]catalog.KeyFrame, len(kfs))
	for i, kf := range kfs {
		art, _ := artifacts.Frame(i)
		out[i] = catalog.KeyFrame{
			RunID:      runID,
			Ordinal:    i,
			FrameIndex: kf.Index(),
			Start:      kf.Start,
			End:        kf.End,
			Quality:    kf.Quality,
			ImagePath:  art.Path,
			SHA256:     art.SHA256,
		}
	}
	return out
}

// failRun logs err, closes the catalog run with the matching status, and
// returns err unchanged.
func (m *Manager) failRun(ctx context.Context, logger *slog.Logger, outcome *Outcome, err error) error {
	status := services.FailureStatus(err)
	if services.IsCancellation(err) {
		logger.Info("extraction cancelled", logging.Int("frames", outcome.Frames))
	} else {
		logging.ErrorWithContext(logger, "extraction failed", "extraction_failed",
			logging.String("status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, failureHint(err)),
		)
	}
	if m.catalog == nil {
		return err
	}
	// The run context may already be cancelled; the status still has to land.
	if ferr := m.catalog.FailRun(context.WithoutCancel(ctx), outcome.RunID, status, outcome.Frames, 0, err); ferr != nil {
		logger.Warn("failed to persist run failure", logging.Error(ferr))
	}
	return err
}

func failureHint(err error) string {
	switch {
	case services.FailureStatus(err) == catalog.StatusRejected:
		return "check the command flags and config file"
	case errors.Is(err, services.ErrDecode):
		return "the video could not be decoded; verify it plays with ffprobe"
	case errors.Is(err, services.ErrEmptyVideo):
		return "the video contained no decodable frames"
	default:
		return "see the log for the failing stage"
	}
}
