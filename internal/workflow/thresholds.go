package workflow

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"autocaption/internal/export"
	"autocaption/internal/logging"
	"autocaption/internal/services"
)

// DefaultThresholds is the grid used when none is given.
var DefaultThresholds = []float64{0.80, 0.85, 0.90, 0.93, 0.95, 0.97, 0.99}

// ThresholdRow is one line of a threshold sweep.
type ThresholdRow struct {
	Threshold float64 `json:"threshold"`
	KeyFrames int     `json:"keyframes"`
	// Dir is set when the frames were written.
	Dir string `json:"dir,omitempty"`
}

// SweepReport is the result of SweepThresholds.
type SweepReport struct {
	Video    string         `json:"video"`
	Frames   int            `json:"frames"`
	Duration time.Duration  `json:"duration_ns"`
	Rows     []ThresholdRow `json:"rows"`
}

// SweepThresholds decodes video once and segments it at every threshold.
// With write set, each threshold's key frames are exported to
// <output_dir>/<stem>/threshold_<value>.
func (m *Manager) SweepThresholds(ctx context.Context, video string, thresholds []float64, write bool) (SweepReport, error) {
	ctx = services.WithVideo(ctx, filepath.Base(video))
	ctx = services.WithStage(ctx, "thresholds")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow"))
	report := SweepReport{Video: video}
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}

	for _, v := range thresholds {
		if math.IsNaN(v) {
			return report, services.Wrap(services.ErrConfiguration, "thresholds", "sweep", "threshold is not a number", nil)
		}
	}

	ex, err := m.extractor(logger)
	if err != nil {
		return report, err
	}
	job := export.Job{Video: video, Settings: m.settings()}
	job.OutputDir = filepath.Join(m.cfg.Paths.OutputDir, job.Stem())
	if write {
		unlock, err := export.LockDir(job.OutputDir)
		if err != nil {
			return report, err
		}
		defer func() {
			if err := unlock(); err != nil {
				logger.Debug("release output lock failed", logging.Error(err))
			}
		}()
	}

	reader, err := m.open(ctx, video)
	if err != nil {
		return report, err
	}
	total := expectedFrames(reader, m.cfg.SamplingInterval())
	m.sampler.Reset()
	ex.Progress = func(done int) { m.report("thresholds", done, total) }

	sweep, err := ex.Sweep(ctx, reader, thresholds, write)
	report.Frames = sweep.Frames
	if err != nil {
		return report, err
	}
	report.Duration = sweep.Duration
	job.Duration = sweep.Duration

	for _, res := range sweep.Results {
		row := ThresholdRow{Threshold: res.Threshold, KeyFrames: len(res.KeyFrames)}
		if write {
			images := export.Images{Subdir: ThresholdDir(res.Threshold), Quality: m.cfg.Export.JPEGQuality}
			if err := images.Export(ctx, job, res.KeyFrames); err != nil {
				return report, err
			}
			row.Dir = images.Dir(job)
		}
		report.Rows = append(report.Rows, row)
	}
	logger.Info("threshold sweep completed",
		logging.Int("frames", report.Frames),
		logging.Int("thresholds", len(report.Rows)),
	)
	return report, nil
}

// ThresholdDir names the folder for one threshold's frames. The shortest
// exact decimal keeps distinct thresholds in distinct folders.
func ThresholdDir(threshold float64) string {
	return "threshold_" + strconv.FormatFloat(threshold, 'f', -1, 64)
}
