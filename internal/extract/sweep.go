package extract

import (
	"context"
	"sort"
	"time"

	"autocaption/internal/frames"
	"autocaption/internal/keyframe"
	"autocaption/internal/logging"
	"autocaption/internal/services"
)

// SweepResult is the segmentation produced by one threshold.
type SweepResult struct {
	Threshold float64
	KeyFrames []keyframe.KeyFrame
}

// SweepOutcome is the result of one decode segmented at several
// thresholds.
type SweepOutcome struct {
	Results  []SweepResult
	Frames   int
	Duration time.Duration
}

// Sweep decodes r once and segments it at every threshold in the same pass.
// Each observation is pushed to one state machine per threshold and then
// dropped, so only open and held runs stay in memory. Thresholds outside the
// scorer's range are skipped; if none remain, r is closed and
// ErrConfiguration returned before any frame is read. Key frames keep their
// pixels only when keepImages is set. Options.SimilarityThreshold is ignored.
func (e *Extractor) Sweep(ctx context.Context, r frames.Reader, thresholds []float64, keepImages bool) (SweepOutcome, error) {
	if e.Scorer == nil {
		_ = r.Close()
		return SweepOutcome{}, services.Wrap(services.ErrConfiguration, "extract", "sweep", "similarity scorer is required", nil)
	}
	logger := logging.NewComponentLogger(logging.WithContext(ctx, e.Logger), "extract")

	values := append([]float64(nil), thresholds...)
	sort.Float64s(values)
	var (
		kept     []float64
		machines []*keyframe.Machine
	)
	for i, threshold := range values {
		if i > 0 && threshold == values[i-1] {
			continue
		}
		opts := e.Options
		opts.SimilarityThreshold = threshold
		if err := opts.Validate(e.Scorer); err != nil {
			logger.Debug("threshold skipped", logging.Float64("threshold", threshold), logging.Error(err))
			continue
		}
		kept = append(kept, threshold)
		machines = append(machines, keyframe.NewMachine(e.Scorer, e.Selector, opts))
	}
	if len(machines) == 0 {
		_ = r.Close()
		return SweepOutcome{}, services.Wrap(services.ErrConfiguration, "extract", "sweep", "no threshold lies inside the metric's score range", nil)
	}

	emitted := make([][]keyframe.KeyFrame, len(machines))
	processed, lastTS, err := e.stream(ctx, r, func(obs keyframe.Observation) {
		if !keepImages {
			obs.Frame.Image = nil
		}
		for i, m := range machines {
			emitted[i] = append(emitted[i], m.Push(obs)...)
		}
	})
	if err != nil {
		return SweepOutcome{Frames: processed}, err
	}

	end := r.Duration()
	if end <= 0 {
		end = lastTS + e.Interval
	}
	out := SweepOutcome{Frames: processed, Duration: end, Results: make([]SweepResult, len(machines))}
	for i, m := range machines {
		out.Results[i] = SweepResult{Threshold: kept[i], KeyFrames: append(emitted[i], m.Finish(end)...)}
	}
	logger.Info("threshold sweep complete",
		logging.Int("frames", processed),
		logging.Int("thresholds", len(kept)),
		logging.Duration("video_duration", end),
	)
	return out, nil
}
