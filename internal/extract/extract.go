package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"autocaption/internal/frames"
	"autocaption/internal/keyframe"
	"autocaption/internal/logging"
	"autocaption/internal/services"
	"autocaption/internal/similarity"
)

const (
	defaultWorkers  = 4
	defaultPrefetch = 8
)

// Extractor runs the key-frame pipeline over a frame reader. Decoding is
// prefetched, signatures and focus quality are computed on Workers
// goroutines, and results re-enter the state machine in frame order.
type Extractor struct {
	Scorer   similarity.Scorer
	Selector keyframe.Selector
	Options  keyframe.Options
	Workers  int
	Prefetch int
	// Interval is the sampling cadence, used to place the end of the last
	// run when the reader cannot report a duration.
	Interval time.Duration
	Logger   *slog.Logger
	// Progress, when set, is called from the consuming goroutine after each
	// frame enters the state machine.
	Progress func(framesDone int)
}

// Result is the outcome of one extraction.
type Result struct {
	KeyFrames []keyframe.KeyFrame
	Frames    int
	Duration  time.Duration
}

// Validate checks the configuration without touching any frames.
func (e *Extractor) Validate() error {
	if e.Scorer == nil {
		return services.Wrap(services.ErrConfiguration, "extract", "validate", "similarity scorer is required", nil)
	}
	if e.Workers < 0 || e.Prefetch < 0 {
		return services.Wrap(services.ErrConfiguration, "extract", "validate", "workers and prefetch must not be negative", nil)
	}
	if e.Interval < 0 {
		return services.Wrap(services.ErrConfiguration, "extract", "validate", "sampling interval must not be negative", nil)
	}
	return e.Options.Validate(e.Scorer)
}

// Run extracts key frames from r and closes it.
//
// A decode failure returns an empty Result. Cancellation returns the key
// frames of runs that closed before the stop together with an error matching
// both services.ErrCancelled and context.Canceled; the open run is dropped.
func (e *Extractor) Run(ctx context.Context, r frames.Reader) (Result, error) {
	if err := e.Validate(); err != nil {
		_ = r.Close()
		return Result{}, err
	}
	logger := logging.NewComponentLogger(logging.WithContext(ctx, e.Logger), "extract")
	machine := keyframe.NewMachine(e.Scorer, e.Selector, e.Options)

	var emitted []keyframe.KeyFrame
	processed, lastTS, err := e.stream(ctx, r, func(obs keyframe.Observation) {
		for _, kf := range machine.Push(obs) {
			logger.Debug("key frame closed",
				logging.Int("index", kf.Index()),
				logging.Duration("start", kf.Start),
				logging.Duration("end", kf.End),
				logging.Int("run_frames", kf.RunFrames),
			)
			emitted = append(emitted, kf)
		}
	})
	if err != nil {
		if services.IsCancellation(err) {
			emitted = append(emitted, machine.Abort()...)
			logger.Info("extraction cancelled",
				logging.Int("frames", processed),
				logging.Int("key_frames", len(emitted)),
			)
			return Result{KeyFrames: emitted, Frames: processed, Duration: lastTS}, err
		}
		return Result{}, err
	}

	end := r.Duration()
	if end <= 0 {
		end = lastTS + e.Interval
	}
	emitted = append(emitted, machine.Finish(end)...)
	logger.Info("extraction complete",
		logging.Int("frames", processed),
		logging.Int("key_frames", len(emitted)),
		logging.Duration("video_duration", end),
		logging.String("metric", e.Scorer.Name()),
	)
	return Result{KeyFrames: emitted, Frames: processed, Duration: end}, nil
}

type job struct {
	frame frames.Frame
	slot  chan keyframe.Observation
}

// stream feeds frames through the worker pool and hands observations to
// consume in frame order. consume runs on the calling goroutine only.
func (e *Extractor) stream(parent context.Context, r frames.Reader, consume func(keyframe.Observation)) (int, time.Duration, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	depth := e.Prefetch
	if depth <= 0 {
		depth = defaultPrefetch
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	src := frames.Prefetch(ctx, r, depth)
	defer src.Close()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, workers)
	order := make(chan chan keyframe.Observation, workers*2)

	g.Go(func() error {
		defer close(jobs)
		defer close(order)
		for {
			frame, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			slot := make(chan keyframe.Observation, 1)
			select {
			case order <- slot:
			case <-gctx.Done():
				return nil
			}
			select {
			case jobs <- job{frame: frame, slot: slot}:
			case <-gctx.Done():
				// The slot is already queued; fill it so the consumer never blocks.
				slot <- e.analyze(frame)
				return nil
			}
		}
	})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := range jobs {
				j.slot <- e.analyze(j.frame)
			}
			return nil
		})
	}

	processed := 0
	var lastTS time.Duration
	for slot := range order {
		if parent.Err() != nil {
			break
		}
		obs := <-slot
		consume(obs)
		processed++
		lastTS = obs.Frame.Timestamp
		if e.Progress != nil {
			e.Progress(processed)
		}
	}
	cancel()
	waitErr := g.Wait()

	if err := parent.Err(); err != nil {
		return processed, lastTS, services.Cancelled("extract", err)
	}
	if waitErr != nil {
		return processed, lastTS, waitErr
	}
	if processed == 0 {
		return 0, 0, services.Wrap(services.ErrEmptyVideo, "extract", "read", "no frames decoded", nil)
	}
	return processed, lastTS, nil
}

func (e *Extractor) analyze(f frames.Frame) keyframe.Observation {
	return keyframe.Observation{
		Frame:     f,
		Signature: e.Scorer.Prepare(f),
		Quality:   e.Selector.Quality(f),
	}
}
