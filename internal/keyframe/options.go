package keyframe

import (
	"fmt"
	"math"
	"time"

	"autocaption/internal/services"
	"autocaption/internal/similarity"
)

// Options configures run segmentation.
type Options struct {
	// SimilarityThreshold is the score at or above which a frame joins the
	// active run. It must lie inside the scorer's range.
	SimilarityThreshold float64
	// RollingReference moves the run reference to every accepted frame so
	// slow drift does not split a run.
	RollingReference bool
	// MinRunDuration is the length below which a run counts as short.
	MinRunDuration time.Duration
	// MergeShortRuns folds short runs into the preceding run. It has no
	// effect while MinRunDuration is zero.
	MergeShortRuns bool
}

// Validate checks the options against the scorer's score range.
func (o Options) Validate(s similarity.Scorer) error {
	if s == nil {
		return services.Wrap(services.ErrConfiguration, "keyframe", "validate", "similarity scorer is required", nil)
	}
	lo, hi := s.Range()
	if math.IsNaN(o.SimilarityThreshold) || o.SimilarityThreshold < lo || o.SimilarityThreshold > hi {
		return services.Wrap(services.ErrConfiguration, "keyframe", "validate",
			fmt.Sprintf("similarity threshold %v outside %s range [%v, %v]", o.SimilarityThreshold, s.Name(), lo, hi), nil)
	}
	if o.MinRunDuration < 0 {
		return services.Wrap(services.ErrConfiguration, "keyframe", "validate",
			fmt.Sprintf("minimum run duration %v is negative", o.MinRunDuration), nil)
	}
	return nil
}

func (o Options) merging() bool {
	return o.MergeShortRuns && o.MinRunDuration > 0
}
