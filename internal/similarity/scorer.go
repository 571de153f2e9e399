package similarity

import (
	"fmt"
	"strings"

	"autocaption/internal/frames"
	"autocaption/internal/services"
)

// Signature is a scorer-specific prepared representation of a frame. Only the
// scorer that produced a signature can compare it.
type Signature any

// Scorer measures visual closeness between two frames. Prepare must be pure
// and deterministic; Compare must return a value inside Range. Implementations
// hold no mutable state and are safe for concurrent use.
type Scorer interface {
	Name() string
	Range() (min, max float64)
	Prepare(f frames.Frame) Signature
	Compare(ref, cand Signature) float64
}

// Score prepares both frames and compares them.
func Score(s Scorer, ref, cand frames.Frame) float64 {
	return s.Compare(s.Prepare(ref), s.Prepare(cand))
}

const (
	MetricSSIM       = "ssim"
	MetricPixelDelta = "pixel_delta"
)

// DefaultMaxSide bounds the longer side of the grayscale plane scorers work on.
const DefaultMaxSide = 256

// ByName resolves a configured metric name.
func ByName(name string, maxSide int) (Scorer, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MetricSSIM, "":
		return SSIM{MaxSide: maxSide}, nil
	case MetricPixelDelta:
		return PixelDelta{MaxSide: maxSide}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "similarity", "resolve metric", fmt.Sprintf("unknown metric %q", name), nil)
	}
}
