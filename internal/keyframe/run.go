package keyframe

import (
	"time"

	"autocaption/internal/frames"
	"autocaption/internal/similarity"
)

// Observation is one sampled frame with everything the machine needs to
// place it: the prepared signature and the frame's focus quality.
type Observation struct {
	Frame     frames.Frame
	Signature similarity.Signature
	Quality   float64
}

// Run is a contiguous span of frames judged to show the same visual state.
type Run struct {
	Start      time.Duration
	End        time.Duration
	FirstIndex int
	LastIndex  int
	Frames     int

	best        frames.Frame
	bestQuality float64
	reference   similarity.Signature
}

// Duration is End minus Start. Only meaningful once the run is closed.
func (r *Run) Duration() time.Duration {
	return r.End - r.Start
}

// Best returns the current representative candidate and its quality.
func (r *Run) Best() (frames.Frame, float64) {
	return r.best, r.bestQuality
}

// KeyFrame is the finalized representative of a closed run.
type KeyFrame struct {
	Frame      frames.Frame
	Start      time.Duration
	End        time.Duration
	FirstIndex int
	LastIndex  int
	RunFrames  int
	Quality    float64
}

// Index is the sampled-frame index of the chosen representative.
func (k KeyFrame) Index() int {
	return k.Frame.Index
}

// Timestamp is the presentation time of the chosen representative.
func (k KeyFrame) Timestamp() time.Duration {
	return k.Frame.Timestamp
}
