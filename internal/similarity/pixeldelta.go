package similarity

import (
	"math"

	"autocaption/internal/frames"
)

// PixelDelta scores frames as one minus the mean absolute luma difference,
// normalized to [0,1].
type PixelDelta struct {
	MaxSide int
}

func (PixelDelta) Name() string { return MetricPixelDelta }

func (PixelDelta) Range() (float64, float64) { return 0, 1 }

func (p PixelDelta) Prepare(f frames.Frame) Signature {
	if f.Image == nil {
		return Plane{}
	}
	side := p.MaxSide
	if side <= 0 {
		side = DefaultMaxSide
	}
	return LumaPlane(f.Image, side)
}

func (PixelDelta) Compare(ref, cand Signature) float64 {
	a, ok1 := ref.(Plane)
	b, ok2 := cand.(Plane)
	if !ok1 || !ok2 || a.W != b.W || a.H != b.H || len(a.Pix) == 0 {
		return 0
	}
	var sum float64
	for i := range a.Pix {
		sum += math.Abs(a.Pix[i] - b.Pix[i])
	}
	return clamp01(1 - sum/float64(len(a.Pix))/255)
}

var _ Scorer = PixelDelta{}
