package keyframe

import (
	"image"

	"autocaption/internal/frames"
	"autocaption/internal/similarity"
)

// FocusMeasure rates how sharp a frame is. Higher is better.
type FocusMeasure func(img *image.RGBA) float64

// Selector picks the representative frame of a run. Candidates replace the
// current best only when strictly sharper, so ties resolve to the earliest
// frame.
type Selector struct {
	Measure FocusMeasure
}

// DefaultSelector rates frames by Laplacian variance.
func DefaultSelector() Selector {
	return Selector{Measure: LaplacianVariance}
}

// Quality applies the focus measure. A nil measure rates every frame 0,
// which always selects the earliest frame.
func (s Selector) Quality(f frames.Frame) float64 {
	if s.Measure == nil || f.Image == nil {
		return 0
	}
	return s.Measure(f.Image)
}

// Seed opens a run whose only member and reference is obs.
func (s Selector) Seed(obs Observation) *Run {
	return &Run{
		Start:       obs.Frame.Timestamp,
		End:         obs.Frame.Timestamp,
		FirstIndex:  obs.Frame.Index,
		LastIndex:   obs.Frame.Index,
		Frames:      1,
		best:        obs.Frame,
		bestQuality: obs.Quality,
		reference:   obs.Signature,
	}
}

// Add appends obs to the run.
func (s Selector) Add(run *Run, obs Observation) {
	run.LastIndex = obs.Frame.Index
	run.End = obs.Frame.Timestamp
	run.Frames++
	if obs.Quality > run.bestQuality {
		run.best = obs.Frame
		run.bestQuality = obs.Quality
	}
}

// Merge folds later, which must immediately follow into, into into. The
// reference of into is kept.
func (s Selector) Merge(into, later *Run) {
	into.End = later.End
	into.LastIndex = later.LastIndex
	into.Frames += later.Frames
	if later.bestQuality > into.bestQuality {
		into.best = later.best
		into.bestQuality = later.bestQuality
	}
}

// Select finalizes a closed run.
func (s Selector) Select(run *Run) KeyFrame {
	return KeyFrame{
		Frame:      run.best,
		Start:      run.Start,
		End:        run.End,
		FirstIndex: run.FirstIndex,
		LastIndex:  run.LastIndex,
		RunFrames:  run.Frames,
		Quality:    run.bestQuality,
	}
}

// LaplacianVariance is the variance of the 4-neighbour Laplacian over
// full-resolution luma. Blurred transition frames score low.
func LaplacianVariance(img *image.RGBA) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	rows := [3][]int32{make([]int32, w), make([]int32, w), make([]int32, w)}
	fill := func(dst []int32, y int) {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		px := img.Pix[off : off+w*4]
		for x := 0; x < w; x++ {
			dst[x] = int32(similarity.Luma(px[x*4], px[x*4+1], px[x*4+2]))
		}
	}
	fill(rows[0], 0)
	fill(rows[1], 1)

	var sum, sumSq int64
	for y := 1; y < h-1; y++ {
		fill(rows[2], y+1)
		up, mid, down := rows[0], rows[1], rows[2]
		for x := 1; x < w-1; x++ {
			l := int64(4*mid[x] - up[x] - down[x] - mid[x-1] - mid[x+1])
			sum += l
			sumSq += l * l
		}
		rows[0], rows[1], rows[2] = mid, down, up
	}

	n := float64((w - 2) * (h - 2))
	mean := float64(sum) / n
	return float64(sumSq)/n - mean*mean
}
