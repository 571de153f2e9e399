package similarity

import (
	"autocaption/internal/frames"
)

const (
	ssimWindow = 7
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

// SSIM scores frames by mean structural similarity over sliding windows of
// the downsampled luma plane. Planes of different sizes score 0.
type SSIM struct {
	MaxSide int
}

func (SSIM) Name() string { return MetricSSIM }

func (SSIM) Range() (float64, float64) { return 0, 1 }

func (s SSIM) Prepare(f frames.Frame) Signature {
	if f.Image == nil {
		return Plane{}
	}
	return LumaPlane(f.Image, s.maxSide())
}

func (s SSIM) maxSide() int {
	if s.MaxSide <= 0 {
		return DefaultMaxSide
	}
	return s.MaxSide
}

func (SSIM) Compare(ref, cand Signature) float64 {
	a, ok1 := ref.(Plane)
	b, ok2 := cand.(Plane)
	if !ok1 || !ok2 || a.W != b.W || a.H != b.H || a.W == 0 || a.H == 0 {
		return 0
	}
	return clamp01(meanSSIM(a, b))
}

// meanSSIM evaluates every valid window position using summed-area tables so
// the cost is independent of the window size.
func meanSSIM(a, b Plane) float64 {
	w, h := a.W, a.H
	win := min(ssimWindow, w, h)
	n := float64(win * win)

	stride := w + 1
	sx := make([]float64, stride*(h+1))
	sy := make([]float64, stride*(h+1))
	sxx := make([]float64, stride*(h+1))
	syy := make([]float64, stride*(h+1))
	sxy := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rx, ry, rxx, ryy, rxy float64
		for x := 0; x < w; x++ {
			xv := a.Pix[y*w+x]
			yv := b.Pix[y*w+x]
			rx += xv
			ry += yv
			rxx += xv * xv
			ryy += yv * yv
			rxy += xv * yv
			i := (y+1)*stride + x + 1
			up := y*stride + x + 1
			sx[i] = sx[up] + rx
			sy[i] = sy[up] + ry
			sxx[i] = sxx[up] + rxx
			syy[i] = syy[up] + ryy
			sxy[i] = sxy[up] + rxy
		}
	}

	box := func(t []float64, x0, y0 int) float64 {
		x1, y1 := x0+win, y0+win
		return t[y1*stride+x1] - t[y0*stride+x1] - t[y1*stride+x0] + t[y0*stride+x0]
	}

	norm := n - 1
	if norm <= 0 {
		norm = 1
	}
	var total float64
	count := 0
	for y := 0; y+win <= h; y++ {
		for x := 0; x+win <= w; x++ {
			bx, by := box(sx, x, y), box(sy, x, y)
			mx, my := bx/n, by/n
			vx := (box(sxx, x, y) - bx*mx) / norm
			vy := (box(syy, x, y) - by*my) / norm
			cxy := (box(sxy, x, y) - bx*my) / norm
			num := (2*mx*my + ssimC1) * (2*cxy + ssimC2)
			den := (mx*mx + my*my + ssimC1) * (vx + vy + ssimC2)
			total += num / den
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

var _ Scorer = SSIM{}
