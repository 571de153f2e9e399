package similarity

import (
	"image"
)

// Plane is a grayscale raster with luma samples in [0,255].
type Plane struct {
	W, H int
	Pix  []float64
}

// Luma converts an 8-bit RGB triple to Rec.601 luma using integer weights so
// results are identical across platforms.
func Luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// LumaPlane converts img to grayscale and area-averages it so the longer side
// is at most maxSide. Images already within bounds keep their size.
func LumaPlane(img image.Image, maxSide int) Plane {
	if img == nil {
		return Plane{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Plane{}
	}
	ow, oh := w, h
	if longest := max(w, h); maxSide > 0 && longest > maxSide {
		ow = max(1, (w*maxSide+longest/2)/longest)
		oh = max(1, (h*maxSide+longest/2)/longest)
	}
	return Downsample(img, ow, oh)
}

// Downsample area-averages the luma of img into a w×h plane. Each output
// sample covers a contiguous block of source pixels.
func Downsample(img image.Image, w, h int) Plane {
	if img == nil || w <= 0 || h <= 0 {
		return Plane{}
	}
	src := fullLuma(img)
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == w && sh == h {
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return Plane{W: w, H: h, Pix: out}
	}

	out := make([]float64, w*h)
	for oy := 0; oy < h; oy++ {
		y0, y1 := span(oy, h, sh)
		for ox := 0; ox < w; ox++ {
			x0, x1 := span(ox, w, sw)
			var sum uint64
			for y := y0; y < y1; y++ {
				row := src[y*sw : (y+1)*sw]
				for x := x0; x < x1; x++ {
					sum += uint64(row[x])
				}
			}
			out[oy*w+ox] = float64(sum) / float64((x1-x0)*(y1-y0))
		}
	}
	return Plane{W: w, H: h, Pix: out}
}

// span maps output cell i of n onto the source range [lo,hi) of size total.
func span(i, n, total int) (int, int) {
	lo := i * total / n
	hi := (i + 1) * total / n
	if hi <= lo {
		hi = lo + 1
	}
	if hi > total {
		hi = total
		if lo >= hi {
			lo = hi - 1
		}
	}
	return lo, hi
}

// fullLuma returns row-major 8-bit luma at the image's native resolution.
func fullLuma(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, w*h)
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
			row := rgba.Pix[off : off+w*4]
			for x := 0; x < w; x++ {
				out[y*w+x] = Luma(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
		return out
	}
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			off := gray.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out[y*w:(y+1)*w], gray.Pix[off:off+w])
		}
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y*w+x] = Luma(uint8(r>>8), uint8(g>>8), uint8(bb>>8))
		}
	}
	return out
}
