package frames

import (
	"image"
	"image/color"
	"time"
)

// Frame is one sampled raster from a video. Frames are treated as immutable
// once produced; consumers must not write to Image.
type Frame struct {
	Index     int
	Timestamp time.Duration
	Image     *image.RGBA
}

// Width returns the raster width in pixels.
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Rect.Dx()
}

// Height returns the raster height in pixels.
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Rect.Dy()
}

// Solid returns a w×h frame filled with a single color. Used by synthetic
// sources and tests.
func Solid(index int, ts time.Duration, w, h int, c color.RGBA) Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return Frame{Index: index, Timestamp: ts, Image: img}
}

// rgb24ToRGBA expands packed rgb24 bytes into an opaque RGBA image.
func rgb24ToRGBA(src []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	dst := img.Pix
	for s, d := 0, 0; s+2 < len(src) && d+3 < len(dst); s, d = s+3, d+4 {
		dst[d] = src[s]
		dst[d+1] = src[s+1]
		dst[d+2] = src[s+2]
		dst[d+3] = 0xff
	}
	return img
}
