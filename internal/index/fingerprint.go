package index

import (
	"image"
	"math"

	"github.com/pgvector/pgvector-go"

	"autocaption/internal/similarity"
)

const (
	gridSide = 8
	// Dimensions is the length of every fingerprint vector.
	Dimensions = gridSide * gridSide
)

// Fingerprint averages luma over an 8x8 grid, subtracts the mean, and scales
// to unit length. Uniform images yield the zero vector.
func Fingerprint(img image.Image) pgvector.Vector {
	values := make([]float32, Dimensions)
	if img == nil || img.Bounds().Empty() {
		return pgvector.NewVector(values)
	}
	plane := similarity.Downsample(img, gridSide, gridSide)

	var mean float64
	for _, v := range plane.Pix {
		mean += v
	}
	mean /= float64(len(plane.Pix))

	var norm float64
	centered := make([]float64, len(plane.Pix))
	for i, v := range plane.Pix {
		centered[i] = v - mean
		norm += centered[i] * centered[i]
	}
	norm = math.Sqrt(norm)
	if norm < 1e-9 {
		return pgvector.NewVector(values)
	}
	for i, v := range centered {
		values[i] = float32(v / norm)
	}
	return pgvector.NewVector(values)
}

// IsZero reports whether v carries no layout information.
func IsZero(v pgvector.Vector) bool {
	for _, x := range v.Slice() {
		if x != 0 {
			return false
		}
	}
	return true
}
