package index_test

import (
	"image"
	"image/color"
	"math"
	"testing"

	"autocaption/internal/index"
)

func gradient(w, h int, gain, offset float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(math.Min(255, offset+gain*float64(x*200/w)))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestFingerprintIsUnitAndCentered(t *testing.T) {
	vec := index.Fingerprint(gradient(160, 90, 1, 0)).Slice()
	if len(vec) != index.Dimensions {
		t.Fatalf("expected %d dims, got %d", index.Dimensions, len(vec))
	}
	var sum, norm float64
	for _, v := range vec {
		sum += float64(v)
		norm += float64(v) * float64(v)
	}
	if math.Abs(sum) > 1e-4 {
		t.Fatalf("expected zero mean, got sum %v", sum)
	}
	if math.Abs(norm-1) > 1e-4 {
		t.Fatalf("expected unit length, got %v", norm)
	}
}

func TestFingerprintIgnoresBrightnessAndScale(t *testing.T) {
	a := index.Fingerprint(gradient(320, 180, 1, 0)).Slice()
	b := index.Fingerprint(gradient(160, 90, 0.5, 40)).Slice()
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot < 0.99 {
		t.Fatalf("expected near-identical fingerprints, cosine %v", dot)
	}
}

func TestFingerprintOfUniformImageIsZero(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	if !index.IsZero(index.Fingerprint(img)) {
		t.Fatal("expected zero vector for blank image")
	}
	if !index.IsZero(index.Fingerprint(nil)) {
		t.Fatal("expected zero vector for nil image")
	}
}
