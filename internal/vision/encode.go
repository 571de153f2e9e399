package vision

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

// Fit scales img down so its longest side is at most maxSide, preserving the
// aspect ratio. Images already within bounds are returned unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if maxSide <= 0 || longest <= maxSide {
		return img
	}
	scale := float64(maxSide) / float64(longest)
	dw := max(1, int(math.Round(float64(w)*scale)))
	dh := max(1, int(math.Round(float64(h)*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL wraps JPEG bytes in a base64 data URL.
func DataURL(jpegBytes []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBytes)
}
