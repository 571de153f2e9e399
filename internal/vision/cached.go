package vision

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"image"
	"image/draw"
	"log/slog"

	"autocaption/internal/catalog"
	"autocaption/internal/logging"
)

// DescriptionCache stores descriptions keyed by image hash and model.
type DescriptionCache interface {
	CachedDescription(ctx context.Context, sha256, model string) (catalog.Description, bool, error)
	PutDescription(ctx context.Context, desc catalog.Description) error
}

// Cached consults Cache before calling Inner. Cache failures are logged and
// never fail the description.
type Cached struct {
	Inner  Describer
	Cache  DescriptionCache
	Model  string
	Logger *slog.Logger
}

// Describe implements Describer.
func (c *Cached) Describe(ctx context.Context, img image.Image) (Description, error) {
	logger := logging.NewComponentLogger(c.Logger, "vision")
	key := ImageKey(img)
	if c.Cache != nil {
		hit, ok, err := c.Cache.CachedDescription(ctx, key, c.Model)
		switch {
		case err != nil:
			logger.Debug("description cache lookup failed", logging.Error(err))
		case ok:
			logger.Debug("description cache hit", logging.String("sha256", key))
			return Description{Summary: hit.Summary, OnScreenText: hit.OnScreenText}, nil
		}
	}
	desc, err := c.Inner.Describe(ctx, img)
	if err != nil {
		return Description{}, err
	}
	if c.Cache != nil {
		if err := c.Cache.PutDescription(ctx, catalog.Description{
			SHA256:       key,
			Model:        c.Model,
			Summary:      desc.Summary,
			OnScreenText: desc.OnScreenText,
		}); err != nil {
			logger.Debug("description cache store failed", logging.Error(err))
		}
	}
	return desc, nil
}

// ImageKey hashes the image dimensions and RGBA pixels. Equal pixels give
// equal keys regardless of the source encoding.
func ImageKey(img image.Image) string {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	h := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(b.Dy()))
	h.Write(dims[:])
	h.Write(rgba.Pix[:4*b.Dx()*b.Dy()])
	return hex.EncodeToString(h.Sum(nil))
}
