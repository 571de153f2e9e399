package vision

import (
	"context"
	"image"

	"autocaption/internal/services"
)

// Description is what a model saw on one slide.
type Description struct {
	Summary      string `json:"summary"`
	OnScreenText string `json:"on_screen_text"`
}

// Describer produces a Description for an image.
type Describer interface {
	Describe(ctx context.Context, img image.Image) (Description, error)
}

// Static returns the same description (or error) for every image.
type Static struct {
	Description Description
	Err         error
}

// Describe implements Describer.
func (s Static) Describe(ctx context.Context, _ image.Image) (Description, error) {
	if err := ctx.Err(); err != nil {
		return Description{}, services.Cancelled("vision", err)
	}
	if s.Err != nil {
		return Description{}, s.Err
	}
	return s.Description, nil
}
