package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"autocaption/internal/logging"
	"autocaption/internal/services"
	"autocaption/internal/services/llm"
	"autocaption/internal/textutil"
)

const (
	// DefaultPrompt asks for the same detail the frame descriptor always did.
	DefaultPrompt  = "Please describe this image in detail. What text, if any, is in the image?"
	DefaultMaxSide = 1280
	uploadQuality  = 85
)

const describeSystemPrompt = `You describe slides captured from lecture videos.
Respond with JSON only: {"summary":"<detailed description>","on_screen_text":"<all legible text, reading order>"}.
Use an empty string for on_screen_text when the slide has no text.`

// VisionCompleter is the subset of the llm client used for descriptions.
type VisionCompleter interface {
	CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt, imageURL string) (string, error)
}

// LLMDescriber sends each image to a vision model.
type LLMDescriber struct {
	Client  VisionCompleter
	Prompt  string
	MaxSide int
	Logger  *slog.Logger
}

// Describe implements Describer.
func (d *LLMDescriber) Describe(ctx context.Context, img image.Image) (Description, error) {
	if d.Client == nil {
		return Description{}, services.Wrap(services.ErrModelUnavailable, "vision", "describe", "no vision client configured", nil)
	}
	if img == nil || img.Bounds().Empty() {
		return Description{}, services.Wrap(services.ErrValidation, "vision", "describe", "empty image", nil)
	}
	maxSide := d.MaxSide
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	prompt := strings.TrimSpace(d.Prompt)
	if prompt == "" {
		prompt = DefaultPrompt
	}

	data, err := EncodeJPEG(Fit(img, maxSide), uploadQuality)
	if err != nil {
		return Description{}, services.Wrap(services.ErrInference, "vision", "encode image", "", err)
	}
	content, err := d.Client.CompleteVisionJSON(ctx, describeSystemPrompt, prompt, DataURL(data))
	if err != nil {
		if ctx.Err() != nil {
			return Description{}, services.Cancelled("vision", ctx.Err())
		}
		if llm.IsUnavailable(err) {
			return Description{}, services.Wrap(services.ErrModelUnavailable, "vision", "describe", "", err)
		}
		return Description{}, services.Wrap(services.ErrInference, "vision", "describe", "", err)
	}

	var desc Description
	if err := llm.DecodeLLMJSON(content, &desc); err != nil {
		return Description{}, services.Wrap(services.ErrInference, "vision", "decode reply", "", err)
	}
	desc.Summary = textutil.Normalize(desc.Summary)
	desc.OnScreenText = textutil.Normalize(desc.OnScreenText)
	if desc.Summary == "" && desc.OnScreenText == "" {
		return Description{}, services.Wrap(services.ErrInference, "vision", "decode reply", fmt.Sprintf("empty description (%d bytes)", len(content)), nil)
	}
	logging.NewComponentLogger(d.Logger, "vision").Debug("frame described",
		logging.Int("summary_chars", len(desc.Summary)),
		logging.Int("text_chars", len(desc.OnScreenText)),
	)
	return desc, nil
}
