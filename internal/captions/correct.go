package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"autocaption/internal/logging"
	"autocaption/internal/services"
	"autocaption/internal/services/llm"
	"autocaption/internal/textutil"
)

// DefaultMinSimilarity is the token similarity a rewrite must keep with the
// original cue text to be accepted.
const DefaultMinSimilarity = 0.5

// Corrector rewrites the text of a segment's cues. Implementations return one
// cue per input cue with timings unchanged.
type Corrector interface {
	Correct(ctx context.Context, seg Segment) ([]Cue, error)
}

// Passthrough returns cues unchanged.
type Passthrough struct{}

// Correct implements Corrector.
func (Passthrough) Correct(ctx context.Context, seg Segment) ([]Cue, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.Cancelled("captions", err)
	}
	return append([]Cue(nil), seg.Cues...), nil
}

// Completer is the subset of the llm client used for correction.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const correctionSystemPrompt = `You correct automatically generated lecture captions.
You receive the caption lines spoken while one slide was shown, plus a description
of the slide and the text visible on it. Fix misrecognized words, especially
technical terms, names, and symbols that appear on the slide. Do not paraphrase,
summarize, merge, split, or reorder lines. Respond with JSON only:
{"cues":[{"id":<id>,"text":"<corrected text>"}]}`

// LLMCorrector asks a language model to fix recognition errors using the slide
// as context.
type LLMCorrector struct {
	Client        Completer
	MinSimilarity float64
	Logger        *slog.Logger
}

type correctionRequest struct {
	SlideSummary string           `json:"slide_summary,omitempty"`
	OnScreenText string           `json:"on_screen_text,omitempty"`
	Cues         []correctionLine `json:"cues"`
}

type correctionLine struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Correct implements Corrector.
func (c *LLMCorrector) Correct(ctx context.Context, seg Segment) ([]Cue, error) {
	out := append([]Cue(nil), seg.Cues...)
	if len(out) == 0 {
		return out, nil
	}
	if c.Client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "captions", "correct", "no llm client configured", nil)
	}
	logger := logging.NewComponentLogger(c.Logger, "captions")

	req := correctionRequest{
		SlideSummary: textutil.SingleLine(seg.Summary),
		OnScreenText: textutil.SingleLine(seg.OnScreenText),
		Cues:         make([]correctionLine, len(out)),
	}
	for i, cue := range out {
		req.Cues[i] = correctionLine{ID: i, Text: cue.Text}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, services.Wrap(services.ErrInference, "captions", "encode request", "", err)
	}

	content, err := c.Client.CompleteJSON(ctx, correctionSystemPrompt, string(payload))
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Cancelled("captions", ctx.Err())
		}
		marker := services.ErrInference
		if llm.IsUnavailable(err) {
			marker = services.ErrModelUnavailable
		}
		return nil, services.Wrap(marker, "captions", "correct", fmt.Sprintf("segment %d", seg.Ordinal), err)
	}
	var resp struct {
		Cues []correctionLine `json:"cues"`
	}
	if err := llm.DecodeLLMJSON(content, &resp); err != nil {
		return nil, services.Wrap(services.ErrInference, "captions", "decode reply", fmt.Sprintf("segment %d", seg.Ordinal), err)
	}

	minSim := c.MinSimilarity
	if minSim <= 0 {
		minSim = DefaultMinSimilarity
	}
	for _, line := range resp.Cues {
		if line.ID < 0 || line.ID >= len(out) {
			continue
		}
		rewritten := textutil.Normalize(line.Text)
		original := out[line.ID].Text
		if rewritten == "" || rewritten == original {
			continue
		}
		if sim := textutil.TextSimilarity(original, rewritten); sim < minSim {
			logger.Debug("rejected caption rewrite",
				logging.Int("segment", seg.Ordinal),
				logging.Int("cue", line.ID),
				logging.Float64("similarity", sim),
			)
			continue
		}
		out[line.ID].Text = rewritten
	}
	return out, nil
}

// CorrectAll corrects every segment in order and returns the flattened cues.
// A segment whose correction fails keeps its original cues; only cancellation
// stops the pass.
func CorrectAll(ctx context.Context, corrector Corrector, segments []Segment, logger *slog.Logger) ([]Cue, error) {
	logger = logging.NewComponentLogger(logger, "captions")
	if corrector == nil {
		corrector = Passthrough{}
	}
	var (
		out    []Cue
		failed int
	)
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, services.Cancelled("captions", err)
		}
		corrected, err := corrector.Correct(ctx, seg)
		if err != nil {
			if services.IsCancellation(err) || ctx.Err() != nil {
				return nil, services.Cancelled("captions", ctx.Err())
			}
			failed++
			logging.WarnWithContext(logger, "caption correction failed; keeping original", "caption_correction_fallback",
				logging.Int("segment", seg.Ordinal),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segment captions left uncorrected"),
			)
			corrected = append([]Cue(nil), seg.Cues...)
		} else if len(corrected) != len(seg.Cues) {
			failed++
			logging.WarnWithContext(logger, "corrector changed cue count; keeping original", "caption_correction_fallback",
				logging.Int("segment", seg.Ordinal),
				logging.Int("expected", len(seg.Cues)),
				logging.Int("got", len(corrected)),
			)
			corrected = append([]Cue(nil), seg.Cues...)
		}
		for i := range corrected {
			corrected[i].Start = seg.Cues[i].Start
			corrected[i].End = seg.Cues[i].End
			corrected[i].Text = strings.TrimSpace(corrected[i].Text)
		}
		out = append(out, corrected...)
	}
	if failed > 0 {
		logger.Info("caption correction finished with fallbacks",
			logging.Int("segments", len(segments)),
			logging.Int("fallbacks", failed),
		)
	}
	return out, nil
}
