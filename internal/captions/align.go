package captions

import (
	"sort"
	"time"

	"autocaption/internal/keyframe"
)

// Span is the time range a slide was on screen.
type Span struct {
	Start time.Duration
	End   time.Duration
}

// Segment groups the cues spoken while one slide was on screen, plus whatever
// is known about that slide.
type Segment struct {
	Ordinal      int
	Span         Span
	Cues         []Cue
	Summary      string
	OnScreenText string
}

// SpansFromKeyFrames returns the [Start, End) range of each key frame.
func SpansFromKeyFrames(kfs []keyframe.KeyFrame) []Span {
	spans := make([]Span, len(kfs))
	for i, kf := range kfs {
		spans[i] = Span{Start: kf.Start, End: kf.End}
	}
	return spans
}

// SpansFromTimestamps builds contiguous spans from slide appearance times, as
// recovered from exported frame file names. Each span ends where the next
// begins; the last ends at end (or its own start when end is earlier).
func SpansFromTimestamps(starts []time.Duration, end time.Duration) []Span {
	sorted := append([]time.Duration(nil), starts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	spans := make([]Span, len(sorted))
	for i, start := range sorted {
		spanEnd := end
		if i+1 < len(sorted) {
			spanEnd = sorted[i+1]
		}
		spans[i] = Span{Start: start, End: max(spanEnd, start)}
	}
	return spans
}

// Align assigns each cue to the span containing its start. Cues before the
// first span go to the first; cues at or after the last span's end go to the
// last. Cue order is preserved within each segment. With no spans, all cues
// land in a single segment covering them.
func Align(cues []Cue, spans []Span) []Segment {
	if len(spans) == 0 {
		seg := Segment{Cues: append([]Cue(nil), cues...)}
		if len(cues) > 0 {
			seg.Span = Span{Start: cues[0].Start, End: cues[len(cues)-1].End}
		}
		return []Segment{seg}
	}
	segments := make([]Segment, len(spans))
	for i, span := range spans {
		segments[i] = Segment{Ordinal: i, Span: span}
	}
	for _, cue := range cues {
		i := sort.Search(len(spans), func(i int) bool { return spans[i].Start > cue.Start }) - 1
		if i < 0 {
			i = 0
		}
		segments[i].Cues = append(segments[i].Cues, cue)
	}
	return segments
}
