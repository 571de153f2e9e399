package frames

import (
	"context"
	"io"
	"time"

	"autocaption/internal/services"
)

// Reader yields frames in strictly increasing index and timestamp order.
// Next returns io.EOF after the last frame and wraps services.ErrEmptyVideo
// when the source produced no frames at all.
type Reader interface {
	Next(ctx context.Context) (Frame, error)
	// Duration reports the source length, or 0 when unknown.
	Duration() time.Duration
	Close() error
}

// SliceReader serves frames from memory.
type SliceReader struct {
	frames   []Frame
	duration time.Duration
	pos      int
}

// NewSliceReader wraps frames (already in order) with an optional duration.
func NewSliceReader(frames []Frame, duration time.Duration) *SliceReader {
	return &SliceReader{frames: frames, duration: duration}
}

func (r *SliceReader) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, services.Cancelled("frames", err)
	}
	if r.pos >= len(r.frames) {
		if len(r.frames) == 0 {
			return Frame{}, services.Wrap(services.ErrEmptyVideo, "frames", "read", "source produced no frames", nil)
		}
		return Frame{}, io.EOF
	}
	f := r.frames[r.pos]
	r.pos++
	return f, nil
}

func (r *SliceReader) Duration() time.Duration { return r.duration }

func (r *SliceReader) Close() error { return nil }

var _ Reader = (*SliceReader)(nil)
