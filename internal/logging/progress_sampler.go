package logging

import (
	"strings"
	"sync"
)

// ProgressSampler thins per-frame progress down to a handful of log lines per
// stage. With a known total it emits once per percentage bucket; otherwise it
// emits every Step items.
type ProgressSampler struct {
	bucket float64
	step   int

	mu    sync.Mutex
	stage string
	last  int
}

// NewProgressSampler returns a sampler with bucket-percent granularity
// (default 10) and an item step for unknown totals (default 100).
func NewProgressSampler(bucket float64, step int) *ProgressSampler {
	if bucket <= 0 {
		bucket = 10
	}
	if step <= 0 {
		step = 100
	}
	return &ProgressSampler{bucket: bucket, step: step, last: -1}
}

// Observe reports whether done/total for stage should be logged. A new stage
// always logs and restarts the buckets.
func (s *ProgressSampler) Observe(stage string, done, total int) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	s.mu.Lock()
	defer s.mu.Unlock()

	emit := false
	if stage != s.stage {
		s.stage = stage
		s.last = -1
		emit = true
	}
	mark := s.markFor(done, total)
	if mark > s.last {
		s.last = mark
		emit = true
	}
	return emit
}

func (s *ProgressSampler) markFor(done, total int) int {
	if done < 0 {
		return -1
	}
	if total <= 0 {
		return done / s.step
	}
	if done >= total {
		return int(100 / s.bucket)
	}
	return int(float64(done) * 100 / float64(total) / s.bucket)
}

// Percent is done/total in [0,100], or -1 when total is unknown.
func Percent(done, total int) float64 {
	if total <= 0 {
		return -1
	}
	if done >= total {
		return 100
	}
	return float64(done) * 100 / float64(total)
}

// Reset forgets the current stage, e.g. between videos.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.stage = ""
	s.last = -1
	s.mu.Unlock()
}
