package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucket     float64
		step       int
		wantBucket float64
		wantStep   int
	}{
		{"zero values", 0, 0, 10, 100},
		{"negative values", -1, -5, 10, 100},
		{"custom", 25, 30, 25, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucket, tt.step)
			if s.bucket != tt.wantBucket || s.step != tt.wantStep {
				t.Fatalf("got bucket=%v step=%d, want %v/%d", s.bucket, s.step, tt.wantBucket, tt.wantStep)
			}
		})
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.Observe("extract", 1, 10) {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerKnownTotal(t *testing.T) {
	s := NewProgressSampler(10, 0)
	steps := []struct {
		done int
		want bool
	}{
		{0, true},
		{5, false},
		{9, false},
		{10, true},
		{19, false},
		{55, true},
		{100, true},
		{120, false},
	}
	for _, st := range steps {
		if got := s.Observe("extract", st.done, 100); got != st.want {
			t.Fatalf("Observe(%d/100) = %v, want %v", st.done, got, st.want)
		}
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(0, 50)
	if !s.Observe("extract", 1, 0) {
		t.Fatal("first observation should log")
	}
	if s.Observe("extract", 49, 0) {
		t.Fatal("49 items should stay in the first step")
	}
	if !s.Observe("extract", 50, 0) {
		t.Fatal("50 items should cross a step")
	}
}

func TestProgressSamplerStageChangeRestarts(t *testing.T) {
	s := NewProgressSampler(10, 0)
	s.Observe("extract", 80, 100)
	if !s.Observe(" describe ", 0, 4) {
		t.Fatal("new stage should log")
	}
	if s.stage != "describe" {
		t.Fatalf("stage = %q, want trimmed describe", s.stage)
	}
	if !s.Observe("describe", 1, 4) {
		t.Fatal("25% of a fresh stage should log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10, 0)
	s.Observe("extract", 50, 100)
	s.Reset()
	if !s.Observe("extract", 50, 100) {
		t.Fatal("should log after reset")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(3, 0); got != -1 {
		t.Fatalf("unknown total = %v, want -1", got)
	}
	if got := Percent(5, 4); got != 100 {
		t.Fatalf("overflow = %v, want 100", got)
	}
	if got := Percent(1, 4); got != 25 {
		t.Fatalf("quarter = %v, want 25", got)
	}
}
