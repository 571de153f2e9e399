package keyframe_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"autocaption/internal/frames"
	"autocaption/internal/keyframe"
	"autocaption/internal/services"
	"autocaption/internal/similarity"
)

// stateScorer compares signatures that are plain state labels: identical
// labels score 1, anything else 0.
type stateScorer struct{}

func (stateScorer) Name() string                                { return "state" }
func (stateScorer) Range() (float64, float64)                   { return 0, 1 }
func (stateScorer) Prepare(f frames.Frame) similarity.Signature { return f.Index }
func (stateScorer) Compare(ref, cand similarity.Signature) float64 {
	if ref == cand {
		return 1
	}
	return 0
}

// driftScorer treats signatures as positions on a line.
type driftScorer struct{}

func (driftScorer) Name() string                                { return "drift" }
func (driftScorer) Range() (float64, float64)                   { return 0, 1 }
func (driftScorer) Prepare(f frames.Frame) similarity.Signature { return 0.0 }
func (driftScorer) Compare(ref, cand similarity.Signature) float64 {
	return 1 - math.Abs(ref.(float64)-cand.(float64))
}

func observations(labels []string, qualities []float64, interval time.Duration) []keyframe.Observation {
	out := make([]keyframe.Observation, len(labels))
	for i, label := range labels {
		q := 0.0
		if qualities != nil {
			q = qualities[i]
		}
		out[i] = keyframe.Observation{
			Frame:     frames.Frame{Index: i, Timestamp: time.Duration(i) * interval},
			Signature: label,
			Quality:   q,
		}
	}
	return out
}

func runMachine(m *keyframe.Machine, obs []keyframe.Observation, end time.Duration) []keyframe.KeyFrame {
	var out []keyframe.KeyFrame
	for _, o := range obs {
		out = append(out, m.Push(o)...)
	}
	return append(out, m.Finish(end)...)
}

func TestFiveFrameScenario(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.95})
	obs := observations([]string{"A", "A", "A", "B", "B"}, nil, time.Second)
	got := runMachine(m, obs, 5*time.Second)

	if len(got) != 2 {
		t.Fatalf("expected 2 key frames, got %d", len(got))
	}
	want := []keyframe.KeyFrame{
		{Start: 0, End: 3 * time.Second, FirstIndex: 0, LastIndex: 2, RunFrames: 3},
		{Start: 3 * time.Second, End: 5 * time.Second, FirstIndex: 3, LastIndex: 4, RunFrames: 2},
	}
	wantIndex := []int{0, 3}
	for i, kf := range got {
		if kf.Index() != wantIndex[i] {
			t.Fatalf("key frame %d: expected representative %d, got %d", i, wantIndex[i], kf.Index())
		}
		if kf.Start != want[i].Start || kf.End != want[i].End {
			t.Fatalf("key frame %d: expected span %v-%v, got %v-%v", i, want[i].Start, want[i].End, kf.Start, kf.End)
		}
		if kf.FirstIndex != want[i].FirstIndex || kf.LastIndex != want[i].LastIndex || kf.RunFrames != want[i].RunFrames {
			t.Fatalf("key frame %d: unexpected membership %+v", i, kf)
		}
	}
}

func TestSingleFrameSpansToVideoEnd(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.5})
	got := runMachine(m, observations([]string{"A"}, nil, time.Second), 1500*time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("expected 1 key frame, got %d", len(got))
	}
	if got[0].Start != 0 || got[0].End != 1500*time.Millisecond || got[0].RunFrames != 1 {
		t.Fatalf("unexpected key frame %+v", got[0])
	}
}

func TestFinishUsesLastTimestampWhenVideoEndEarlier(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.5})
	got := runMachine(m, observations([]string{"A", "A", "A"}, nil, time.Second), 0)
	if got[0].End != 2*time.Second {
		t.Fatalf("expected end at last timestamp, got %v", got[0].End)
	}
}

func TestSingletonEmittedWithoutMerging(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), keyframe.Options{
		SimilarityThreshold: 0.95,
		MinRunDuration:      5 * time.Second, // ignored without MergeShortRuns
	})
	got := runMachine(m, observations([]string{"A", "A", "X", "A", "A"}, nil, time.Second), 5*time.Second)
	if len(got) != 3 {
		t.Fatalf("expected singleton to be its own key frame, got %d key frames", len(got))
	}
	if got[1].Index() != 2 || got[1].RunFrames != 1 {
		t.Fatalf("unexpected singleton key frame %+v", got[1])
	}
}

func mergingOptions() keyframe.Options {
	return keyframe.Options{SimilarityThreshold: 0.95, MinRunDuration: 1500 * time.Millisecond, MergeShortRuns: true}
}

func TestOutlierAbsorbedIntoPrecedingRun(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), mergingOptions())
	got := runMachine(m, observations([]string{"A", "A", "A", "X", "A", "A"}, nil, time.Second), 6*time.Second)
	if len(got) != 1 {
		t.Fatalf("expected outlier to be absorbed, got %d key frames: %+v", len(got), got)
	}
	kf := got[0]
	if kf.RunFrames != 6 || kf.Start != 0 || kf.End != 6*time.Second || kf.LastIndex != 5 {
		t.Fatalf("unexpected merged key frame %+v", kf)
	}
}

func TestOutlierBeforeNewStateJoinsPreviousRun(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), mergingOptions())
	got := runMachine(m, observations([]string{"A", "A", "A", "X", "B", "B", "B"}, nil, time.Second), 7*time.Second)
	if len(got) != 2 {
		t.Fatalf("expected 2 key frames, got %d: %+v", len(got), got)
	}
	if got[0].LastIndex != 3 || got[0].End != 4*time.Second || got[0].RunFrames != 4 {
		t.Fatalf("expected outlier folded into first run, got %+v", got[0])
	}
	if got[1].FirstIndex != 4 || got[1].Start != 4*time.Second {
		t.Fatalf("unexpected second run %+v", got[1])
	}
}

func TestShortFirstRunIsKept(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), mergingOptions())
	got := runMachine(m, observations([]string{"X", "A", "A", "A"}, nil, time.Second), 4*time.Second)
	if len(got) != 2 {
		t.Fatalf("expected short first run to be kept, got %d key frames", len(got))
	}
	if got[0].RunFrames != 1 || got[0].End != time.Second {
		t.Fatalf("unexpected first key frame %+v", got[0])
	}
}

func TestShortFinalRunMergesOnFinish(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), mergingOptions())
	got := runMachine(m, observations([]string{"A", "A", "A", "B"}, nil, time.Second), 4*time.Second)
	if len(got) != 1 || got[0].RunFrames != 4 || got[0].End != 4*time.Second {
		t.Fatalf("expected trailing short run merged, got %+v", got)
	}
}

func TestRollingReferenceTracksDrift(t *testing.T) {
	positions := []float64{0, 0.03, 0.06, 0.09, 0.12}
	build := func() []keyframe.Observation {
		obs := make([]keyframe.Observation, len(positions))
		for i, p := range positions {
			obs[i] = keyframe.Observation{Frame: frames.Frame{Index: i, Timestamp: time.Duration(i) * time.Second}, Signature: p}
		}
		return obs
	}

	fixed := keyframe.NewMachine(driftScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.95})
	if got := runMachine(fixed, build(), 5*time.Second); len(got) != 3 {
		t.Fatalf("expected fixed reference to split drift into 3 runs, got %d", len(got))
	}
	rolling := keyframe.NewMachine(driftScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.95, RollingReference: true})
	if got := runMachine(rolling, build(), 5*time.Second); len(got) != 1 {
		t.Fatalf("expected rolling reference to keep one run, got %d", len(got))
	}
}

func TestSelectorPrefersSharpestThenEarliest(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.95})
	got := runMachine(m, observations([]string{"A", "A", "A", "A"}, []float64{1, 3, 3, 2}, time.Second), 4*time.Second)
	if got[0].Index() != 1 || got[0].Quality != 3 {
		t.Fatalf("expected earliest sharpest frame 1, got %d (quality %v)", got[0].Index(), got[0].Quality)
	}
}

func TestMergeKeepsEarlierBestOnTie(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), mergingOptions())
	obs := observations([]string{"A", "A", "X", "A"}, []float64{5, 1, 5, 1}, time.Second)
	got := runMachine(m, obs, 4*time.Second)
	if len(got) != 1 || got[0].Index() != 0 {
		t.Fatalf("expected earlier best to survive a tie, got %+v", got)
	}

	m = keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), mergingOptions())
	obs = observations([]string{"A", "A", "X", "A"}, []float64{5, 1, 9, 1}, time.Second)
	got = runMachine(m, obs, 4*time.Second)
	if len(got) != 1 || got[0].Index() != 2 {
		t.Fatalf("expected strictly sharper absorbed frame to win, got %+v", got)
	}
}

func TestAbortReturnsOnlyClosedRuns(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.95})
	var emitted []keyframe.KeyFrame
	for _, o := range observations([]string{"A", "A", "B", "B"}, nil, time.Second) {
		emitted = append(emitted, m.Push(o)...)
	}
	if len(emitted) != 1 || emitted[0].LastIndex != 1 {
		t.Fatalf("expected first run closed on state change, got %+v", emitted)
	}
	if m.State() != keyframe.InRun {
		t.Fatalf("expected open run, got %v", m.State())
	}
	if rest := m.Abort(); len(rest) != 0 {
		t.Fatalf("expected open run to be dropped, got %+v", rest)
	}
	if m.State() != keyframe.NoActiveRun {
		t.Fatalf("expected machine reset after abort, got %v", m.State())
	}

	held := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), mergingOptions())
	for _, o := range observations([]string{"A", "A", "B"}, nil, time.Second) {
		if out := held.Push(o); len(out) != 0 {
			t.Fatalf("expected closed run to be held, got %+v", out)
		}
	}
	rest := held.Abort()
	if len(rest) != 1 || rest[0].RunFrames != 2 {
		t.Fatalf("expected held closed run on abort, got %+v", rest)
	}
}

func TestMachineIsReusableAfterFinish(t *testing.T) {
	m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), keyframe.Options{SimilarityThreshold: 0.95})
	obs := observations([]string{"A", "B", "B", "C"}, nil, time.Second)
	first := runMachine(m, obs, 4*time.Second)
	second := runMachine(m, obs, 4*time.Second)
	if len(first) != len(second) {
		t.Fatalf("expected identical output on reuse, got %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("key frame %d differs on reuse: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRunInvariantsOnMixedStream(t *testing.T) {
	labels := []string{"A", "A", "B", "C", "C", "C", "B", "B", "D", "A", "A", "A", "E", "E", "F"}
	for _, opts := range []keyframe.Options{
		{SimilarityThreshold: 0.95},
		mergingOptions(),
		{SimilarityThreshold: 0.95, RollingReference: true, MinRunDuration: 2500 * time.Millisecond, MergeShortRuns: true},
	} {
		m := keyframe.NewMachine(stateScorer{}, keyframe.DefaultSelector(), opts)
		got := runMachine(m, observations(labels, nil, time.Second), time.Duration(len(labels))*time.Second)
		total := 0
		next := 0
		for i, kf := range got {
			if kf.RunFrames < 1 {
				t.Fatalf("run %d has no frames", i)
			}
			if kf.FirstIndex != next {
				t.Fatalf("run %d starts at %d, expected %d", i, kf.FirstIndex, next)
			}
			if kf.Index() < kf.FirstIndex || kf.Index() > kf.LastIndex {
				t.Fatalf("run %d representative %d outside [%d,%d]", i, kf.Index(), kf.FirstIndex, kf.LastIndex)
			}
			if i > 0 && got[i-1].End > kf.Start {
				t.Fatalf("runs %d and %d overlap", i-1, i)
			}
			if kf.Start >= kf.End {
				t.Fatalf("run %d has empty span %v-%v", i, kf.Start, kf.End)
			}
			next = kf.LastIndex + 1
			total += kf.RunFrames
		}
		if total != len(labels) || next != len(labels) {
			t.Fatalf("runs cover %d frames ending at %d, expected %d", total, next, len(labels))
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts keyframe.Options
		ok   bool
	}{
		{"in range", keyframe.Options{SimilarityThreshold: 0.9}, true},
		{"lower bound", keyframe.Options{SimilarityThreshold: 0}, true},
		{"upper bound", keyframe.Options{SimilarityThreshold: 1}, true},
		{"above range", keyframe.Options{SimilarityThreshold: 1.01}, false},
		{"below range", keyframe.Options{SimilarityThreshold: -0.5}, false},
		{"nan", keyframe.Options{SimilarityThreshold: math.NaN()}, false},
		{"negative min run", keyframe.Options{SimilarityThreshold: 0.9, MinRunDuration: -time.Second}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate(similarity.SSIM{})
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
