package export

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"autocaption/internal/keyframe"
	"autocaption/internal/textutil"
)

// Exporter writes the ordered key frames of a run somewhere.
type Exporter interface {
	Export(ctx context.Context, job Job, kfs []keyframe.KeyFrame) error
}

// Settings echoes the extraction configuration into exported metadata.
type Settings struct {
	Threshold        float64       `json:"similarity_threshold"`
	Metric           string        `json:"similarity_metric"`
	Interval         time.Duration `json:"-"`
	RollingReference bool          `json:"rolling_reference"`
	MinRunDuration   time.Duration `json:"-"`
	MergeShortRuns   bool          `json:"merge_short_runs"`
}

// Job describes one export.
type Job struct {
	Video     string
	OutputDir string
	RunID     string
	Settings  Settings
	Duration  time.Duration
	// Artifacts collects paths written by exporters. May be nil.
	Artifacts *Artifacts
}

// Stem is the sanitized base name of the source video without extension.
func (j Job) Stem() string {
	base := filepath.Base(j.Video)
	stem := textutil.SanitizeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." {
		return "video"
	}
	return stem
}

// FrameArtifact is one exported key-frame image.
type FrameArtifact struct {
	Ordinal int
	Path    string
	SHA256  string
}

// Artifacts lists what a job produced.
type Artifacts struct {
	mu       sync.Mutex
	frames   []FrameArtifact
	pdf      string
	manifest string
}

func (a *Artifacts) addFrame(f FrameArtifact) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = append(a.frames, f)
}

func (a *Artifacts) setPDF(path string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.pdf = path
	a.mu.Unlock()
}

func (a *Artifacts) setManifest(path string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.manifest = path
	a.mu.Unlock()
}

// Frames returns the exported images in ordinal order of writing.
func (a *Artifacts) Frames() []FrameArtifact {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]FrameArtifact(nil), a.frames...)
}

// Frame returns the image written for ordinal, if any.
func (a *Artifacts) Frame(ordinal int) (FrameArtifact, bool) {
	for _, f := range a.Frames() {
		if f.Ordinal == ordinal {
			return f, true
		}
	}
	return FrameArtifact{}, false
}

// PDF returns the deck path, or "" when none was written.
func (a *Artifacts) PDF() string {
	if a == nil {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pdf
}

// Manifest returns the manifest path, or "" when none was written.
func (a *Artifacts) Manifest() string {
	if a == nil {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.manifest
}

// Multi runs exporters in order and stops at the first failure.
type Multi []Exporter

// Export implements Exporter.
func (m Multi) Export(ctx context.Context, job Job, kfs []keyframe.KeyFrame) error {
	for _, exp := range m {
		if exp == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := exp.Export(ctx, job, kfs); err != nil {
			return err
		}
	}
	return nil
}
