package export

import (
	"context"
	"encoding/json"
	"path/filepath"

	"autocaption/internal/fileutil"
	"autocaption/internal/keyframe"
	"autocaption/internal/services"
)

// ManifestName is the file Manifest writes into the job output directory.
const ManifestName = "keyframes.json"

// Manifest writes keyframes.json describing the run.
type Manifest struct{}

// ManifestDoc is the keyframes.json layout.
type ManifestDoc struct {
	RunID     string          `json:"run_id,omitempty"`
	Video     string          `json:"video"`
	Duration  float64         `json:"duration_seconds"`
	Settings  ManifestConfig  `json:"config"`
	KeyFrames []ManifestFrame `json:"keyframes"`
}

// ManifestConfig echoes the extraction settings.
type ManifestConfig struct {
	Settings
	IntervalSeconds float64 `json:"sampling_interval"`
	MinRunSeconds   float64 `json:"min_run_duration"`
}

// ManifestFrame is one key frame entry.
type ManifestFrame struct {
	Ordinal   int     `json:"ordinal"`
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Frames    int     `json:"run_frames"`
	Quality   float64 `json:"quality"`
	File      string  `json:"file,omitempty"`
}

// Build assembles the manifest document for job.
func (Manifest) Build(job Job, kfs []keyframe.KeyFrame) ManifestDoc {
	doc := ManifestDoc{
		RunID:    job.RunID,
		Video:    job.Video,
		Duration: job.Duration.Seconds(),
		Settings: ManifestConfig{
			Settings:        job.Settings,
			IntervalSeconds: job.Settings.Interval.Seconds(),
			MinRunSeconds:   job.Settings.MinRunDuration.Seconds(),
		},
		KeyFrames: make([]ManifestFrame, len(kfs)),
	}
	for i, kf := range kfs {
		entry := ManifestFrame{
			Ordinal:   i,
			Index:     kf.Index(),
			Timestamp: kf.Timestamp().Seconds(),
			Start:     kf.Start.Seconds(),
			End:       kf.End.Seconds(),
			Frames:    kf.RunFrames,
			Quality:   kf.Quality,
		}
		if art, ok := job.Artifacts.Frame(i); ok {
			if rel, err := filepath.Rel(job.OutputDir, art.Path); err == nil {
				entry.File = filepath.ToSlash(rel)
			} else {
				entry.File = art.Path
			}
		}
		doc.KeyFrames[i] = entry
	}
	return doc
}

// Export implements Exporter.
func (m Manifest) Export(ctx context.Context, job Job, kfs []keyframe.KeyFrame) error {
	if err := ctx.Err(); err != nil {
		return services.Cancelled("export", err)
	}
	data, err := json.MarshalIndent(m.Build(job, kfs), "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, "export", "encode manifest", "", err)
	}
	path := filepath.Join(job.OutputDir, ManifestName)
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "export", "write manifest", path, err)
	}
	job.Artifacts.setManifest(path)
	return nil
}
