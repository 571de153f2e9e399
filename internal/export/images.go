package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"autocaption/internal/fileutil"
	"autocaption/internal/keyframe"
	"autocaption/internal/services"
	"autocaption/internal/vision"
)

// DefaultJPEGQuality matches the extraction config default.
const DefaultJPEGQuality = 90

// Images writes each key frame as a JPEG.
type Images struct {
	// Subdir under the job output directory; "frames" when empty.
	Subdir  string
	Quality int
}

// Dir returns the directory Images writes to for job.
func (e Images) Dir(job Job) string {
	sub := e.Subdir
	if sub == "" {
		sub = "frames"
	}
	return filepath.Join(job.OutputDir, sub)
}

// Export implements Exporter.
func (e Images) Export(ctx context.Context, job Job, kfs []keyframe.KeyFrame) error {
	dir := e.Dir(job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "export", "create frames dir", dir, err)
	}
	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	stem := job.Stem()
	for ordinal, kf := range kfs {
		if err := ctx.Err(); err != nil {
			return services.Cancelled("export", err)
		}
		if kf.Frame.Image == nil {
			return services.Wrap(services.ErrValidation, "export", "write frame", fmt.Sprintf("key frame %d has no image", ordinal), nil)
		}
		data, err := vision.EncodeJPEG(kf.Frame.Image, quality)
		if err != nil {
			return services.Wrap(services.ErrTransient, "export", "encode frame", fmt.Sprintf("key frame %d", ordinal), err)
		}
		path := filepath.Join(dir, FrameFilename(stem, kf.Index(), kf.Timestamp()))
		if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "export", "write frame", path, err)
		}
		job.Artifacts.addFrame(FrameArtifact{Ordinal: ordinal, Path: path, SHA256: fileutil.SHA256Hex(data)})
	}
	return nil
}

// FrameFilename is <stem>_frame_<index:04d>_<seconds:.3f>s.jpg.
func FrameFilename(stem string, index int, ts time.Duration) string {
	return fmt.Sprintf("%s_frame_%04d_%.3fs.jpg", stem, index, ts.Seconds())
}

// ParseFrameFilename recovers the frame index and timestamp from a name
// produced by FrameFilename. Directory components are ignored.
func ParseFrameFilename(name string) (int, time.Duration, error) {
	base := filepath.Base(name)
	trimmed, ok := strings.CutSuffix(base, "s.jpg")
	if !ok || !strings.Contains(trimmed, "_frame_") {
		return 0, 0, fmt.Errorf("%q is not a frame file name", base)
	}
	parts := strings.Split(trimmed, "_")
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("%q is not a frame file name", base)
	}
	index, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || index < 0 {
		return 0, 0, fmt.Errorf("%q: invalid frame index", base)
	}
	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 {
		return 0, 0, fmt.Errorf("%q: invalid timestamp", base)
	}
	return index, time.Duration(seconds*1000+0.5) * time.Millisecond, nil
}
