// Package clip cuts short test clips from lecture recordings with ffmpeg.
package clip

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"autocaption/internal/services"
)

var commandContext = exec.CommandContext

// Options tunes Trim.
type Options struct {
	Binary string
	// Start is the offset of the first kept frame; zero keeps the beginning.
	Start time.Duration
	// Reencode forces H.264/AAC output instead of a stream copy, which
	// is frame-accurate at the cost of speed.
	Reencode bool
}

// Trim writes the [Start, end) portion of in to out. out is replaced if it
// exists and its directory is created when missing.
func Trim(ctx context.Context, in, out string, end time.Duration, opts Options) error {
	in, out = strings.TrimSpace(in), strings.TrimSpace(out)
	if in == "" || out == "" {
		return services.Wrap(services.ErrConfiguration, "clip", "trim", "input and output paths are required", nil)
	}
	if end <= opts.Start {
		return services.Wrap(services.ErrConfiguration, "clip", "trim", fmt.Sprintf("end %s must be after start %s", end, opts.Start), nil)
	}
	if _, err := os.Stat(in); err != nil {
		return services.Wrap(services.ErrNotFound, "clip", "trim", in, err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "clip", "trim", "create output dir", err)
	}

	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := commandContext(ctx, binary, Args(in, out, end, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return services.Cancelled("clip", ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if idx := strings.LastIndexByte(detail, '\n'); idx >= 0 {
			detail = detail[idx+1:]
		}
		return services.Wrap(services.ErrExternalTool, "clip", "ffmpeg", detail, err)
	}
	return nil
}

// Args builds the ffmpeg argument list for Trim.
func Args(in, out string, end time.Duration, opts Options) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y"}
	if opts.Start > 0 {
		args = append(args, "-ss", seconds(opts.Start))
	}
	args = append(args, "-i", in, "-t", seconds(end-opts.Start))
	if opts.Reencode {
		args = append(args, "-c:v", "libx264", "-c:a", "aac")
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, out)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
