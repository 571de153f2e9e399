package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"autocaption/internal/logging"
	"autocaption/internal/media/ffprobe"
	"autocaption/internal/services"
)

var commandContext = exec.CommandContext

// ProbeFunc inspects a video before decoding starts.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Result, error)

// Options configures an FFmpegReader.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	// Interval is the wall-clock spacing between sampled frames.
	Interval time.Duration
	Probe    ProbeFunc
	Logger   *slog.Logger
}

// FFmpegReader decodes a video through ffmpeg's fps filter, which samples by
// presentation time so variable frame rate sources are handled uniformly.
type FFmpegReader struct {
	path     string
	interval time.Duration
	width    int
	height   int
	duration time.Duration
	logger   *slog.Logger

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	buf    []byte
	next   int
	done   bool

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// MinInterval is the finest sampling cadence the fps filter expression can
// express.
const MinInterval = time.Millisecond

// Open probes path and starts the decoder. The returned reader owns the
// ffmpeg process until Close.
func Open(ctx context.Context, path string, opts Options) (*FFmpegReader, error) {
	if opts.Interval < MinInterval {
		return nil, services.Wrap(services.ErrConfiguration, "frames", "open",
			fmt.Sprintf("sampling interval %v is below %v", opts.Interval, MinInterval), nil)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrDecode, "frames", "open", "video not readable", err)
	}

	ffmpegBinary := strings.TrimSpace(opts.FFmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	probe := opts.Probe
	if probe == nil {
		binary := opts.FFprobeBinary
		probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, binary, path)
		}
	}

	info, err := probe(ctx, path)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "frames", "probe", "", err)
	}
	stream, ok := info.VideoStream()
	if !ok {
		return nil, services.Wrap(services.ErrDecode, "frames", "probe", "no decodable video stream", nil)
	}

	r := &FFmpegReader{
		path:     path,
		interval: opts.Interval,
		width:    stream.Width,
		height:   stream.Height,
		duration: info.Duration(),
		logger:   logging.NewComponentLogger(opts.Logger, "frames"),
		stderr:   &bytes.Buffer{},
		buf:      make([]byte, stream.Width*stream.Height*3),
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", path,
		"-map", "0:v:0",
		"-an", "-sn",
		"-vf", fmt.Sprintf("fps=fps=%s,scale=%d:%d,format=rgb24", fpsExpr(opts.Interval), stream.Width, stream.Height),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	}
	cmd := commandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	cmd.Stderr = r.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "frames", "start ffmpeg", "", err)
	}
	r.cmd = cmd
	r.stdout = stdout

	r.logger.Debug("decoder started",
		logging.String("video", path),
		logging.Int("width", r.width),
		logging.Int("height", r.height),
		logging.Duration("interval", r.interval),
		logging.Duration("duration", r.duration),
	)
	return r, nil
}

// fpsExpr renders 1/interval as an exact rational for the fps filter.
func fpsExpr(interval time.Duration) string {
	return fmt.Sprintf("%d/%d", int64(time.Second/time.Microsecond), interval.Microseconds())
}

// Next decodes the next sampled frame.
func (r *FFmpegReader) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, services.Cancelled("frames", err)
	}
	if r.done {
		return Frame{}, io.EOF
	}

	n, err := io.ReadFull(r.stdout, r.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && n == 0:
		r.done = true
		if waitErr := r.wait(); waitErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Frame{}, services.Cancelled("frames", ctxErr)
			}
			return Frame{}, r.decodeError("decode", waitErr)
		}
		if r.next == 0 {
			return Frame{}, services.Wrap(services.ErrEmptyVideo, "frames", "read", "ffmpeg produced no frames", nil)
		}
		return Frame{}, io.EOF
	default:
		r.done = true
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Frame{}, services.Cancelled("frames", ctxErr)
		}
		_ = r.wait()
		return Frame{}, r.decodeError(fmt.Sprintf("truncated frame %d (%d of %d bytes)", r.next, n, len(r.buf)), err)
	}

	frame := Frame{
		Index:     r.next,
		Timestamp: time.Duration(r.next) * r.interval,
		Image:     rgb24ToRGBA(r.buf, r.width, r.height),
	}
	r.next++
	return frame, nil
}

func (r *FFmpegReader) decodeError(op string, err error) error {
	detail := strings.TrimSpace(r.stderr.String())
	if detail != "" {
		if idx := strings.IndexByte(detail, '\n'); idx > 0 {
			detail = detail[:idx]
		}
	}
	return services.Wrap(services.ErrDecode, "frames", op, detail, err)
}

func (r *FFmpegReader) takeCmd() *exec.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd := r.cmd
	r.cmd = nil
	return cmd
}

func (r *FFmpegReader) wait() error {
	cmd := r.takeCmd()
	if cmd == nil {
		return nil
	}
	return cmd.Wait()
}

// Duration reports the probed container duration.
func (r *FFmpegReader) Duration() time.Duration { return r.duration }

// Size reports the decoded raster dimensions.
func (r *FFmpegReader) Size() (int, int) { return r.width, r.height }

// Close stops the decoder and reaps the process. Safe to call repeatedly.
func (r *FFmpegReader) Close() error {
	r.closeOnce.Do(func() {
		cmd := r.takeCmd()
		if cmd == nil {
			return
		}
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			r.closeErr = err
		}
	})
	return r.closeErr
}

var _ Reader = (*FFmpegReader)(nil)
