package workflow

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"time"

	"autocaption/internal/captions"
	"autocaption/internal/discovery"
	"autocaption/internal/export"
	"autocaption/internal/fileutil"
	"autocaption/internal/logging"
	"autocaption/internal/services"
)

// CorrectedCaptionsName is the file written next to the input captions when
// no output path is given.
const CorrectedCaptionsName = "autocorrected_autogenerated_captions.vtt"

// CaptionRequest names the inputs of one captioning pass. Either Video or
// FramesDir supplies the slides; FramesDir reuses frames from an earlier
// extraction and skips decoding.
type CaptionRequest struct {
	Video     string
	Captions  string
	FramesDir string
	Output    string
}

// CaptionOutcome summarizes a captioning pass.
type CaptionOutcome struct {
	Output   string        `json:"output"`
	Cues     int           `json:"cues"`
	Slides   int           `json:"slides"`
	Changed  int           `json:"changed"`
	RunID    string        `json:"run_id,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// ResolveFolder fills a request from a lecture folder holding the video and
// its generated captions.
func ResolveFolder(dir string, req CaptionRequest) (CaptionRequest, error) {
	inputs, err := discovery.FindInputs(dir)
	if err != nil {
		return req, err
	}
	if req.Video == "" {
		req.Video = inputs.Video
	}
	if req.Captions == "" {
		req.Captions = inputs.Caption
	}
	if req.Captions == "" {
		return req, services.Wrap(services.ErrNotFound, "caption", "find inputs", "no .vtt captions in "+dir, nil)
	}
	return req, nil
}

// Caption aligns the captions with the slides, corrects each slide's cues,
// and writes the result as WebVTT.
func (m *Manager) Caption(ctx context.Context, req CaptionRequest) (CaptionOutcome, error) {
	var outcome CaptionOutcome
	if req.Captions == "" {
		return outcome, services.Wrap(services.ErrValidation, "caption", "validate", "captions file is required", nil)
	}
	if req.Video == "" && req.FramesDir == "" {
		return outcome, services.Wrap(services.ErrValidation, "caption", "validate", "a video or a frames directory is required", nil)
	}
	cues, err := readCues(req.Captions)
	if err != nil {
		return outcome, err
	}
	outcome.Cues = len(cues)
	outcome.Output = req.Output
	if outcome.Output == "" {
		outcome.Output = filepath.Join(filepath.Dir(req.Captions), CorrectedCaptionsName)
	}

	var (
		spans  []captions.Span
		images []image.Image
	)
	if req.FramesDir != "" {
		spans, images, err = framesFromDir(req.FramesDir, cues)
	} else {
		var ext Outcome
		ext, err = m.ExtractVideo(ctx, req.Video)
		outcome.RunID = ext.RunID
		outcome.Duration = ext.Duration
		spans = captions.SpansFromKeyFrames(ext.KeyFrames)
		for _, kf := range ext.KeyFrames {
			images = append(images, kf.Frame.Image)
		}
	}
	if err != nil {
		return outcome, err
	}
	outcome.Slides = len(spans)

	ctx = services.WithStage(ctx, "caption")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow"))
	segments := captions.Align(cues, spans)

	if m.describer != nil && len(images) > 0 {
		results, err := m.describeImages(ctx, images)
		if err != nil {
			return outcome, err
		}
		for i := range segments {
			ord := segments[i].Ordinal
			if ord >= len(results) || results[ord].Err != nil {
				continue
			}
			segments[i].Summary = results[ord].Description.Summary
			segments[i].OnScreenText = results[ord].Description.OnScreenText
		}
	}

	corrected, err := captions.CorrectAll(ctx, m.corrector, segments, logger)
	if err != nil {
		return outcome, err
	}
	pos := 0
	for _, seg := range segments {
		for _, cue := range seg.Cues {
			if corrected[pos].Text != cue.Text {
				outcome.Changed++
			}
			pos++
		}
	}

	var buf bytes.Buffer
	if err := captions.WriteVTT(&buf, corrected, captions.DefaultHeader); err != nil {
		return outcome, services.Wrap(services.ErrTransient, "caption", "render captions", "", err)
	}
	if err := fileutil.WriteFileAtomic(outcome.Output, buf.Bytes(), 0o644); err != nil {
		return outcome, services.Wrap(services.ErrTransient, "caption", "write captions", outcome.Output, err)
	}
	logger.Info("captions written",
		logging.String("output", outcome.Output),
		logging.Int("cues", outcome.Cues),
		logging.Int("slides", outcome.Slides),
		logging.Int("changed", outcome.Changed),
		logging.String(logging.FieldEventType, "captions_written"),
	)
	return outcome, nil
}

func readCues(path string) ([]captions.Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "caption", "open captions", path, err)
	}
	defer f.Close()
	return captions.ParseVTT(f)
}

// framesFromDir recovers slide spans from exported frame file names. The
// last slide runs until the final cue ends.
func framesFromDir(dir string, cues []captions.Cue) ([]captions.Span, []image.Image, error) {
	paths, err := discovery.FindImages(dir)
	if err != nil {
		return nil, nil, err
	}
	type frameFile struct {
		path  string
		start time.Duration
	}
	var files []frameFile
	for _, path := range paths {
		_, ts, err := export.ParseFrameFilename(path)
		if err != nil {
			continue
		}
		files = append(files, frameFile{path: path, start: ts})
	}
	if len(files) == 0 {
		return nil, nil, services.Wrap(services.ErrNotFound, "caption", "find frames", "no exported frames in "+dir, nil)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].start < files[j].start })
	starts := make([]time.Duration, len(files))
	images := make([]image.Image, len(files))
	var end time.Duration
	for _, cue := range cues {
		end = max(end, cue.End)
	}
	for i, f := range files {
		starts[i] = f.start
		img, err := decodeImage(f.path)
		if err != nil {
			return nil, nil, err
		}
		images[i] = img
	}
	return captions.SpansFromTimestamps(starts, end), images, nil
}
