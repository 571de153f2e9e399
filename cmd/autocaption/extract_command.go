package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"autocaption/internal/config"
	"autocaption/internal/deps"
	"autocaption/internal/discovery"
	"autocaption/internal/services"
	"autocaption/internal/workflow"
)

type extractFlags struct {
	inputDir         string
	threshold        float64
	interval         float64
	workers          int
	rollingReference bool
	minRun           float64
	mergeShortRuns   bool
	output           string
	noPDF            bool
}

type extractSummary struct {
	Video     string  `json:"video"`
	RunID     string  `json:"run_id"`
	OutputDir string  `json:"output_dir"`
	Frames    int     `json:"frames"`
	KeyFrames int     `json:"keyframes"`
	Duration  float64 `json:"duration_seconds"`
	Elapsed   float64 `json:"elapsed_seconds"`
	PDF       string  `json:"pdf,omitempty"`
	Manifest  string  `json:"manifest,omitempty"`
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{
		Use:   "extract [videos...]",
		Short: "Extract deduplicated key frames from lecture videos",
		Long: "Extract samples each video, collapses runs of near-identical frames into\n" +
			"one key frame, and writes the frames, a PDF deck, and a manifest under\n" +
			"<output_dir>/<video name>.",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyExtractFlags(cmd, base, flags)
			if err != nil {
				return err
			}
			videos, err := collectVideos(args, flags.inputDir)
			if err != nil {
				return err
			}
			if err := requireMedia(cfg); err != nil {
				return err
			}

			var summaries []extractSummary
			err = ctx.withManager(cmd, cfg, func(mgr *workflow.Manager) error {
				for _, video := range videos {
					outcome, err := mgr.ExtractVideo(cmd.Context(), video)
					if err != nil {
						return fmt.Errorf("%s: %w", filepath.Base(video), err)
					}
					summaries = append(summaries, extractSummary{
						Video:     video,
						RunID:     outcome.RunID,
						OutputDir: outcome.OutputDir,
						Frames:    outcome.Frames,
						KeyFrames: len(outcome.KeyFrames),
						Duration:  outcome.Duration.Seconds(),
						Elapsed:   outcome.Elapsed.Seconds(),
						PDF:       outcome.Artifacts.PDF(),
						Manifest:  outcome.Artifacts.Manifest(),
					})
				}
				return nil
			})
			if len(summaries) > 0 {
				if emitErr := emit(cmd, ctx, summaries, func() string { return renderExtractSummaries(summaries) }); emitErr != nil && err == nil {
					err = emitErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.inputDir, "input", "i", "", "Directory to search recursively for .mp4 videos")
	cmd.Flags().Float64VarP(&flags.threshold, "threshold", "s", 0, "Similarity threshold in [0,1] (default from config)")
	cmd.Flags().Float64Var(&flags.interval, "interval", 0, "Seconds between sampled frames (default from config)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Scoring workers (default from config)")
	cmd.Flags().BoolVar(&flags.rollingReference, "rolling-reference", false, "Compare each frame with the last accepted frame")
	cmd.Flags().Float64Var(&flags.minRun, "min-run", 0, "Runs shorter than this many seconds count as short")
	cmd.Flags().BoolVar(&flags.mergeShortRuns, "merge-short-runs", false, "Fold short runs into the previous run")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().BoolVar(&flags.noPDF, "no-pdf", false, "Skip the PDF deck")
	return cmd
}

// applyExtractFlags overlays explicitly set flags on a copy of base and
// validates the result.
func applyExtractFlags(cmd *cobra.Command, base *config.Config, flags extractFlags) (*config.Config, error) {
	cfg := *base
	set := cmd.Flags().Changed
	if set("threshold") {
		cfg.Extraction.SimilarityThreshold = flags.threshold
	}
	if set("interval") {
		cfg.Extraction.SamplingInterval = flags.interval
	}
	if set("workers") {
		cfg.Extraction.Workers = flags.workers
	}
	if set("rolling-reference") {
		cfg.Extraction.RollingReference = flags.rollingReference
	}
	if set("min-run") {
		cfg.Extraction.MinRunDuration = flags.minRun
	}
	if set("merge-short-runs") {
		cfg.Extraction.MergeShortRuns = flags.mergeShortRuns
	}
	if set("output") {
		dir, err := config.ExpandPath(flags.output)
		if err != nil {
			return nil, fmt.Errorf("resolve output path: %w", err)
		}
		cfg.Paths.OutputDir = dir
	}
	if flags.noPDF {
		cfg.Export.PDF = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "validate flags", "", err)
	}
	return &cfg, nil
}

func collectVideos(args []string, inputDir string) ([]string, error) {
	videos := append([]string(nil), args...)
	if inputDir != "" {
		found, err := discovery.FindVideos(inputDir, ".mp4")
		if err != nil {
			return nil, err
		}
		videos = append(videos, found...)
	}
	if len(videos) == 0 {
		return nil, errors.New("no videos given; pass video paths or --input")
	}
	return videos, nil
}

// requireMedia fails fast when ffmpeg or ffprobe is missing.
func requireMedia(cfg *config.Config) error {
	if err := deps.Ensure(deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary())); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "check binaries", "", err)
	}
	return nil
}

func renderExtractSummaries(summaries []extractSummary) string {
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			filepath.Base(s.Video),
			strconv.Itoa(s.Frames),
			strconv.Itoa(s.KeyFrames),
			formatSeconds(s.Duration),
			formatSeconds(s.Elapsed),
			s.OutputDir,
		}
	}
	return renderTable([]column{
		{header: "Video"},
		{header: "Frames", align: alignRight},
		{header: "Key frames", align: alignRight},
		{header: "Length", align: alignRight},
		{header: "Took", align: alignRight},
		{header: "Output"},
	}, rows, "")
}

func formatSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
