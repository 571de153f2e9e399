package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"autocaption/internal/config"
	"autocaption/internal/workflow"
)

func newCaptionCommand(ctx *commandContext) *cobra.Command {
	var req workflow.CaptionRequest
	var folder string

	cmd := &cobra.Command{
		Use:   "caption",
		Short: "Correct generated captions using the lecture slides",
		Long: "Caption aligns each cue with the slide on screen when it was spoken, asks\n" +
			"the correction model to fix recognition errors using the slide text, and\n" +
			"writes " + workflow.CorrectedCaptionsName + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			for _, p := range []*string{&req.Video, &req.Captions, &req.FramesDir, &req.Output, &folder} {
				if *p == "" {
					continue
				}
				if *p, err = config.ExpandPath(*p); err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
			}
			if folder != "" {
				if req, err = workflow.ResolveFolder(folder, req); err != nil {
					return err
				}
			}
			if req.Captions == "" {
				return errors.New("captions are required; pass --captions or --input")
			}
			if req.FramesDir == "" {
				if req.Video == "" {
					return errors.New("a video is required; pass --video, --frames, or --input")
				}
				if err := requireMedia(cfg); err != nil {
					return err
				}
			}

			var outcome workflow.CaptionOutcome
			err = ctx.withManager(cmd, cfg, func(mgr *workflow.Manager) error {
				var err error
				outcome, err = mgr.Caption(cmd.Context(), req)
				return err
			})
			if err != nil {
				return err
			}
			return emit(cmd, ctx, outcome, func() string {
				return fmt.Sprintf("Wrote %s (%d cues over %d slides, %d corrected; correction model: %s)",
					outcome.Output, outcome.Cues, outcome.Slides, outcome.Changed, yesNo(cfg.Correction.Enabled))
			})
		},
	}

	cmd.Flags().StringVarP(&req.Video, "video", "v", "", "Lecture video")
	cmd.Flags().StringVarP(&req.Captions, "captions", "t", "", "Generated WebVTT captions")
	cmd.Flags().StringVar(&req.FramesDir, "frames", "", "Reuse key frames exported by an earlier extract")
	cmd.Flags().StringVarP(&folder, "input", "i", "", "Lecture folder holding the .mp4 and .vtt")
	cmd.Flags().StringVarP(&req.Output, "output", "o", "", "Corrected captions path (default next to the input captions)")
	return cmd
}
