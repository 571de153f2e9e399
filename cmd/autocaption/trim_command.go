package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autocaption/internal/media/clip"
)

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var end time.Duration
	var start time.Duration
	var reencode bool

	cmd := &cobra.Command{
		Use:   "trim <input> <output>",
		Short: "Cut a short clip from a video for testing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if end <= 0 {
				return errors.New("--end must be a positive duration such as 60s")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := clip.Options{Binary: cfg.FFmpegBinary(), Start: start, Reencode: reencode}
			if err := clip.Trim(cmd.Context(), args[0], args[1], end, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s from %s)\n", args[1], end, start)
			return nil
		},
	}

	cmd.Flags().DurationVar(&end, "end", 0, "Clip length, for example 60s or 2m")
	cmd.Flags().DurationVar(&start, "start", 0, "Offset into the input")
	cmd.Flags().BoolVar(&reencode, "reencode", false, "Re-encode instead of stream copy for frame-accurate cuts")
	return cmd
}
