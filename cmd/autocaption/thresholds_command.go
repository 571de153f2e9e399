package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"autocaption/internal/workflow"
)

func newThresholdsCommand(ctx *commandContext) *cobra.Command {
	var values []float64
	var write bool

	cmd := &cobra.Command{
		Use:   "thresholds <video>",
		Short: "Compare key-frame counts across similarity thresholds",
		Long: "Thresholds decodes the video once and segments every frame at each\n" +
			"threshold in the same pass, so picking a value for a lecture series\n" +
			"costs one decode. Counts only grow with the threshold when\n" +
			"rolling_reference is enabled.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			for _, v := range values {
				if math.IsNaN(v) || v < 0 || v > 1 {
					return fmt.Errorf("threshold %v must be between 0 and 1", v)
				}
			}
			if err := requireMedia(cfg); err != nil {
				return err
			}

			var report workflow.SweepReport
			err = ctx.withManager(cmd, cfg, func(mgr *workflow.Manager) error {
				var err error
				report, err = mgr.SweepThresholds(cmd.Context(), args[0], values, write)
				return err
			})
			if err != nil {
				return err
			}
			return emit(cmd, ctx, report, func() string { return renderSweep(report, cfg.Extraction.SimilarityMetric) })
		},
	}

	cmd.Flags().Float64SliceVar(&values, "values", nil, "Comma separated thresholds (default 0.80,0.85,0.90,0.93,0.95,0.97,0.99)")
	cmd.Flags().BoolVar(&write, "write", false, "Export each threshold's key frames to <output_dir>/<video>/threshold_<value>")
	return cmd
}

func renderSweep(report workflow.SweepReport, metric string) string {
	columns := []column{
		{header: "Threshold", align: alignRight},
		{header: "Key frames", align: alignRight},
	}
	var showDir bool
	for _, row := range report.Rows {
		showDir = showDir || row.Dir != ""
	}
	if showDir {
		columns = append(columns, column{header: "Frames written to"})
	}
	rows := make([][]string, len(report.Rows))
	for i, row := range report.Rows {
		rows[i] = []string{strconv.FormatFloat(row.Threshold, 'f', -1, 64), strconv.Itoa(row.KeyFrames)}
		if showDir {
			rows[i] = append(rows[i], row.Dir)
		}
	}
	footer := fmt.Sprintf("%d sampled frames, metric %s", report.Frames, strings.ToLower(metric))
	return renderTable(columns, rows, footer)
}
