package main

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"autocaption/internal/catalog"
)

type runView struct {
	RunID     string  `json:"run_id"`
	Video     string  `json:"video"`
	Status    string  `json:"status"`
	Frames    int     `json:"frames"`
	KeyFrames int     `json:"keyframes"`
	Threshold float64 `json:"threshold"`
	Metric    string  `json:"metric"`
	StartedAt string  `json:"started_at"`
	Elapsed   float64 `json:"elapsed_seconds,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent extraction runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runs []catalog.Run
			err := ctx.withCatalog(func(store *catalog.Store) error {
				var err error
				runs, err = store.ListRuns(cmd.Context(), limit)
				return err
			})
			if err != nil {
				return err
			}
			views := make([]runView, len(runs))
			for i, run := range runs {
				views[i] = runView{
					RunID:     run.RunID,
					Video:     run.VideoPath,
					Status:    string(run.Status),
					Frames:    run.Frames,
					KeyFrames: run.KeyFrames,
					Threshold: run.Threshold,
					Metric:    run.Metric,
					StartedAt: run.StartedAt.Format(time.RFC3339),
					Elapsed:   run.Elapsed().Seconds(),
					Error:     run.ErrorMessage,
				}
			}
			return emit(cmd, ctx, views, func() string { return renderHistory(views) })
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show")
	return cmd
}

func renderHistory(views []runView) string {
	if len(views) == 0 {
		return "No runs recorded"
	}
	rows := make([][]string, len(views))
	for i, v := range views {
		id := v.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		rows[i] = []string{
			id,
			filepath.Base(v.Video),
			v.Status,
			strconv.Itoa(v.Frames),
			strconv.Itoa(v.KeyFrames),
			strconv.FormatFloat(v.Threshold, 'f', 2, 64) + " " + v.Metric,
			v.StartedAt,
			formatSeconds(v.Elapsed),
		}
	}
	return renderTable([]column{
		{header: "Run"},
		{header: "Video"},
		{header: "Status"},
		{header: "Frames", align: alignRight},
		{header: "Key frames", align: alignRight},
		{header: "Threshold"},
		{header: "Started"},
		{header: "Took", align: alignRight},
	}, rows, "")
}
