package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autocaption/internal/preflight"
)

type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, models, and the slide index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			views := make([]checkView, len(results))
			rows := make([][]string, len(results))
			for i, r := range results {
				views[i] = checkView{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows[i] = []string{r.Name, status, r.Detail}
			}
			if err := emit(cmd, ctx, views, func() string {
				return renderTable([]column{{header: "Check"}, {header: "Status"}, {header: "Detail"}}, rows, "")
			}); err != nil {
				return err
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
