package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"autocaption/internal/config"
	"autocaption/internal/fileutil"
	"autocaption/internal/vision"
	"autocaption/internal/workflow"
)

// descriptionsName is the default describe output inside the frames folder.
const descriptionsName = "descriptions.txt"

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	var framesDir string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe exported key frames with the vision model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if framesDir == "" {
				return errors.New("--input is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := config.ExpandPath(framesDir)
			if err != nil {
				return fmt.Errorf("resolve frames path: %w", err)
			}
			out := outputPath
			if out == "" {
				out = filepath.Join(dir, descriptionsName)
			}

			var rows []vision.Row
			err = ctx.withManager(cmd, cfg, func(mgr *workflow.Manager) error {
				var err error
				rows, err = mgr.DescribeFrames(cmd.Context(), dir)
				return err
			})
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := vision.WriteTSV(&buf, rows); err != nil {
				return fmt.Errorf("render descriptions: %w", err)
			}
			if err := fileutil.WriteFileAtomic(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write descriptions: %w", err)
			}
			result := map[string]any{"output": out, "described": len(rows)}
			return emit(cmd, ctx, result, func() string {
				return fmt.Sprintf("Described %d frames into %s", len(rows), out)
			})
		},
	}

	cmd.Flags().StringVarP(&framesDir, "input", "i", "", "Folder of exported key frames")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Descriptions file (default <input>/descriptions.txt)")
	return cmd
}
