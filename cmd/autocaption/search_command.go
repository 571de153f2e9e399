package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"autocaption/internal/captions"
	"autocaption/internal/index"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <image>",
		Short: "Find indexed slides that look like an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Index.Enabled {
				return errors.New("the slide index is disabled; set index.enabled and index.dsn")
			}
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			var matches []index.Match
			err = ctx.withIndex(cmd.Context(), func(store *index.Store) error {
				var err error
				matches, err = store.Search(cmd.Context(), img, limit)
				return err
			})
			if err != nil {
				return err
			}
			return emit(cmd, ctx, matches, func() string { return renderMatches(matches) })
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum matches")
	return cmd
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

func renderMatches(matches []index.Match) string {
	if len(matches) == 0 {
		return "No similar slides indexed"
	}
	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{
			strconv.FormatFloat(m.Similarity, 'f', 3, 64),
			filepath.Base(m.Video),
			strconv.Itoa(m.Ordinal),
			captions.FormatTimestamp(m.Start),
			m.ImagePath,
		}
	}
	return renderTable([]column{
		{header: "Similarity", align: alignRight},
		{header: "Video"},
		{header: "Slide", align: alignRight},
		{header: "At"},
		{header: "Image"},
	}, rows, "")
}
