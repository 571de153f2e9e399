package workflow

import (
	"context"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"

	"autocaption/internal/discovery"
	"autocaption/internal/logging"
	"autocaption/internal/services"
	"autocaption/internal/vision"
)

// DescribeFrames describes every key-frame image in dir. Images whose
// description fails are logged and left out of the returned rows.
func (m *Manager) DescribeFrames(ctx context.Context, dir string) ([]vision.Row, error) {
	ctx = services.WithStage(ctx, "describe")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow"))
	if m.describer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "describe", "describer", "vision is disabled; set vision.enabled = true", nil)
	}
	paths, err := discovery.FindImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "describe", "find frames", "no .jpg frames in "+dir, nil)
	}
	images, err := loadImages(paths)
	if err != nil {
		return nil, err
	}

	results, err := m.describeImages(ctx, images)
	if err != nil {
		return nil, err
	}
	rows := make([]vision.Row, 0, len(paths))
	for i, res := range results {
		if res.Err != nil {
			logging.WarnWithContext(logger, "frame description failed", "describe_frame_failed",
				logging.String("frame", filepath.Base(paths[i])),
				logging.Error(res.Err),
				logging.String(logging.FieldImpact, "frame omitted from descriptions"),
			)
			continue
		}
		rows = append(rows, vision.Row{Path: paths[i], Description: res.Description})
	}
	logger.Info("frames described",
		logging.Int("frames", len(paths)),
		logging.Int("described", len(rows)),
	)
	return rows, nil
}

func (m *Manager) describeImages(ctx context.Context, images []image.Image) ([]vision.Result, error) {
	total := len(images)
	return vision.DescribeAll(ctx, m.describer, images, m.cfg.Vision.Workers, func(done int) {
		m.report("describe", done, total)
	})
}

func loadImages(paths []string) ([]image.Image, error) {
	images := make([]image.Image, len(paths))
	for i, path := range paths {
		img, err := decodeImage(path)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	return images, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "open image", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "decode image", path, err)
	}
	return img, nil
}
