package vision

import (
	"bufio"
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"autocaption/internal/services"
	"autocaption/internal/textutil"
)

// Result is the outcome for one image in DescribeAll.
type Result struct {
	Description Description
	Err         error
}

// DescribeAll describes images with at most workers concurrent requests.
// Results are in input order. Per-image inference failures are recorded in
// the matching Result; an unavailable model or cancellation stops the batch
// and is returned as the error. progress, when set, receives the number of
// images finished so far and is never called concurrently.
func DescribeAll(ctx context.Context, d Describer, images []image.Image, workers int, progress func(done int)) ([]Result, error) {
	results := make([]Result, len(images))
	if len(images) == 0 {
		return results, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	var (
		mu        sync.Mutex
		completed int
	)
	report := func() {
		if progress == nil {
			return
		}
		mu.Lock()
		completed++
		progress(completed)
		mu.Unlock()
	}

	for i, img := range images {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			desc, err := d.Describe(gctx, img)
			if err != nil {
				if errors.Is(err, services.ErrModelUnavailable) || services.IsCancellation(err) {
					return err
				}
				results[i].Err = err
			} else {
				results[i].Description = desc
			}
			report()
			return nil
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return results, services.Cancelled("vision", ctx.Err())
	}
	return results, err
}

// Row is one line of a descriptions file.
type Row struct {
	Path        string
	Description Description
}

// WriteTSV writes path<TAB>description lines. Summary and on-screen text are
// flattened onto one line.
func WriteTSV(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		text := textutil.SingleLine(row.Description.Summary)
		if onScreen := textutil.SingleLine(row.Description.OnScreenText); onScreen != "" {
			if text != "" {
				text += " "
			}
			text += "On-screen text: " + onScreen
		}
		if _, err := bw.WriteString(textutil.SingleLine(row.Path) + "\t" + text + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
