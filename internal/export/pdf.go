package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"autocaption/internal/captions"
	"autocaption/internal/fileutil"
	"autocaption/internal/keyframe"
	"autocaption/internal/services"
	"autocaption/internal/textutil"
	"autocaption/internal/vision"
)

// PDF writes <stem>.pdf with a title page followed by one page per key frame,
// each page sized to its image in points.
type PDF struct {
	Quality int
}

// Path returns where the deck for job is written.
func (e PDF) Path(job Job) string {
	return filepath.Join(job.OutputDir, job.Stem()+".pdf")
}

// Export implements Exporter.
func (e PDF) Export(ctx context.Context, job Job, kfs []keyframe.KeyFrame) error {
	if len(kfs) == 0 {
		return nil
	}
	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	first := kfs[0].Frame.Image
	if first == nil {
		return services.Wrap(services.ErrValidation, "export", "pdf", "key frame 0 has no image", nil)
	}
	pageW := float64(first.Bounds().Dx())
	pageH := float64(first.Bounds().Dy())

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := textutil.Title(job.Stem())
	pdf.SetTitle(title, true)
	pdf.SetCreator("autocaption", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	pdf.AddPageFormat("P", fpdf.SizeType{Wd: pageW, Ht: pageH})
	pdf.SetFont("Helvetica", "B", max(pageH/18, 12))
	pdf.SetXY(0, pageH/3)
	pdf.CellFormat(pageW, pageH/9, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", max(pageH/40, 8))
	subtitle := fmt.Sprintf("%d slides", len(kfs))
	if job.Duration > 0 {
		subtitle += " from " + captions.FormatTimestamp(job.Duration)
	}
	pdf.CellFormat(pageW, pageH/20, tr(subtitle), "", 1, "C", false, 0, "")

	for ordinal, kf := range kfs {
		if err := ctx.Err(); err != nil {
			return services.Cancelled("export", err)
		}
		img := kf.Frame.Image
		if img == nil {
			return services.Wrap(services.ErrValidation, "export", "pdf", fmt.Sprintf("key frame %d has no image", ordinal), nil)
		}
		data, err := vision.EncodeJPEG(img, quality)
		if err != nil {
			return services.Wrap(services.ErrTransient, "export", "pdf encode", fmt.Sprintf("key frame %d", ordinal), err)
		}
		name := fmt.Sprintf("frame_%d", ordinal)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		w := float64(img.Bounds().Dx())
		h := float64(img.Bounds().Dy())
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return services.Wrap(services.ErrTransient, "export", "pdf", "", err)
	}

	path := e.Path(job)
	if err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return pdf.Output(w)
	}); err != nil {
		return services.Wrap(services.ErrTransient, "export", "write pdf", path, err)
	}
	job.Artifacts.setPDF(path)
	return nil
}
