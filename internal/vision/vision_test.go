package vision_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"autocaption/internal/services"
	"autocaption/internal/services/llm"
	"autocaption/internal/testsupport"
	"autocaption/internal/vision"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

type fakeVision struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	lastURL string
}

func (f *fakeVision) CompleteVisionJSON(_ context.Context, _, _, imageURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURL = imageURL
	return f.reply, f.err
}

func TestFitPreservesAspect(t *testing.T) {
	img := solid(1920, 1080, color.RGBA{10, 20, 30, 255})
	fitted := vision.Fit(img, 1280)
	if got := fitted.Bounds().Size(); got != (image.Point{1280, 720}) {
		t.Fatalf("unexpected size %v", got)
	}
	small := solid(100, 50, color.RGBA{A: 255})
	if vision.Fit(small, 1280) != image.Image(small) {
		t.Fatal("expected image within bounds to be returned unchanged")
	}
}

func TestLLMDescriberSendsDownscaledJPEG(t *testing.T) {
	client := &fakeVision{reply: "```json\n{\"summary\":\"A slide  about\\ngraphs\",\"on_screen_text\":\"Graph Theory\"}\n```"}
	d := &vision.LLMDescriber{Client: client, MaxSide: 320}
	desc, err := d.Describe(context.Background(), solid(1280, 720, color.RGBA{200, 200, 200, 255}))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.Summary != "A slide about graphs" || desc.OnScreenText != "Graph Theory" {
		t.Fatalf("unexpected description %+v", desc)
	}
	encoded, ok := strings.CutPrefix(client.lastURL, "data:image/jpeg;base64,")
	if !ok {
		t.Fatalf("expected jpeg data url, got %.40s", client.lastURL)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 180 {
		t.Fatalf("expected 320x180 upload, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestLLMDescriberErrorMapping(t *testing.T) {
	img := solid(64, 64, color.RGBA{A: 255})
	tests := []struct {
		name   string
		client *fakeVision
		want   error
	}{
		{"service unavailable", &fakeVision{err: fmt.Errorf("llm vision: %w", &llm.StatusError{StatusCode: http.StatusServiceUnavailable})}, services.ErrModelUnavailable},
		{"missing key", &fakeVision{err: fmt.Errorf("llm vision: %w", llm.ErrAPIKeyRequired)}, services.ErrModelUnavailable},
		{"bad request", &fakeVision{err: &llm.StatusError{StatusCode: http.StatusBadRequest}}, services.ErrInference},
		{"malformed reply", &fakeVision{reply: "I cannot help with that"}, services.ErrInference},
		{"empty reply", &fakeVision{reply: `{"summary":"","on_screen_text":" "}`}, services.ErrInference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&vision.LLMDescriber{Client: tt.client}).Describe(context.Background(), img)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := (&vision.LLMDescriber{}).Describe(context.Background(), img); !errors.Is(err, services.ErrModelUnavailable) {
		t.Fatalf("expected missing client to be unavailable, got %v", err)
	}
}

type countingDescriber struct {
	calls atomic.Int32
}

func (c *countingDescriber) Describe(_ context.Context, img image.Image) (vision.Description, error) {
	c.calls.Add(1)
	r, _, _, _ := img.At(0, 0).RGBA()
	return vision.Description{Summary: fmt.Sprintf("red=%d", r>>8)}, nil
}

func TestCachedDescribesIdenticalSlidesOnce(t *testing.T) {
	store := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))

	inner := &countingDescriber{}
	cached := &vision.Cached{Inner: inner, Cache: store, Model: "demo"}
	ctx := context.Background()

	red := solid(32, 32, color.RGBA{200, 0, 0, 255})
	for i := 0; i < 3; i++ {
		desc, err := cached.Describe(ctx, solid(32, 32, color.RGBA{200, 0, 0, 255}))
		if err != nil {
			t.Fatalf("Describe: %v", err)
		}
		if desc.Summary != "red=200" {
			t.Fatalf("unexpected summary %q", desc.Summary)
		}
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected one inner call, got %d", inner.calls.Load())
	}
	if _, err := cached.Describe(ctx, solid(32, 32, color.RGBA{10, 0, 0, 255})); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	other := &vision.Cached{Inner: inner, Cache: store, Model: "other-model"}
	if _, err := other.Describe(ctx, red); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if inner.calls.Load() != 3 {
		t.Fatalf("expected new image and new model to miss the cache, got %d calls", inner.calls.Load())
	}
}

func TestImageKeyIgnoresOrigin(t *testing.T) {
	base := solid(40, 40, color.RGBA{1, 2, 3, 255})
	sub := base.SubImage(image.Rect(10, 10, 30, 30))
	if vision.ImageKey(sub) != vision.ImageKey(solid(20, 20, color.RGBA{1, 2, 3, 255})) {
		t.Fatal("expected equal pixels to hash equally")
	}
	if vision.ImageKey(base) == vision.ImageKey(solid(20, 80, color.RGBA{1, 2, 3, 255})) {
		t.Fatal("expected dimensions to change the key")
	}
}

type scriptedDescriber struct {
	fail map[int]error
}

func (s scriptedDescriber) Describe(ctx context.Context, img image.Image) (vision.Description, error) {
	idx := img.Bounds().Dx()
	// Later images finish first.
	time.Sleep(time.Duration(10-idx) * time.Millisecond)
	if err := s.fail[idx]; err != nil {
		return vision.Description{}, err
	}
	if err := ctx.Err(); err != nil {
		return vision.Description{}, services.Cancelled("test", err)
	}
	return vision.Description{Summary: fmt.Sprintf("slide %d", idx)}, nil
}

func TestDescribeAllKeepsOrder(t *testing.T) {
	images := make([]image.Image, 6)
	for i := range images {
		images[i] = solid(i+1, 1, color.RGBA{A: 255})
	}
	var seen []int
	d := scriptedDescriber{fail: map[int]error{3: services.Wrap(services.ErrInference, "test", "", "", nil)}}
	results, err := vision.DescribeAll(context.Background(), d, images, 3, func(done int) { seen = append(seen, done) })
	if err != nil {
		t.Fatalf("DescribeAll: %v", err)
	}
	for i, res := range results {
		if i+1 == 3 {
			if !errors.Is(res.Err, services.ErrInference) {
				t.Fatalf("expected inference failure for image 3, got %+v", res)
			}
			continue
		}
		if res.Err != nil || res.Description.Summary != fmt.Sprintf("slide %d", i+1) {
			t.Fatalf("result %d out of order: %+v", i, res)
		}
	}
	if len(seen) != len(images) || seen[len(seen)-1] != len(images) {
		t.Fatalf("unexpected progress %v", seen)
	}
}

func TestDescribeAllStopsWhenModelUnavailable(t *testing.T) {
	images := []image.Image{solid(1, 1, color.RGBA{}), solid(2, 1, color.RGBA{})}
	d := scriptedDescriber{fail: map[int]error{
		1: services.Wrap(services.ErrModelUnavailable, "test", "", "", nil),
		2: services.Wrap(services.ErrModelUnavailable, "test", "", "", nil),
	}}
	_, err := vision.DescribeAll(context.Background(), d, images, 1, nil)
	if !errors.Is(err, services.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestStaticDescriber(t *testing.T) {
	want := vision.Description{Summary: "s", OnScreenText: "t"}
	got, err := vision.Static{Description: want}.Describe(context.Background(), nil)
	if err != nil || got != want {
		t.Fatalf("unexpected %+v %v", got, err)
	}
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []vision.Row{
		{Path: "frames/a.jpg", Description: vision.Description{Summary: "Title\tslide\nwith lines", OnScreenText: "Intro"}},
		{Path: "frames/b.jpg", Description: vision.Description{Summary: "Blank"}},
	}
	if err := vision.WriteTSV(&buf, rows); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}
	want := "frames/a.jpg\tTitle slide with lines On-screen text: Intro\nframes/b.jpg\tBlank\n"
	if buf.String() != want {
		t.Fatalf("unexpected TSV:\n%q\nwant\n%q", buf.String(), want)
	}
}
