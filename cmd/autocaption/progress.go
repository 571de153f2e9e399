package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

var stageLabels = map[string]string{
	"extract":    "Extracting frames",
	"thresholds": "Scoring frames",
	"describe":   "Describing slides",
}

// progressReporter draws one bar per workflow stage. It stays silent unless
// the writer is a terminal.
type progressReporter struct {
	w       io.Writer
	enabled bool

	mu    sync.Mutex
	stage string
	bar   *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer, allowed bool) *progressReporter {
	return &progressReporter{w: w, enabled: allowed && isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Update matches workflow.ProgressFunc.
func (p *progressReporter) Update(stage string, done, total int) {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || p.stage != stage {
		p.finishLocked()
		p.stage = stage
		p.bar = p.newBar(stage, total)
	}
	_ = p.bar.Set(done)
}

func (p *progressReporter) newBar(stage string, total int) *progressbar.ProgressBar {
	label, ok := stageLabels[stage]
	if !ok {
		label = stage
	}
	limit := total
	if limit <= 0 {
		limit = -1
	}
	return progressbar.NewOptions(limit,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.w) }),
	)
}

// Finish closes the active bar.
func (p *progressReporter) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressReporter) finishLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
