package frames

import (
	"context"
	"sync"
	"time"

	"autocaption/internal/services"
)

type fetched struct {
	frame Frame
	err   error
}

// prefetchReader decodes ahead of the consumer into a bounded buffer. The
// producer blocks once depth frames are waiting.
type prefetchReader struct {
	src     Reader
	results chan fetched
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    error

	closeOnce sync.Once
	closeErr  error
}

// Prefetch wraps r so up to depth frames are decoded ahead of Next. Closing
// the returned reader stops the producer and closes r.
func Prefetch(ctx context.Context, r Reader, depth int) Reader {
	if depth < 1 {
		depth = 1
	}
	inner, cancel := context.WithCancel(ctx)
	p := &prefetchReader{src: r, results: make(chan fetched, depth), cancel: cancel}
	p.wg.Add(1)
	go p.produce(inner)
	return p
}

func (p *prefetchReader) produce(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.results)
	for {
		frame, err := p.src.Next(ctx)
		select {
		case p.results <- fetched{frame: frame, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (p *prefetchReader) Next(ctx context.Context) (Frame, error) {
	if p.last != nil {
		return Frame{}, p.last
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, services.Cancelled("frames", err)
	}
	select {
	case <-ctx.Done():
		return Frame{}, services.Cancelled("frames", ctx.Err())
	case res, ok := <-p.results:
		if !ok {
			p.last = services.Cancelled("frames", context.Canceled)
			return Frame{}, p.last
		}
		if res.err != nil {
			p.last = res.err
		}
		return res.frame, res.err
	}
}

func (p *prefetchReader) Duration() time.Duration { return p.src.Duration() }

func (p *prefetchReader) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		// Closing the source first unblocks a producer stuck in a pipe read.
		p.closeErr = p.src.Close()
		p.wg.Wait()
	})
	return p.closeErr
}
