package diagnostics

import (
	"context"
	"io"

	"github.com/conneroisu/jsbuild/internal/logging"
)

// Reporter is the single consumer of a Queue. It renders every diagnostic
// it receives and keeps the error and warning totals.
type Reporter struct {
	queue    *Queue
	renderer Renderer
	out      io.Writer
	logger   logging.Logger
}

// NewReporter creates a reporter draining queue into out.
func NewReporter(queue *Queue, renderer Renderer, out io.Writer, logger logging.Logger) *Reporter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Reporter{
		queue:    queue,
		renderer: renderer,
		out:      out,
		logger:   logger.WithComponent("reporter"),
	}
}

// Run consumes batches until the sentinel arrives and returns the totals.
// A diagnostic that fails to render is still counted.
func (r *Reporter) Run() Counts {
	var counts Counts
	ctx := context.Background()
	for {
		batch, ok := r.queue.Receive()
		if !ok {
			break
		}
		for _, d := range batch.Diagnostics {
			if d.File == "" {
				d.File = batch.Path
			}
			if err := r.renderer.Render(r.out, d); err != nil {
				r.logger.Warn(ctx, err, "Failed to render diagnostic", "path", batch.Path)
			}
			counts.Add(d)
		}
	}
	if late := r.queue.Late(); late > 0 {
		r.logger.Warn(ctx, nil, "Diagnostics arrived after the stream was finished", "dropped", late)
	}
	return counts
}

// Start runs the reporter on its own goroutine. The returned channel yields
// the final counts once the sentinel has been consumed.
func (r *Reporter) Start() <-chan Counts {
	done := make(chan Counts, 1)
	go func() {
		done <- r.Run()
	}()
	return done
}
