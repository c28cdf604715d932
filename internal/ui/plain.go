package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer prints one line per progress update, suitable for CI logs
// and non-TTY output.
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	label  string
	errors []ErrorEvent
}

func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, label: cfg.Label}
}

func (r *PlainRenderer) Start(ctx context.Context) error {
	if r.label != "" {
		fmt.Fprintln(r.out, r.label)
	}
	return nil
}

func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}

	if event.Total > 0 {
		fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	} else if msg != "" {
		fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)
	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.File != "" {
		fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "Complete: %d files, %d chunks in %s", stats.Files, stats.Chunks, stats.Duration.Round(100*time.Millisecond))
	if stats.Errors > 0 || stats.Warnings > 0 {
		fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}
	fmt.Fprintln(r.out)

	if stats.Embedder.Backend != "" {
		fmt.Fprintf(r.out, "Backend: %s (%s, %d dims)\n", stats.Embedder.Backend, stats.Embedder.Model, stats.Embedder.Dimensions)
	}
}

func (r *PlainRenderer) Stop() error {
	return nil
}
