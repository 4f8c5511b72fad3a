// Package cli implements the mixgraph command-line interface.
//
// The commands cover the life cycle of a graph document: creating one from
// a template, validating and evaluating it headlessly against a scene
// description, drawing it as a Graphviz diagram, moving it in and out of
// the graph store, and serving the store over HTTP. The CLI is built using
// cobra and logs via the charmbracelet/log library.
//
// # Commands
//
//   - eval: Evaluate frames of a graph against a scene and summarize the draws
//   - validate: Check that a document loads against the node registry
//   - dot: Draw a graph as DOT or SVG
//   - new: Write a graph with one draw layer per material
//   - classes: List the registered node and pin classes
//   - store: Push, pull, list and remove documents in the graph store
//   - serve: Run the HTTP API
//   - watch: Step a graph interactively in the terminal
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Without it
// the level comes from the config file. Evaluation, store and HTTP events
// are reported to the logger through the observability hooks.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Evaluated 60 frames (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
