// Package telemetry wires goa.design/clue/log into the hub the way the
// teacher's runtime/agent/telemetry package wires it into an agent
// runtime: one context-scoped logger, JSON in production and a
// terminal-friendly format for interactive use.
package telemetry

import (
	"context"

	"goa.design/clue/log"

	"github.com/cloi-dev/hub/internal/config"
)

// NewContext returns a context carrying a logger configured from cfg.
// Every hub component should derive its own logging calls from a
// context built this way rather than constructing a logger directly.
func NewContext(ctx context.Context, cfg config.Logging) context.Context {
	format := log.FormatTerminal
	if cfg.Format == "json" {
		format = log.FormatJSON
	}

	ctx = log.Context(ctx, log.WithFormat(format))
	if cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	return ctx
}

// Info logs an informational event with structured fields.
func Info(ctx context.Context, msg string, kvs ...log.Fielder) {
	log.Print(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvs...)...)
}

// Debug logs a debug event, suppressed unless WithDebug was set.
func Debug(ctx context.Context, msg string, kvs ...log.Fielder) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvs...)...)
}

// Warn logs a warning event.
func Warn(ctx context.Context, msg string, kvs ...log.Fielder) {
	log.Warn(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvs...)...)
}

// Error logs err alongside structured fields.
func Error(ctx context.Context, err error, kvs ...log.Fielder) {
	log.Error(ctx, err, kvs...)
}
