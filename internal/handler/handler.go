// Package handler defines the single extension point through which
// the hub hands task work out to whatever actually does it (a local
// LLM invocation, a script, another process). The hub never calls a
// model itself; it only ever calls a Handler.
package handler

import "context"

// Result is what a Handler returns for one piece of work.
type Result struct {
	// Output is the handler's response payload.
	Output string `json:"output"`
	// Confidence is the handler's self-reported confidence in Output,
	// in [0, 1].
	Confidence float64 `json:"confidence"`
	// Suggestions are optional follow-up actions the caller may take.
	Suggestions []string `json:"suggestions,omitempty"`
}

// Handler is the narrow extension point the task engine calls into
// for every participant's unit of work. Implementations are supplied
// by whatever embeds the hub; registering none at all falls back to
// the stub classifier in this package.
type Handler interface {
	Handle(ctx context.Context, input string) (Result, error)
}

// Func adapts a plain function to the Handler interface.
type Func func(ctx context.Context, input string) (Result, error)

// Handle implements Handler.
func (f Func) Handle(ctx context.Context, input string) (Result, error) { return f(ctx, input) }
