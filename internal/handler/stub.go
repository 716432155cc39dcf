package handler

import (
	"context"
	"strings"
)

// stubConfidence is the fixed confidence the stub classifier reports
// for every classification it makes.
const stubConfidence = 0.85

// Stub is the default Handler the hub falls back to when nothing else
// is registered. It classifies input by substring match into one of a
// handful of canned categories and returns canned suggestions — good
// enough to exercise the rest of the hub end to end without a real
// model behind it.
type Stub struct{}

// Handle implements Handler.
func (Stub) Handle(_ context.Context, input string) (Result, error) {
	switch {
	case containsAny(input, "TypeError", "ReferenceError"):
		return Result{
			Output:     "JavaScript runtime error",
			Confidence: stubConfidence,
			Suggestions: []string{
				"Check that the referenced variable or property is defined before use",
				"Add a guard clause for undefined/null values",
			},
		}, nil
	case containsAny(input, "ImportError", "ModuleNotFoundError"):
		return Result{
			Output:     "Python import error",
			Confidence: stubConfidence,
			Suggestions: []string{
				"Verify the module is installed in the active environment",
				"Check for a typo in the module or package name",
			},
		}, nil
	case containsAny(input, "undefined reference", "cannot find symbol"):
		return Result{
			Output:     "build error",
			Confidence: stubConfidence,
			Suggestions: []string{
				"Confirm the missing symbol's declaration is linked into the build",
				"Check for a missing include or import",
				"Verify the build target lists all required source files",
			},
		}, nil
	default:
		return Result{
			Output:     "general error",
			Confidence: stubConfidence,
			Suggestions: []string{
				"Re-run with verbose logging to capture more context",
				"Narrow down the failing input with a minimal repro",
			},
		}, nil
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
