package types

import "errors"

// Error taxonomy for the scheduling pipeline. Callers are expected to test
// with errors.Is since errors are usually wrapped with additional context.
var (
	// ErrInvalidInput indicates a malformed forecast or battery spec. This is
	// fatal to the session and must be reported, never silently repaired.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInfeasible indicates no schedule satisfies the accumulated
	// constraints. Recoverable by relaxing (usually dropping) the most
	// recently added constraint.
	ErrInfeasible = errors.New("no feasible schedule")

	// ErrNotUnderstood indicates the extractor could not resolve a device or
	// time window from an utterance. Recoverable, the user should rephrase.
	ErrNotUnderstood = errors.New("statement not understood")

	// ErrExplanationTimeout indicates the language model did not answer in
	// time. The composer falls back to a templated explanation, so this is
	// never surfaced to the user as a hard failure.
	ErrExplanationTimeout = errors.New("explanation timed out")
)
