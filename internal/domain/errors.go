package domain

import "errors"

// Sentinel errors for the pipeline failure taxonomy. Callers branch with
// errors.Is; everything except configuration problems is recovered
// locally and surfaced through the batch report.
var (
	// ErrInvalidInput marks empty/degenerate text or an unknown symbol.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClassifierUnavailable marks a primary classifier failure or
	// timeout. Recovered via the deterministic fallback.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrComponentMissing marks a missing upstream component output at
	// aggregation time. Fatal for that (document, instrument) pair only.
	ErrComponentMissing = errors.New("component output missing")
)
