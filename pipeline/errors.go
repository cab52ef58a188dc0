package pipeline

import "errors"

// Error taxonomy of the pipeline. Insufficient indicator history is NOT in
// this list on purpose: it resolves to nil indicator fields inside the
// analysis package and never surfaces as an error.
var (
	// ErrDataUnavailable marks a price/fundamental source failure for one
	// stock. Retried per stock up to the configured count before the stock
	// is recorded as skipped.
	ErrDataUnavailable = errors.New("data source unavailable")

	// ErrInvalidConfiguration is fatal: the orchestrator refuses to start
	// with negative thresholds, zero capital and the like.
	ErrInvalidConfiguration = errors.New("invalid pipeline configuration")

	// ErrAlreadyRunning rejects a trigger while a run is in flight. The
	// rejected trigger is surfaced to the caller; the pipeline state does
	// not change.
	ErrAlreadyRunning = errors.New("pipeline run already in progress")

	// ErrRunTimeout marks a run that exceeded the configured deadline.
	ErrRunTimeout = errors.New("pipeline run timed out")

	// ErrRunCancelled marks a cooperatively cancelled run.
	ErrRunCancelled = errors.New("pipeline run cancelled")

	// ErrNotRunning rejects a cancellation when no run is in flight.
	ErrNotRunning = errors.New("no pipeline run in progress")
)
