package service

import "errors"

var (
	// ErrMetricsNotReady is returned when hydration is requested before
	// the global metric set has loaded.
	ErrMetricsNotReady = errors.New("metric set not loaded yet")
	// ErrNoEvaluator is returned when an operation needs an evaluator id
	// but the session has none.
	ErrNoEvaluator = errors.New("no evaluator id in session")
	// ErrCaseNotScored is returned when a submission is attempted for a
	// case without a score matrix entry.
	ErrCaseNotScored = errors.New("case has no recorded scores")
)
