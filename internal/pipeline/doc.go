// Package pipeline runs the GP practice summary end to end: it loads the
// configured dataset, applies the transformation steps in order and
// summarizes the derived columns. Each run carries a run id in its context
// and, when telemetry is enabled, records a span per phase and the
// rows_loaded, rows_dropped, step_duration, step_errors and pipeline_runs
// metrics.
//
// The derived table is returned to the caller and not written anywhere.
package pipeline
