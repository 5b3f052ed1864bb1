// Package datapull implements the data pull orchestrator: a registry of
// source handlers, a data-driven routing table, and a fallback controller
// that tries candidate sources in priority order until one returns data.
package datapull

import "fmt"

// Record is one normalized data point: field name to value. Handlers map
// provider-specific payloads into this shape before returning.
type Record map[string]any

// Result is the single object that crosses back out of the orchestrator.
//
// Invariants: Success implies DataPointsCount == len(Data); !Success implies
// Data is empty and Message explains why. A handler reporting an expected
// empty condition (no records, provider unavailable, missing credential)
// returns a Result, never a Go error; errors are reserved for conditions no
// fallback can repair.
type Result struct {
	Success         bool     `json:"success"`
	Data            []Record `json:"data"`
	Message         string   `json:"message"`
	DataPointsCount int      `json:"data_points_count"`
	SourceUsed      string   `json:"source_used"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Records builds a successful result carrying the given records.
func Records(source string, data []Record, message string) Result {
	return Result{
		Success:         true,
		Data:            data,
		Message:         message,
		DataPointsCount: len(data),
		SourceUsed:      source,
	}
}

// Unavailable builds a failed result for a source that cannot currently
// serve the request (transient provider failure or missing credential).
// The reason is recorded both as the message and as a warning so it
// survives into the final result even when another source wins.
func Unavailable(source, reason string) Result {
	return Result{
		Success:    false,
		Message:    fmt.Sprintf("%s unavailable: %s", source, reason),
		SourceUsed: source,
		Warnings:   []string{fmt.Sprintf("%s unavailable: %s", source, reason)},
	}
}

// NoData builds a successful result with zero records. Zero matching
// records is not a failure; it triggers fallback per policy.
func NoData(source, message string) Result {
	return Result{
		Success:    true,
		Message:    message,
		SourceUsed: source,
	}
}
