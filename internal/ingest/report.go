package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// Report is the single source of truth for what happened during one
// import call. It is always well-formed: every failure path funnels
// into Errors/Warnings instead of escaping the orchestrator.
type Report struct {
	DetectedType string         `json:"detectedType,omitempty"`
	Counts       map[string]int `json:"counts"`
	Errors       []string       `json:"errors,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Deduped      bool           `json:"deduped"`
	DurationMs   int64          `json:"durationMs"`
}

func newReport() *Report {
	return &Report{Counts: map[string]int{}}
}

// AddError records an error message.
func (r *Report) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *Report) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarnf records a formatted warning.
func (r *Report) AddWarnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable one-liner for logs.
func (r *Report) Summary() string {
	parts := make([]string, 0, len(r.Counts)+3)
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, r.Counts[k]))
	}
	if r.Deduped {
		parts = append(parts, "deduped=true")
	}
	parts = append(parts, fmt.Sprintf("errors=%d warnings=%d duration_ms=%d",
		len(r.Errors), len(r.Warnings), r.DurationMs))
	return strings.Join(parts, " ")
}
