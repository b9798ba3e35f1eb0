// internal/diagnosis/trace.go
package diagnosis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Trace is a nested record of one execution: an optional top-level error
// plus per-step run attempts in execution order. Step order matters; the
// first error-bearing step encountered is reported as the failing one.
type Trace struct {
	Error *TraceError
	Steps []Step
}

// TraceError is the coarse top-level error of a trace.
type TraceError struct {
	StepName    string
	StepType    string
	Message     string
	Description string
	Stack       string
}

// Step is one named step with its run attempts in order.
type Step struct {
	Name string
	Runs []Run
}

// Run is a single attempt of a step.
type Run struct {
	Error *RunError
	Input json.RawMessage
}

// RunError is the error recorded on one run attempt.
type RunError struct {
	Name    string
	Message string
	Stack   string
}

const unknown = "Unknown"

// Detail is the structured diagnosis of a failed trace.
type Detail struct {
	FailedStep   string          `json:"failed_node"`
	StepType     string          `json:"node_type"`
	ErrorType    string          `json:"error_type"`
	ErrorMessage string          `json:"error_message"`
	StackTrace   string          `json:"stack_trace,omitempty"`
	Input        json.RawMessage `json:"input_data,omitempty"`
}

// Diagnose walks a trace and extracts the failing step. It is a best-effort
// extractor: missing or malformed fields fall back to Unknown sentinels and
// never produce an error.
func Diagnose(trace Trace) Detail {
	detail := Detail{
		FailedStep:   unknown,
		StepType:     unknown,
		ErrorType:    unknown,
		ErrorMessage: "No error details available",
	}

	// Coarse pass: the top-level error names the step but attempt-level
	// records below are finer grained and take precedence.
	if top := trace.Error; top != nil {
		if top.StepName != "" {
			detail.FailedStep = top.StepName
		}
		if top.StepType != "" {
			detail.StepType = top.StepType
		}
		if top.Message != "" {
			detail.ErrorMessage = top.Message
		}
		if top.Description != "" {
			detail.ErrorType = top.Description
		}
		detail.StackTrace = top.Stack
	}

	for _, step := range trace.Steps {
		for _, run := range step.Runs {
			if run.Error == nil {
				continue
			}
			detail.FailedStep = step.Name
			detail.ErrorMessage = run.Error.Message
			if run.Error.Name != "" {
				detail.ErrorType = run.Error.Name
			} else {
				detail.ErrorType = "Error"
			}
			detail.StackTrace = run.Error.Stack
			if len(run.Input) > 0 {
				detail.Input = run.Input
			}
			// First failing step is authoritative.
			return detail
		}
	}

	return detail
}

// Recommend turns a diagnosis into an actionable hint by matching the
// error message against a small ordered set of substring rules.
func Recommend(d Detail) string {
	message := strings.ToLower(d.ErrorMessage)
	step := d.FailedStep

	switch {
	case strings.Contains(message, "404") || strings.Contains(message, "not found"):
		return fmt.Sprintf("The endpoint or resource in step '%s' returned 404. Check the URL path or resource ID.", step)
	case strings.Contains(message, "401") || strings.Contains(message, "unauthorized"):
		return fmt.Sprintf("Authentication failed in step '%s'. Verify API credentials or tokens.", step)
	case strings.Contains(message, "timeout"):
		return fmt.Sprintf("Step '%s' timed out. Consider increasing timeout or checking endpoint availability.", step)
	case strings.Contains(message, "json") || strings.Contains(message, "parse"):
		return fmt.Sprintf("Step '%s' received invalid JSON. Check the data format from the previous step.", step)
	case strings.Contains(message, "undefined") || strings.Contains(message, "property"):
		return fmt.Sprintf("Step '%s' tried to access a missing property. Check input data structure.", step)
	}
	return fmt.Sprintf("Review the error in step '%s' and verify its configuration and input data.", step)
}

// TraceSeverity grades a trace diagnosis for aggregation. A failed execution
// is actionable on its own, so the floor is high; crash and memory class
// messages escalate to critical.
func TraceSeverity(d Detail) Severity {
	message := strings.ToLower(d.ErrorMessage)
	if strings.Contains(message, "out of memory") ||
		strings.Contains(message, "oom") ||
		strings.Contains(message, "fatal") ||
		strings.Contains(message, "panic") {
		return SeverityCritical
	}
	return SeverityHigh
}

// TraceFinding converts a diagnosis into a single synthetic finding so trace
// subjects aggregate through the same report path as log subjects.
func TraceFinding(d Detail) Finding {
	return Finding{
		PatternID:      d.ErrorType,
		Severity:       TraceSeverity(d),
		Excerpt:        truncate(d.ErrorMessage, MaxExcerptLen),
		Recommendation: Recommend(d),
	}
}
