// internal/diagnosis/report.go
package diagnosis

import "fmt"

// Subject kinds. Container-state checks (exit codes, OOM kills, restart
// counts) only make sense for containers.
const (
	KindContainer = "container"
	KindExecution = "execution"
)

// Subject is a read-only snapshot of the thing being diagnosed, supplied by
// a collaborator (container runtime, workflow engine).
type Subject struct {
	ID           string `json:"id,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Name         string `json:"name"`
	Image        string `json:"image,omitempty"`
	Status       string `json:"status"`
	Health       string `json:"health,omitempty"`
	ExitCode     int    `json:"exit_code"`
	OOMKilled    bool   `json:"oom_killed"`
	RestartCount int    `json:"restart_count"`
}

// RawExcerptLen is the tail window of raw text carried on a report. The most
// recent output is the most relevant context for a failure.
const RawExcerptLen = 2000

// Per-bucket caps keep one noisy subject from flooding a report.
const (
	maxCriticalFindings = 5
	maxHighFindings     = 5
	maxMediumFindings   = 3
	maxLowFindings      = 2
)

// Analysis carries the per-severity counts for a report. Counts reflect all
// findings, not just the capped samples included in Errors.
type Analysis struct {
	Total    int `json:"total_errors_found"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Buckets holds the capped finding samples per severity.
type Buckets struct {
	Critical []Finding `json:"critical"`
	High     []Finding `json:"high"`
	Medium   []Finding `json:"medium"`
	Low      []Finding `json:"low"`
}

// Report is a single-subject diagnosis.
type Report struct {
	Subject       Subject  `json:"container"`
	Analysis      Analysis `json:"analysis"`
	PriorityIssue string   `json:"priority_issue,omitempty"`
	Errors        Buckets  `json:"errors"`
	RawExcerpt    string   `json:"raw_log_sample"`
}

// BuildReport buckets findings by severity, selects the priority issue and
// attaches the tail of the raw input.
//
// The priority chain prefers metadata-derived facts over pattern matches:
// an OOM kill or a nonzero exit code is authoritative, while a regex hit on
// a log line is heuristic, so metadata outranks even critical findings.
func BuildReport(subject Subject, findings []Finding, raw string) Report {
	var buckets Buckets
	var analysis Analysis

	analysis.Total = len(findings)
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			analysis.Critical++
			buckets.Critical = append(buckets.Critical, f)
		case SeverityHigh:
			analysis.High++
			buckets.High = append(buckets.High, f)
		case SeverityMedium:
			analysis.Medium++
			buckets.Medium = append(buckets.Medium, f)
		default:
			analysis.Low++
			buckets.Low = append(buckets.Low, f)
		}
	}

	buckets.Critical = capFindings(buckets.Critical, maxCriticalFindings)
	buckets.High = capFindings(buckets.High, maxHighFindings)
	buckets.Medium = capFindings(buckets.Medium, maxMediumFindings)
	buckets.Low = capFindings(buckets.Low, maxLowFindings)

	return Report{
		Subject:       subject,
		Analysis:      analysis,
		PriorityIssue: priorityIssue(subject, buckets),
		Errors:        buckets,
		RawExcerpt:    tailExcerpt(raw, RawExcerptLen),
	}
}

// MaxSeverity returns the highest severity present and whether any finding
// was counted at all.
func (a Analysis) MaxSeverity() (Severity, bool) {
	switch {
	case a.Critical > 0:
		return SeverityCritical, true
	case a.High > 0:
		return SeverityHigh, true
	case a.Medium > 0:
		return SeverityMedium, true
	case a.Low > 0:
		return SeverityLow, true
	}
	return SeverityLow, false
}

func priorityIssue(subject Subject, buckets Buckets) string {
	switch {
	case subject.OOMKilled:
		return "Container was killed due to Out of Memory. Consider increasing memory limits."
	case subject.ExitCode != 0:
		return fmt.Sprintf("Container exited with error code %d.", subject.ExitCode)
	case len(buckets.Critical) > 0:
		return buckets.Critical[0].Recommendation
	case len(buckets.High) > 0:
		return buckets.High[0].Recommendation
	case subject.Kind != KindExecution && subject.Status != "" && subject.Status != "running":
		return fmt.Sprintf("Container is not running (status: %s).", subject.Status)
	}
	return ""
}

func capFindings(fs []Finding, max int) []Finding {
	if len(fs) > max {
		return fs[:max]
	}
	return fs
}

func tailExcerpt(raw string, max int) string {
	if len(raw) > max {
		return raw[len(raw)-max:]
	}
	return raw
}
