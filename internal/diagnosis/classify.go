// internal/diagnosis/classify.go
package diagnosis

import (
	"strings"
)

// MaxExcerptLen caps the portion of a log line carried into a Finding so
// reports stay bounded regardless of log content.
const MaxExcerptLen = 200

// GenericPatternID marks findings for candidate lines no pattern matched.
const GenericPatternID = "generic_error"

const genericRecommendation = "Review this error line for more context."

// errorIndicators gates which lines are worth matching at all. A line with
// none of these substrings produces no finding, which keeps normal
// operational chatter out of reports and skips the regex pass for most lines.
var errorIndicators = []string{
	"error", "err", "fatal", "critical", "exception",
	"failed", "failure", "denied", "refused", "timeout",
}

// Finding is one classified error signal from a subject's logs or trace.
// Findings are immutable once created.
type Finding struct {
	Line           int      `json:"line_number,omitempty"`
	PatternID      string   `json:"error_type"`
	Severity       Severity `json:"severity"`
	Excerpt        string   `json:"log_line"`
	Recommendation string   `json:"recommendation"`
}

// Classify scans text line by line against the registry and returns findings
// in line order. Classification is pure: the same text always yields the
// same findings.
func (r *Registry) Classify(text string) []Finding {
	var findings []Finding

	for lineNum, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !isCandidate(strings.ToLower(line)) {
			continue
		}

		if p := r.Match(line); p != nil {
			findings = append(findings, Finding{
				Line:           lineNum + 1,
				PatternID:      p.ID,
				Severity:       p.Severity,
				Excerpt:        truncate(trimmed, MaxExcerptLen),
				Recommendation: p.Recommendation,
			})
			continue
		}

		findings = append(findings, Finding{
			Line:           lineNum + 1,
			PatternID:      GenericPatternID,
			Severity:       SeverityLow,
			Excerpt:        truncate(trimmed, MaxExcerptLen),
			Recommendation: genericRecommendation,
		})
	}

	return findings
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func isCandidate(lower string) bool {
	for _, ind := range errorIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
