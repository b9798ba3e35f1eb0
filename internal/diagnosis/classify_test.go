// internal/diagnosis/classify_test.go
package diagnosis

import (
	"reflect"
	"strings"
	"testing"
)

func TestClassifySkipsBenignText(t *testing.T) {
	reg := DefaultRegistry()

	text := "2024-01-01 INFO: server listening on :8080\n" +
		"2024-01-01 INFO: connected to database\n" +
		"\n" +
		"2024-01-01 DEBUG: heartbeat ok\n"

	if findings := reg.Classify(text); len(findings) != 0 {
		t.Errorf("Classify(benign text) = %d findings, want 0", len(findings))
	}
}

func TestClassifyConnectionRefused(t *testing.T) {
	reg := DefaultRegistry()

	text := "2024-01-01 ERROR: connection refused to db:5432\n" +
		"2024-01-01 INFO: retry scheduled\n"

	findings := reg.Classify(text)
	if len(findings) != 1 {
		t.Fatalf("Classify = %d findings, want 1", len(findings))
	}

	f := findings[0]
	if f.Line != 1 {
		t.Errorf("Line = %d, want 1", f.Line)
	}
	if f.PatternID != "connection_refused" {
		t.Errorf("PatternID = %s, want connection_refused", f.PatternID)
	}
	if f.Severity != SeverityHigh {
		t.Errorf("Severity = %s, want high", f.Severity)
	}
	if f.Recommendation == "" {
		t.Error("Recommendation is empty")
	}
}

func TestClassifyCriticalMemoryLines(t *testing.T) {
	reg := DefaultRegistry()

	lines := []string{
		"ERROR: out of memory",
		"fatal: OOM killer terminated process 1234",
		"error: process killed",
	}

	for _, line := range lines {
		findings := reg.Classify(line)
		if len(findings) != 1 {
			t.Errorf("Classify(%q) = %d findings, want 1", line, len(findings))
			continue
		}
		if findings[0].Severity != SeverityCritical {
			t.Errorf("Classify(%q).Severity = %s, want critical", line, findings[0].Severity)
		}
	}
}

func TestClassifyGenericFallback(t *testing.T) {
	reg := DefaultRegistry()

	// Candidate line (contains "error") that no pattern matches.
	findings := reg.Classify("ERROR: something odd happened")
	if len(findings) != 1 {
		t.Fatalf("Classify = %d findings, want 1", len(findings))
	}

	f := findings[0]
	if f.PatternID != GenericPatternID {
		t.Errorf("PatternID = %s, want %s", f.PatternID, GenericPatternID)
	}
	if f.Severity != SeverityLow {
		t.Errorf("Severity = %s, want low", f.Severity)
	}
}

func TestClassifyLineNumbersAndOrder(t *testing.T) {
	reg := DefaultRegistry()

	text := "ok\nERROR: connection refused\nok\nERROR: permission denied\n"

	findings := reg.Classify(text)
	if len(findings) != 2 {
		t.Fatalf("Classify = %d findings, want 2", len(findings))
	}
	if findings[0].Line != 2 || findings[1].Line != 4 {
		t.Errorf("Lines = %d,%d, want 2,4", findings[0].Line, findings[1].Line)
	}
}

func TestClassifyTruncatesExcerpt(t *testing.T) {
	reg := DefaultRegistry()

	long := "ERROR: connection refused " + strings.Repeat("x", 500)
	findings := reg.Classify(long)
	if len(findings) != 1 {
		t.Fatalf("Classify = %d findings, want 1", len(findings))
	}
	if len(findings[0].Excerpt) != MaxExcerptLen {
		t.Errorf("Excerpt length = %d, want %d", len(findings[0].Excerpt), MaxExcerptLen)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	reg := DefaultRegistry()

	text := "ERROR: connection refused\nWARN: timeout waiting for peer\nfatal: panic in worker\n"

	first := reg.Classify(text)
	second := reg.Classify(text)
	if !reflect.DeepEqual(first, second) {
		t.Error("Classify is not idempotent: repeated calls differ")
	}
}
