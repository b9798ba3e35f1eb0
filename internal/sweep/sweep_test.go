// internal/sweep/sweep_test.go
package sweep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"triage/internal/diagnosis"
)

// fakeSource serves canned snapshots keyed by subject name.
type fakeSource struct {
	subjects []diagnosis.Subject
	text     map[string]string
	trace    map[string]*diagnosis.Trace
	fetchErr map[string]error
	listErr  error

	fetchDelay time.Duration
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
}

func (f *fakeSource) List(ctx context.Context) ([]diagnosis.Subject, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subjects, nil
}

func (f *fakeSource) Fetch(ctx context.Context, subject diagnosis.Subject) (Snapshot, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxFlight.Load()
		if cur <= max || f.maxFlight.CompareAndSwap(max, cur) {
			break
		}
	}

	if f.fetchDelay > 0 {
		select {
		case <-time.After(f.fetchDelay):
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}

	if err := f.fetchErr[subject.Name]; err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Subject: subject,
		Text:    f.text[subject.Name],
		Trace:   f.trace[subject.Name],
	}, nil
}

func running(name string) diagnosis.Subject {
	return diagnosis.Subject{Name: name, Status: "running"}
}

func TestSweepOrdersBySeverity(t *testing.T) {
	src := &fakeSource{
		subjects: []diagnosis.Subject{running("low"), running("critical"), running("high")},
		text: map[string]string{
			"low":      "ERROR: something odd happened\n",
			"critical": "ERROR: out of memory\n",
			"high":     "ERROR: connection refused\n",
		},
	}

	report, err := New(src, diagnosis.DefaultRegistry(), 2, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Subjects) != 3 {
		t.Fatalf("Subjects = %d, want 3", len(report.Subjects))
	}

	got := []string{report.Subjects[0].Subject.Name, report.Subjects[1].Subject.Name, report.Subjects[2].Subject.Name}
	want := []string{"critical", "high", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestSweepUnavailableSubjectContained(t *testing.T) {
	src := &fakeSource{
		subjects: []diagnosis.Subject{running("broken"), running("clean")},
		text:     map[string]string{"clean": "INFO: all good\n"},
		fetchErr: map[string]error{"broken": errors.New("api down")},
	}

	report, err := New(src, diagnosis.DefaultRegistry(), 2, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Totals.WithIssues != 0 {
		t.Errorf("WithIssues = %d, want 0", report.Totals.WithIssues)
	}
	if len(report.Unavailable) != 1 {
		t.Fatalf("Unavailable = %d, want 1", len(report.Unavailable))
	}
	if report.Unavailable[0].Subject.Name != "broken" {
		t.Errorf("unavailable subject = %s, want broken", report.Unavailable[0].Subject.Name)
	}
	if !strings.Contains(report.Unavailable[0].Reason, "api down") {
		t.Errorf("Reason = %q, want the fetch error preserved", report.Unavailable[0].Reason)
	}
	if report.Totals.TotalSubjects != 2 || report.Totals.Healthy != 1 || report.Totals.UnavailableCount != 1 {
		t.Errorf("Totals = %+v", report.Totals)
	}
}

func TestSweepListFailure(t *testing.T) {
	src := &fakeSource{listErr: errors.New("daemon unreachable")}

	if _, err := New(src, diagnosis.DefaultRegistry(), 2, time.Minute).Run(context.Background()); err == nil {
		t.Fatal("Run with failing List did not error")
	}
}

func TestSweepDedupBound(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("ERROR: connection refused attempt\n")
	}

	src := &fakeSource{
		subjects: []diagnosis.Subject{running("noisy")},
		text:     map[string]string{"noisy": b.String()},
	}

	report, err := New(src, diagnosis.DefaultRegistry(), 1, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Subjects) != 1 {
		t.Fatalf("Subjects = %d, want 1", len(report.Subjects))
	}
	// 20 identical findings collapse to one connection_refused issue.
	if report.Subjects[0].IssueCount != 1 {
		t.Errorf("IssueCount = %d, want 1 after dedup", report.Subjects[0].IssueCount)
	}
}

func TestDedupePerBucketCap(t *testing.T) {
	var findings []diagnosis.Finding
	for i := 0; i < 10; i++ {
		findings = append(findings, diagnosis.Finding{
			PatternID: fmt.Sprintf("rule_%d", i),
			Severity:  diagnosis.SeverityHigh,
		})
	}

	out := dedupe(findings)
	if len(out) != maxIssuesPerBucket {
		t.Errorf("dedupe kept %d high findings, want cap %d", len(out), maxIssuesPerBucket)
	}
}

func TestSweepMetadataIssuesWithoutLogMatches(t *testing.T) {
	src := &fakeSource{
		subjects: []diagnosis.Subject{
			{Name: "oomed", Status: "exited", ExitCode: 137, OOMKilled: true},
		},
		text: map[string]string{"oomed": "INFO: starting up\n"},
	}

	report, err := New(src, diagnosis.DefaultRegistry(), 1, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Subjects) != 1 {
		t.Fatalf("Subjects = %d, want 1", len(report.Subjects))
	}

	e := report.Subjects[0]
	if e.MaxSeverity != diagnosis.SeverityCritical {
		t.Errorf("MaxSeverity = %s, want critical", e.MaxSeverity)
	}
	if !strings.Contains(e.Report.PriorityIssue, "Out of Memory") {
		t.Errorf("PriorityIssue = %q, want OOM citation", e.Report.PriorityIssue)
	}
	if report.Totals.CriticalSubjects != 1 {
		t.Errorf("CriticalSubjects = %d, want 1", report.Totals.CriticalSubjects)
	}
}

func TestSweepTraceSubject(t *testing.T) {
	trace := &diagnosis.Trace{
		Steps: []diagnosis.Step{
			{Name: "HTTP Request", Runs: []diagnosis.Run{
				{Error: &diagnosis.RunError{Name: "NodeApiError", Message: "404 Not Found"}},
			}},
		},
	}

	src := &fakeSource{
		subjects: []diagnosis.Subject{{Name: "exec-42", Status: "error"}},
		trace:    map[string]*diagnosis.Trace{"exec-42": trace},
	}

	report, err := New(src, diagnosis.DefaultRegistry(), 1, time.Minute).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Subjects) != 1 {
		t.Fatalf("Subjects = %d, want 1", len(report.Subjects))
	}

	var traceIssue *diagnosis.Finding
	for i := range report.Subjects[0].Issues {
		if report.Subjects[0].Issues[i].PatternID == "NodeApiError" {
			traceIssue = &report.Subjects[0].Issues[i]
		}
	}
	if traceIssue == nil {
		t.Fatalf("no NodeApiError issue in %+v", report.Subjects[0].Issues)
	}
	if traceIssue.Severity != diagnosis.SeverityHigh {
		t.Errorf("trace issue severity = %s, want high", traceIssue.Severity)
	}
	if !strings.Contains(traceIssue.Recommendation, "URL path") {
		t.Errorf("Recommendation = %q, want URL path hint", traceIssue.Recommendation)
	}
}

func TestSweepBoundsConcurrency(t *testing.T) {
	var subjects []diagnosis.Subject
	text := make(map[string]string)
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("c%d", i)
		subjects = append(subjects, running(name))
		text[name] = "INFO: fine\n"
	}

	src := &fakeSource{subjects: subjects, text: text, fetchDelay: 10 * time.Millisecond}

	if _, err := New(src, diagnosis.DefaultRegistry(), 3, time.Minute).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if max := src.maxFlight.Load(); max > 3 {
		t.Errorf("max concurrent fetches = %d, want <= 3", max)
	}
}

func TestSweepTimeoutReportsUnavailable(t *testing.T) {
	var subjects []diagnosis.Subject
	text := make(map[string]string)
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("slow%d", i)
		subjects = append(subjects, running(name))
		text[name] = "INFO: fine\n"
	}

	src := &fakeSource{subjects: subjects, text: text, fetchDelay: 200 * time.Millisecond}

	report, err := New(src, diagnosis.DefaultRegistry(), 1, 50*time.Millisecond).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The sweep still returns a report; the cut-off subjects are accounted
	// for rather than dropped.
	accounted := report.Totals.WithIssues + report.Totals.Healthy + report.Totals.UnavailableCount
	if accounted != len(subjects) {
		t.Errorf("accounted subjects = %d, want %d", accounted, len(subjects))
	}
	if report.Totals.UnavailableCount == 0 {
		t.Error("timeout produced no unavailable subjects")
	}
}
