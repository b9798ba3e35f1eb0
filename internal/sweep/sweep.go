// internal/sweep/sweep.go
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"triage/internal/diagnosis"
)

// Snapshot is one subject's raw material: log text for containers, a trace
// for workflow executions. Exactly one of Text/Trace is meaningful; when a
// trace is present Text carries a printable excerpt of it.
type Snapshot struct {
	Subject diagnosis.Subject
	Text    string
	Trace   *diagnosis.Trace
}

// Source supplies subjects and their raw material. Fetch failures are
// contained per subject; only List failures abort a sweep.
type Source interface {
	List(ctx context.Context) ([]diagnosis.Subject, error)
	Fetch(ctx context.Context, subject diagnosis.Subject) (Snapshot, error)
}

// Defaults chosen to keep a sweep gentle on the underlying APIs.
const (
	DefaultWorkers = 4
	DefaultTimeout = 2 * time.Minute

	// maxIssuesPerBucket bounds deduplicated findings per severity so one
	// noisy subject cannot dominate the consolidated report.
	maxIssuesPerBucket = 5

	// restartLoopThreshold flags subjects stuck in a crash loop.
	restartLoopThreshold = 5
)

// SubjectSummary identifies a subject in consolidated output.
type SubjectSummary struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Image  string `json:"image,omitempty"`
}

// Entry is one subject with issues inside a consolidated report.
type Entry struct {
	Subject     SubjectSummary      `json:"subject"`
	Report      diagnosis.Report    `json:"report"`
	Issues      []diagnosis.Finding `json:"issues"`
	IssueCount  int                 `json:"issue_count"`
	MaxSeverity diagnosis.Severity  `json:"max_severity"`
}

// Unavailable records a subject whose raw material could not be fetched.
// Unavailable subjects are counted but excluded from severity sorting.
type Unavailable struct {
	Subject SubjectSummary `json:"subject"`
	Reason  string         `json:"reason"`
}

// Totals summarizes a sweep.
type Totals struct {
	TotalSubjects    int `json:"total_subjects"`
	WithIssues       int `json:"subjects_with_issues"`
	Healthy          int `json:"healthy_subjects"`
	UnavailableCount int `json:"unavailable_subjects"`
	TotalIssues      int `json:"total_issues"`
	CriticalSubjects int `json:"critical_subjects"`
}

// Consolidated is the result of one sweep. Subjects are ordered by
// (max severity, issue count), both descending, with a stable tie-break on
// input order so output is reproducible regardless of completion order.
type Consolidated struct {
	SweepID     string           `json:"sweep_id"`
	StartedAt   time.Time        `json:"started_at"`
	Totals      Totals           `json:"summary"`
	Subjects    []Entry          `json:"subjects_with_issues"`
	Healthy     []SubjectSummary `json:"healthy_subjects,omitempty"`
	Unavailable []Unavailable    `json:"unavailable,omitempty"`
}

// Sweeper drives diagnosis across every subject of a Source with bounded
// concurrency. The registry is shared and read-only; everything else is
// local to one Run.
type Sweeper struct {
	src     Source
	reg     *diagnosis.Registry
	workers int
	timeout time.Duration
}

// New creates a Sweeper. Zero workers or timeout select the defaults.
func New(src Source, reg *diagnosis.Registry, workers int, timeout time.Duration) *Sweeper {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sweeper{src: src, reg: reg, workers: workers, timeout: timeout}
}

type result struct {
	entry       *Entry
	healthy     *SubjectSummary
	unavailable *Unavailable
}

// Run sweeps all subjects and returns a consolidated report. Per-subject
// failures never abort the sweep: a subject whose fetch fails (or that the
// overall timeout cuts off) is reported as unavailable with its reason.
func (s *Sweeper) Run(ctx context.Context) (*Consolidated, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()

	subjects, err := s.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	log.Printf("Sweep starting: %d subjects, %d workers", len(subjects), s.workers)

	results := make([]result, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, subject := range subjects {
		g.Go(func() error {
			results[i] = s.diagnoseOne(gctx, subject)
			return nil
		})
	}
	// Tasks contain their own failures, so Wait only reflects ctx wiring.
	_ = g.Wait()

	report := s.consolidate(results, len(subjects), started)
	log.Printf("Sweep complete: %d with issues, %d healthy, %d unavailable",
		report.Totals.WithIssues, report.Totals.Healthy, report.Totals.UnavailableCount)

	return report, nil
}

func (s *Sweeper) diagnoseOne(ctx context.Context, subject diagnosis.Subject) result {
	summary := SubjectSummary{Name: subject.Name, Status: subject.Status, Image: subject.Image}

	if ctx.Err() != nil {
		return result{unavailable: &Unavailable{Subject: summary, Reason: "sweep timed out before subject was reached"}}
	}

	snap, err := s.src.Fetch(ctx, subject)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			reason = "timed out fetching subject data"
		}
		log.Printf("Subject %s unavailable: %v", subject.Name, err)
		return result{unavailable: &Unavailable{Subject: summary, Reason: reason}}
	}

	issues := metadataIssues(snap.Subject)

	if snap.Trace != nil {
		detail := diagnosis.Diagnose(*snap.Trace)
		issues = append(issues, diagnosis.TraceFinding(detail))
	} else {
		findings := s.reg.Classify(snap.Text)
		issues = append(issues, dedupe(findings)...)
	}

	if len(issues) == 0 {
		return result{healthy: &summary}
	}

	maxSev := diagnosis.SeverityLow
	for _, f := range issues {
		if f.Severity > maxSev {
			maxSev = f.Severity
		}
	}

	return result{entry: &Entry{
		Subject:     summary,
		Report:      diagnosis.BuildReport(snap.Subject, issues, snap.Text),
		Issues:      issues,
		IssueCount:  len(issues),
		MaxSeverity: maxSev,
	}}
}

// metadataIssues derives findings from subject state. These are hard facts
// rather than text heuristics, which is why the report builder's priority
// chain also consults the underlying flags directly.
func metadataIssues(subject diagnosis.Subject) []diagnosis.Finding {
	if subject.Kind == diagnosis.KindExecution {
		// Execution state is already captured by the trace diagnosis.
		return nil
	}

	var issues []diagnosis.Finding

	if subject.Status != "" && subject.Status != "running" {
		sev := diagnosis.SeverityMedium
		msg := fmt.Sprintf("Container is %s", subject.Status)
		if subject.ExitCode != 0 {
			sev = diagnosis.SeverityHigh
			msg = fmt.Sprintf("Container is %s (exit code: %d)", subject.Status, subject.ExitCode)
		}
		issues = append(issues, diagnosis.Finding{
			PatternID:      "container_not_running",
			Severity:       sev,
			Excerpt:        msg,
			Recommendation: "Check container logs and restart if needed.",
		})
	}

	if subject.OOMKilled {
		issues = append(issues, diagnosis.Finding{
			PatternID:      "oom_killed",
			Severity:       diagnosis.SeverityCritical,
			Excerpt:        "Container was killed due to Out of Memory",
			Recommendation: "Increase container memory limits in docker-compose.yml",
		})
	}

	if subject.RestartCount > restartLoopThreshold {
		issues = append(issues, diagnosis.Finding{
			PatternID:      "restart_loop",
			Severity:       diagnosis.SeverityHigh,
			Excerpt:        fmt.Sprintf("Container has restarted %d times", subject.RestartCount),
			Recommendation: "Container may be in a crash loop. Check application errors.",
		})
	}

	return issues
}

// dedupe keeps the first finding per pattern id, bounded per severity
// bucket, preserving line order.
func dedupe(findings []diagnosis.Finding) []diagnosis.Finding {
	seen := make(map[string]bool, len(findings))
	perBucket := make(map[diagnosis.Severity]int, 4)

	var out []diagnosis.Finding
	for _, f := range findings {
		if seen[f.PatternID] {
			continue
		}
		if perBucket[f.Severity] >= maxIssuesPerBucket {
			continue
		}
		seen[f.PatternID] = true
		perBucket[f.Severity]++
		out = append(out, f)
	}
	return out
}

func (s *Sweeper) consolidate(results []result, total int, started time.Time) *Consolidated {
	report := &Consolidated{
		SweepID:   uuid.NewString(),
		StartedAt: started,
	}

	for _, r := range results {
		switch {
		case r.entry != nil:
			report.Subjects = append(report.Subjects, *r.entry)
		case r.healthy != nil:
			report.Healthy = append(report.Healthy, *r.healthy)
		case r.unavailable != nil:
			report.Unavailable = append(report.Unavailable, *r.unavailable)
		}
	}

	sort.SliceStable(report.Subjects, func(i, j int) bool {
		a, b := report.Subjects[i], report.Subjects[j]
		if a.MaxSeverity != b.MaxSeverity {
			return a.MaxSeverity > b.MaxSeverity
		}
		return a.IssueCount > b.IssueCount
	})

	report.Totals.TotalSubjects = total
	report.Totals.WithIssues = len(report.Subjects)
	report.Totals.Healthy = len(report.Healthy)
	report.Totals.UnavailableCount = len(report.Unavailable)
	for _, e := range report.Subjects {
		report.Totals.TotalIssues += e.IssueCount
		if e.MaxSeverity == diagnosis.SeverityCritical {
			report.Totals.CriticalSubjects++
		}
	}

	return report
}
