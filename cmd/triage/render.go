// cmd/triage/render.go
package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"triage/internal/diagnosis"
	"triage/internal/flow"
	"triage/internal/store"
	"triage/internal/sweep"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgRed)
	mediumColor   = color.New(color.FgYellow)
	lowColor      = color.New(color.FgHiBlack)
	headingColor  = color.New(color.FgCyan, color.Bold)
	okColor       = color.New(color.FgGreen)
)

func severityColor(sev diagnosis.Severity) *color.Color {
	switch sev {
	case diagnosis.SeverityCritical:
		return criticalColor
	case diagnosis.SeverityHigh:
		return highColor
	case diagnosis.SeverityMedium:
		return mediumColor
	default:
		return lowColor
	}
}

func printReport(report diagnosis.Report) {
	headingColor.Printf("%s", report.Subject.Name)
	if report.Subject.Image != "" {
		fmt.Printf(" (%s)", report.Subject.Image)
	}
	fmt.Printf("  status=%s\n", report.Subject.Status)

	if report.Analysis.Total == 0 {
		okColor.Println("No errors found")
		return
	}

	fmt.Printf("%d error(s): %d critical, %d high, %d medium, %d low\n",
		report.Analysis.Total, report.Analysis.Critical, report.Analysis.High,
		report.Analysis.Medium, report.Analysis.Low)

	if report.PriorityIssue != "" {
		fmt.Print("Priority: ")
		criticalColor.Println(report.PriorityIssue)
	}

	printBucket(report.Errors.Critical)
	printBucket(report.Errors.High)
	printBucket(report.Errors.Medium)
	printBucket(report.Errors.Low)
}

func printBucket(findings []diagnosis.Finding) {
	for _, f := range findings {
		severityColor(f.Severity).Printf("  [%s] %s", f.Severity, f.PatternID)
		if f.Line > 0 {
			fmt.Printf(" (line %d)", f.Line)
		}
		fmt.Println()
		fmt.Printf("    %s\n", f.Excerpt)
		if f.Recommendation != "" {
			fmt.Printf("    -> %s\n", f.Recommendation)
		}
	}
}

func printConsolidated(report *sweep.Consolidated) {
	headingColor.Printf("Sweep %s\n", report.SweepID)
	fmt.Printf("%d subject(s): %d with issues, %d healthy, %d unavailable, %d issue(s) total\n",
		report.Totals.TotalSubjects, report.Totals.WithIssues,
		report.Totals.Healthy, report.Totals.UnavailableCount, report.Totals.TotalIssues)

	for _, entry := range report.Subjects {
		fmt.Println()
		severityColor(entry.MaxSeverity).Printf("%s", entry.Subject.Name)
		fmt.Printf("  %s, %d issue(s), max %s\n",
			entry.Subject.Status, entry.IssueCount, entry.MaxSeverity)
		if entry.Report.PriorityIssue != "" {
			fmt.Printf("  Priority: %s\n", entry.Report.PriorityIssue)
		}
		for _, issue := range entry.Issues {
			severityColor(issue.Severity).Printf("  [%s]", issue.Severity)
			fmt.Printf(" %s: %s\n", issue.PatternID, issue.Excerpt)
		}
	}

	for _, u := range report.Unavailable {
		fmt.Println()
		mediumColor.Printf("%s unavailable", u.Subject.Name)
		fmt.Printf(": %s\n", u.Reason)
	}

	if report.Totals.WithIssues == 0 && report.Totals.UnavailableCount == 0 {
		okColor.Println("All subjects healthy")
	}
}

func printExecutionDetail(exec flow.Execution, detail diagnosis.Detail, recommendation string) {
	headingColor.Printf("Execution %s", exec.ID.String())
	if exec.WorkflowData.Name != "" {
		fmt.Printf(" (%s)", exec.WorkflowData.Name)
	}
	fmt.Printf("  status=%s mode=%s\n", exec.Status, exec.Mode)

	fmt.Printf("Failed step: %s", detail.FailedStep)
	if detail.StepType != "Unknown" && detail.StepType != "" {
		fmt.Printf(" [%s]", detail.StepType)
	}
	fmt.Println()
	highColor.Printf("Error: %s\n", detail.ErrorMessage)
	if detail.StackTrace != "" {
		fmt.Println(indent(firstLines(detail.StackTrace, 10), "  "))
	}
	if recommendation != "" {
		fmt.Printf("-> %s\n", recommendation)
	}
}

func printStoredReports(reports []store.StoredReport) {
	if len(reports) == 0 {
		fmt.Println("No stored reports")
		return
	}
	for _, r := range reports {
		sev, _ := diagnosis.ParseSeverity(r.MaxSeverity)
		severityColor(sev).Printf("#%d %s", r.ID, r.Subject)
		fmt.Printf("  %d issue(s), max %s, %s", r.IssueCount, r.MaxSeverity, humanize.Time(r.CreatedAt))
		if r.SweepID != "" {
			fmt.Printf(", sweep %s", r.SweepID)
		}
		fmt.Println()
		if r.PriorityIssue != "" {
			fmt.Printf("  %s\n", r.PriorityIssue)
		}
	}
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
