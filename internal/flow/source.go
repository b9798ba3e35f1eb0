// internal/flow/source.go
package flow

import (
	"context"

	"triage/internal/diagnosis"
	"triage/internal/sweep"
)

// Source adapts the workflow engine to the sweep pipeline: subjects are the
// most recent failed executions.
type Source struct {
	client     *Client
	workflowID string
	limit      int
}

// NewSource creates an execution source, optionally scoped to one workflow.
func NewSource(client *Client, workflowID string, limit int) *Source {
	if limit <= 0 {
		limit = 5
	}
	return &Source{client: client, workflowID: workflowID, limit: limit}
}

// List returns recent failed executions as shallow subjects.
func (s *Source) List(ctx context.Context) ([]diagnosis.Subject, error) {
	execs, err := s.client.ListExecutions(ctx, ExecutionFilter{
		WorkflowID: s.workflowID,
		Status:     "error",
		Limit:      s.limit,
	})
	if err != nil {
		return nil, err
	}

	subjects := make([]diagnosis.Subject, 0, len(execs))
	for i := range execs {
		subjects = append(subjects, execs[i].Subject())
	}
	return subjects, nil
}

// Fetch pulls the execution's full trace. The snapshot text carries the
// error message so reports have a raw excerpt to show.
func (s *Source) Fetch(ctx context.Context, subject diagnosis.Subject) (sweep.Snapshot, error) {
	exec, err := s.client.GetExecution(ctx, subject.ID, true)
	if err != nil {
		return sweep.Snapshot{}, err
	}

	trace := exec.Trace()
	detail := diagnosis.Diagnose(trace)

	text := detail.ErrorMessage
	if detail.StackTrace != "" {
		text += "\n" + detail.StackTrace
	}

	return sweep.Snapshot{
		Subject: exec.Subject(),
		Text:    text,
		Trace:   &trace,
	}, nil
}

// Diagnose runs the single-execution pipeline and returns the structured
// detail plus its recommendation.
func (s *Source) Diagnose(ctx context.Context, id string) (Execution, diagnosis.Detail, string, error) {
	exec, err := s.client.GetExecution(ctx, id, true)
	if err != nil {
		return Execution{}, diagnosis.Detail{}, "", err
	}

	detail := diagnosis.Diagnose(exec.Trace())
	return exec, detail, diagnosis.Recommend(detail), nil
}
