// internal/flow/types.go
package flow

import (
	"bytes"
	"encoding/json"
	"fmt"

	"triage/internal/diagnosis"
)

// Execution is one workflow run as the engine API reports it. Data is only
// populated when the execution was fetched with includeData.
type Execution struct {
	ID           json.Number    `json:"id"`
	WorkflowID   json.Number    `json:"workflowId"`
	Status       string         `json:"status"`
	Mode         string         `json:"mode"`
	StartedAt    string         `json:"startedAt"`
	StoppedAt    string         `json:"stoppedAt"`
	WorkflowData WorkflowData   `json:"workflowData"`
	Data         *ExecutionData `json:"data,omitempty"`
}

// WorkflowData carries the workflow metadata attached to an execution.
type WorkflowData struct {
	Name string `json:"name"`
}

// ExecutionData is the nested result payload of an execution.
type ExecutionData struct {
	ResultData ResultData `json:"resultData"`
}

// ResultData holds the top-level error and the per-step run records.
type ResultData struct {
	Error   *TopError `json:"error"`
	RunData RunData   `json:"runData"`
}

// TopError is the execution-level error object.
type TopError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
	Stack       string `json:"stack"`
	Node        struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"node"`
}

// StepRuns is one step's attempts, in run order.
type StepRuns struct {
	Step string
	Runs []StepRun
}

// RunData preserves the order of the engine's runData object. Step order is
// execution order, and "first failing step" is only well-defined if decoding
// keeps it, so this type decodes the JSON object with a token walk instead
// of an unordered map.
type RunData []StepRuns

func (rd *RunData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("runData: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		step, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("runData: non-string key %v", keyTok)
		}

		var runs []StepRun
		if err := dec.Decode(&runs); err != nil {
			return fmt.Errorf("runData step %q: %w", step, err)
		}
		*rd = append(*rd, StepRuns{Step: step, Runs: runs})
	}

	return nil
}

// StepRun is a single attempt of a step.
type StepRun struct {
	Error     *StepError      `json:"error"`
	InputData json.RawMessage `json:"inputData"`
	Source    json.RawMessage `json:"source"`
}

// StepError is the error recorded on a run attempt. Engines emit it as an
// object in the normal case but occasionally as a bare string; both decode.
type StepError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

func (e *StepError) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = StepError{Message: s}
		return nil
	}

	type plain StepError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = StepError(p)
	return nil
}

// Trace converts the execution payload into the engine's trace model.
func (e *Execution) Trace() diagnosis.Trace {
	var trace diagnosis.Trace
	if e.Data == nil {
		return trace
	}

	result := e.Data.ResultData
	if top := result.Error; top != nil {
		trace.Error = &diagnosis.TraceError{
			StepName:    top.Node.Name,
			StepType:    top.Node.Type,
			Message:     top.Message,
			Description: top.Description,
			Stack:       top.Stack,
		}
	}

	for _, step := range result.RunData {
		s := diagnosis.Step{Name: step.Step}
		for _, run := range step.Runs {
			r := diagnosis.Run{}
			if run.Error != nil {
				r.Error = &diagnosis.RunError{
					Name:    run.Error.Name,
					Message: run.Error.Message,
					Stack:   run.Error.Stack,
				}
			}
			switch {
			case len(run.InputData) > 0:
				r.Input = run.InputData
			case len(run.Source) > 0:
				r.Input = run.Source
			}
			s.Runs = append(s.Runs, r)
		}
		trace.Steps = append(trace.Steps, s)
	}

	return trace
}

// ExecutionSummary is the compact history record for one execution.
type ExecutionSummary struct {
	ID           string `json:"id"`
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	Status       string `json:"status"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at"`
	Mode         string `json:"mode"`
}

// Summarize flattens execution records into history summaries.
func Summarize(execs []Execution) []ExecutionSummary {
	summaries := make([]ExecutionSummary, 0, len(execs))
	for _, e := range execs {
		summaries = append(summaries, ExecutionSummary{
			ID:           e.ID.String(),
			WorkflowID:   e.WorkflowID.String(),
			WorkflowName: e.WorkflowData.Name,
			Status:       e.Status,
			StartedAt:    e.StartedAt,
			FinishedAt:   e.StoppedAt,
			Mode:         e.Mode,
		})
	}
	return summaries
}

// Subject builds the sweep subject for an execution.
func (e *Execution) Subject() diagnosis.Subject {
	name := e.WorkflowData.Name
	if name == "" {
		name = "workflow " + e.WorkflowID.String()
	}
	return diagnosis.Subject{
		ID:     e.ID.String(),
		Kind:   diagnosis.KindExecution,
		Name:   fmt.Sprintf("%s (execution %s)", name, e.ID),
		Status: e.Status,
	}
}
