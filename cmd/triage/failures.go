// cmd/triage/failures.go
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"triage/internal/diagnosis"
	"triage/internal/flow"
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List recent failed workflow executions with their diagnosis",
	Args:  cobra.NoArgs,
	RunE:  runFailures,
}

func init() {
	failuresCmd.Flags().String("workflow", "", "restrict to one workflow ID")
	failuresCmd.Flags().Int("limit", 10, "maximum executions to inspect")
}

func runFailures(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Engine.APIKey == "" {
		return errors.New("workflow engine API key not set (TRIAGE_ENGINE_API_KEY)")
	}

	workflowID, _ := cmd.Flags().GetString("workflow")
	limit, _ := cmd.Flags().GetInt("limit")

	client := flow.NewClient(cfg.Engine.BaseURL, cfg.Engine.APIKey, clientTimeout)
	execs, err := client.ListExecutions(cmd.Context(), flow.ExecutionFilter{
		WorkflowID: workflowID,
		Status:     "error",
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	type failure struct {
		ExecutionID    string           `json:"execution_id"`
		WorkflowName   string           `json:"workflow_name"`
		StartedAt      string           `json:"started_at"`
		Diagnosis      diagnosis.Detail `json:"diagnosis"`
		Recommendation string           `json:"recommendation"`
	}

	failures := make([]failure, 0, len(execs))
	for _, exec := range execs {
		full, err := client.GetExecution(cmd.Context(), exec.ID.String(), true)
		if err != nil {
			return fmt.Errorf("execution %s: %w", exec.ID.String(), err)
		}
		detail := diagnosis.Diagnose(full.Trace())
		failures = append(failures, failure{
			ExecutionID:    full.ID.String(),
			WorkflowName:   full.WorkflowData.Name,
			StartedAt:      full.StartedAt,
			Diagnosis:      detail,
			Recommendation: diagnosis.Recommend(detail),
		})
	}

	if jsonOutput(cmd) {
		return emitJSON(map[string]interface{}{
			"count":    len(failures),
			"failures": failures,
		})
	}

	if len(failures) == 0 {
		okColor.Println("No failed executions")
		return nil
	}
	for _, f := range failures {
		headingColor.Printf("Execution %s", f.ExecutionID)
		if f.WorkflowName != "" {
			fmt.Printf(" (%s)", f.WorkflowName)
		}
		if f.StartedAt != "" {
			fmt.Printf("  started %s", f.StartedAt)
		}
		fmt.Println()
		fmt.Printf("  Failed step: %s\n", f.Diagnosis.FailedStep)
		highColor.Printf("  Error: %s\n", f.Diagnosis.ErrorMessage)
		if f.Recommendation != "" {
			fmt.Printf("  -> %s\n", f.Recommendation)
		}
	}
	return nil
}
