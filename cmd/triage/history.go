// cmd/triage/history.go
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"triage/internal/flow"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent workflow execution history",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("workflow", "", "restrict to one workflow ID")
	historyCmd.Flags().String("status", "", "filter by status (success|error|waiting)")
	historyCmd.Flags().Int("limit", 10, "maximum executions to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Engine.APIKey == "" {
		return errors.New("workflow engine API key not set (TRIAGE_ENGINE_API_KEY)")
	}

	workflowID, _ := cmd.Flags().GetString("workflow")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	client := flow.NewClient(cfg.Engine.BaseURL, cfg.Engine.APIKey, clientTimeout)
	execs, err := client.ListExecutions(cmd.Context(), flow.ExecutionFilter{
		WorkflowID: workflowID,
		Status:     status,
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	summaries := flow.Summarize(execs)

	if jsonOutput(cmd) {
		return emitJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No executions")
		return nil
	}
	for _, s := range summaries {
		if s.Status == "error" {
			highColor.Printf("%-8s", s.Status)
		} else {
			okColor.Printf("%-8s", s.Status)
		}
		fmt.Printf(" %s", s.ID)
		if s.WorkflowName != "" {
			fmt.Printf("  %s", s.WorkflowName)
		}
		if started, err := time.Parse(time.RFC3339, s.StartedAt); err == nil {
			fmt.Printf("  %s", humanize.Time(started))
		}
		fmt.Println()
	}
	return nil
}
