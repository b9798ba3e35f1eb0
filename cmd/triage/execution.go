// cmd/triage/execution.go
package main

import (
	"github.com/spf13/cobra"
)

var executionCmd = &cobra.Command{
	Use:   "execution <id>",
	Short: "Diagnose one workflow execution from its trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

func runExecution(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src, err := newExecutionSource(cfg, "", 0)
	if err != nil {
		return err
	}

	exec, detail, recommendation, err := src.Diagnose(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return emitJSON(map[string]interface{}{
			"execution_id":   exec.ID.String(),
			"workflow_name":  exec.WorkflowData.Name,
			"status":         exec.Status,
			"diagnosis":      detail,
			"recommendation": recommendation,
		})
	}
	printExecutionDetail(exec, detail, recommendation)
	return nil
}
