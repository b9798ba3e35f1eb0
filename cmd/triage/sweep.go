// cmd/triage/sweep.go
package main

import (
	"github.com/spf13/cobra"

	"triage/internal/diagnosis"
	"triage/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Diagnose every container (and optionally failed executions) in one pass",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().Bool("executions", false, "also sweep recent failed workflow executions")
	sweepCmd.Flags().Bool("running-only", false, "skip stopped containers")
	sweepCmd.Flags().String("workflow", "", "restrict the execution sweep to one workflow ID")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	runningOnly, _ := cmd.Flags().GetBool("running-only")
	withExecutions, _ := cmd.Flags().GetBool("executions")
	workflowID, _ := cmd.Flags().GetString("workflow")

	src, err := newContainerSource(cfg, !runningOnly)
	if err != nil {
		return err
	}

	reg := diagnosis.DefaultRegistry()
	sweeper := sweep.New(src, reg, cfg.Workers, cfg.SweepTimeout)
	report, err := sweeper.Run(cmd.Context())
	if err != nil {
		return err
	}

	var execReport *sweep.Consolidated
	if withExecutions {
		execSrc, err := newExecutionSource(cfg, workflowID, 0)
		if err != nil {
			return err
		}
		execSweeper := sweep.New(execSrc, reg, cfg.Workers, cfg.SweepTimeout)
		execReport, err = execSweeper.Run(cmd.Context())
		if err != nil {
			return err
		}
	}

	if jsonOutput(cmd) {
		out := map[string]interface{}{"containers": report}
		if execReport != nil {
			out["executions"] = execReport
		}
		return emitJSON(out)
	}

	printConsolidated(report)
	if execReport != nil {
		printConsolidated(execReport)
	}
	return nil
}
