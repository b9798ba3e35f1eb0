// cmd/triage/container.go
package main

import (
	"github.com/spf13/cobra"

	"triage/internal/diagnosis"
)

var containerCmd = &cobra.Command{
	Use:   "container <name>",
	Short: "Diagnose one container from its logs and state",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainer,
}

func runContainer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src, err := newContainerSource(cfg, true)
	if err != nil {
		return err
	}

	report, err := src.Diagnose(cmd.Context(), args[0], diagnosis.DefaultRegistry())
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return emitJSON(report)
	}
	printReport(report)
	return nil
}
