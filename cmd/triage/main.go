// cmd/triage/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "triage",
	Short:         "Log and workflow failure diagnosis",
	Long:          `triage classifies container logs and workflow execution traces against a pattern registry and reports what went wrong and what to do about it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config file")
	rootCmd.PersistentFlags().Bool("json", false, "emit raw JSON instead of formatted output")

	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(containerCmd)
	rootCmd.AddCommand(executionCmd)
	rootCmd.AddCommand(failuresCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
