// cmd/triage/reports.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"triage/internal/store"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show stored diagnosis reports",
	Args:  cobra.NoArgs,
	RunE:  runReports,
}

func init() {
	reportsCmd.Flags().String("subject", "", "only reports for one subject")
	reportsCmd.Flags().Int("limit", 20, "maximum reports to show")
	reportsCmd.Flags().Bool("summary", false, "show severity totals instead of individual reports")
}

func runReports(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		counts, err := db.SeverityCounts()
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return emitJSON(counts)
		}
		for _, sev := range []string{"critical", "high", "medium", "low"} {
			fmt.Printf("%s: %d\n", sev, counts[sev])
		}
		return nil
	}

	subject, _ := cmd.Flags().GetString("subject")
	limit, _ := cmd.Flags().GetInt("limit")

	var reports []store.StoredReport
	if subject != "" {
		reports, err = db.ReportsBySubject(subject, limit)
	} else {
		reports, err = db.RecentReports(limit)
	}
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return emitJSON(map[string]interface{}{
			"count":   len(reports),
			"reports": reports,
		})
	}
	printStoredReports(reports)
	return nil
}
