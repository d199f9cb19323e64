package commands

import (
	"monthlydata/internal/printer"
	"monthlydata/internal/report"

	"github.com/spf13/cobra"
)

var (
	reportUsername string
	reportLimit    int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print annual totals per record",
	Long: `Print the sum of the twelve months for every record, highest first, read
directly from the Postgres database named by DB_DSN.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportUsername, "username", "", "Only records with this username")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 0, "Maximum number of lines (0 = all)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if cfg.DataBackend != "postgres" {
		return printer.Error("Report needs Postgres", "DATA_BACKEND is "+cfg.DataBackend+".", []string{"Set DATA_BACKEND=postgres and DB_DSN."})
	}
	db, err := report.Open(cfg.DBDSN)
	if err != nil {
		return printer.Error("Cannot open database", err.Error(), nil)
	}
	defer db.Close()

	s, err := report.AnnualTotals(cmd.Context(), db, report.Options{Username: reportUsername, Limit: reportLimit})
	if err != nil {
		return printer.Error("Report failed", err.Error(), nil)
	}
	return report.Write(printer.Writer(), s)
}
