package commands

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"monthlydata/internal/importer"
	"monthlydata/internal/printer"
	"monthlydata/internal/store"

	"github.com/spf13/cobra"
)

var (
	importFile      string
	importDir       string
	importWatch     bool
	importCreatedBy string
	importWorkers   int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load monthly records from CSV",
	Long: `Load monthly records from CSV files with a header row naming username,
mobile and any of jan..dec. Rows whose username and mobile already exist update
that record with the month columns present; other rows create a new record.
Rows that fail validation are reported and skipped.

With --dir every *.csv in the directory is imported and moved to processed/.
Add --watch to keep running and import files as they are dropped in.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "CSV file to import")
	importCmd.Flags().StringVar(&importDir, "dir", "", "Directory of CSV files to import")
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "Keep watching --dir for new files")
	importCmd.Flags().StringVar(&importCreatedBy, "created-by", "admin", "Username recorded as creator of new records")
	importCmd.Flags().IntVar(&importWorkers, "workers", 4, "Files imported in parallel")
	importCmd.MarkFlagsMutuallyExclusive("file", "dir")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importFile == "" && importDir == "" {
		return printer.Error("Nothing to import", "Pass a CSV file or a directory.", []string{"monthlyctl import --file data.csv", "monthlyctl import --dir ./drop --watch"})
	}
	if importWatch && importDir == "" {
		return printer.Error("--watch needs --dir", "Only directories can be watched.", nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Store.Close()

	creator, err := a.Store.FindUserByUsername(ctx, importCreatedBy)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return printer.Error("Unknown --created-by user", "No user named "+importCreatedBy+".", nil)
		}
		return printer.Error("Cannot look up --created-by user", err.Error(), nil)
	}
	im := importer.New(a.Store, creator.ID, slog.Default())

	var res importer.Result
	if importFile != "" {
		printer.Step("importing %s\n", importFile)
		res, err = im.ImportFile(ctx, importFile)
	} else {
		printer.Step("importing %s\n", importDir)
		res, err = im.ImportDir(ctx, importDir, importWorkers)
	}
	printResult(res)
	if err != nil {
		return printer.Error("Import failed", err.Error(), nil)
	}

	if importWatch {
		printer.Info("watching %s, press Ctrl+C to stop\n", importDir)
		return im.Watch(ctx, importDir, importWorkers, func(fr importer.FileResult) {
			printer.Step("%s\n", fr.Name)
			printResult(fr.Result)
			if fr.Err != nil {
				printer.Warning("%v\n", fr.Err)
			}
		})
	}
	return nil
}

func printResult(res importer.Result) {
	printer.Success("created=%d updated=%d rejected=%d\n", res.Created, res.Updated, len(res.Rejected))
	for _, re := range res.Rejected {
		printer.Warning("%v\n", re)
	}
}
