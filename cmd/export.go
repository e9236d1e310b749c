package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/export"
	"github.com/frahmantamala/expense-tracker/internal/report"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export expenses",
	Long:  `Export the expenses visible to a user as CSV or into the configured spreadsheet`,
}

var exportSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Replace the configured spreadsheet with the current expenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), func(ctx context.Context, svc *export.Service, actor *internal.Actor, f report.Filter) (int, error) {
			return svc.ExportSheets(ctx, actor, f)
		})
	},
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Write expenses as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), func(ctx context.Context, svc *export.Service, actor *internal.Actor, f report.Filter) (int, error) {
			var out io.Writer = os.Stdout
			if exportOut != "" {
				file, err := os.Create(exportOut)
				if err != nil {
					return 0, err
				}
				defer file.Close()
				out = file
			}
			return svc.WriteCSV(ctx, actor, f, out)
		})
	},
}

var (
	exportAs         string
	exportOut        string
	exportStatus     string
	exportDepartment string
	exportFrom       string
	exportTo         string
)

type exportFunc func(ctx context.Context, svc *export.Service, actor *internal.Actor, f report.Filter) (int, error)

func runExport(ctx context.Context, run exportFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfigAndLogger()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	actor, err := systemActor(cfg, exportAs)
	if err != nil {
		return err
	}

	filter, err := report.ParseFilter(url.Values{
		"status":     {exportStatus},
		"department": {exportDepartment},
		"from":       {exportFrom},
		"to":         {exportTo},
	})
	if err != nil {
		return err
	}

	stores, err := openStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)

	accessService := newAccessService(cfg, stores.Gorm)
	bus := events.NewEventBus(logger.Component("events"))
	expenseService := expense.NewService(stores.ExpenseRepository(), accessService, bus, logger.Component("expense"))

	svc := export.NewService(expenseService, accessService, logger.Component("export"))
	if cfg.Export.SpreadsheetID != "" {
		writer, err := export.NewSheetsWriter(ctx, sheetsConfig(cfg.Export))
		if err != nil {
			return fmt.Errorf("failed to initialize spreadsheet export: %w", err)
		}
		svc.WithSheets(writer)
	}

	rows, err := run(ctx, svc, actor, filter)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d rows as %s\n", rows, actor.Email)
	return nil
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportAs, "as", "", "email of the user whose visibility applies (defaults to the first default admin)")
	exportCmd.PersistentFlags().StringVar(&exportStatus, "status", "", "only expenses in this status")
	exportCmd.PersistentFlags().StringVar(&exportDepartment, "department", "", "only expenses from this department")
	exportCmd.PersistentFlags().StringVar(&exportFrom, "from", "", "first expense date, YYYY-MM-DD")
	exportCmd.PersistentFlags().StringVar(&exportTo, "to", "", "last expense date, YYYY-MM-DD")
	exportCSVCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (defaults to stdout)")

	exportCmd.AddCommand(exportSheetsCmd)
	exportCmd.AddCommand(exportCSVCmd)
}
