package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradeLedger/internal/app"
	"tradeLedger/internal/domain"
	"tradeLedger/internal/export"
)

func newExportCmd(rc *rootConfig) *cobra.Command {
	var (
		file     string
		monthStr string
		dayStr   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			q := app.ListQuery{Size: domain.MaxPageSize}
			var err error
			if q.Month, err = parseMonthFlag(monthStr); err != nil {
				return err
			}
			if q.Day, err = parseDayFlag(dayStr); err != nil {
				return err
			}

			var views []domain.TradeView
			for {
				page, err := rc.comp.Trades.ListTrades(cmd.Context(), rc.userID, q)
				if err != nil {
					return err
				}
				views = append(views, page.Items...)
				if !page.HasNext {
					break
				}
				q.Page++
			}

			if file == "-" {
				return export.WriteTrades(rc.out, views)
			}
			if err := export.WriteTradesToCSV(views, file); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(rc.out, "exported %d trades to %s\n", len(views), file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "output CSV path, - for stdout")
	cmd.Flags().StringVar(&monthStr, "month", "", "only trades closed in this month (YYYY-MM)")
	cmd.Flags().StringVar(&dayStr, "day", "", "only trades closed on this date (YYYY-MM-DD)")
	return cmd
}
