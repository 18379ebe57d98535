package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tradeLedger/internal/aggregate"
	"tradeLedger/internal/domain"
)

func newSummaryCmd(rc *rootConfig) *cobra.Command {
	var monthStr string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Exact P&L summary with daily and monthly buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			month, err := parseMonthFlag(monthStr)
			if err != nil {
				return err
			}
			summary, err := rc.comp.Trades.Summarize(cmd.Context(), rc.userID, month)
			if err != nil {
				return err
			}
			currency := rc.comp.Trades.ReportingCurrency()
			return rc.render(summary, func(w io.Writer) error {
				fmt.Fprintf(w, "TOTAL\t%s\n", formatMoney(summary.TotalPnl, currency))
				fmt.Fprintf(w, "TRADES\t%d\n", summary.TradeCount)
				fmt.Fprintf(w, "PNL%%\t%s\n", formatPercent(summary.PnlPercent))
				fmt.Fprintf(w, "RATE\t%s (as of %s)\n", summary.Rate.String(), summary.FxDate)
				writeBuckets(w, "MONTH", summary.Monthly, currency)
				writeBuckets(w, "DAY", summary.Daily, currency)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&monthStr, "month", "", "restrict to one month (YYYY-MM)")
	return cmd
}

func newStatsCmd(rc *rootConfig) *cobra.Command {
	var (
		year     int
		monthStr string
		dayStr   string
		scoped   bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Dashboard statistics: totals, best day and best month",
		Long: `Without flags, stats covers the whole history. Any of --year, --month,
--day or --scoped restricts it to one year: the given one, else the year of
the given month or day, else the year of the latest closed trade.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			var scope aggregate.Scope
			var err error
			if cmd.Flags().Changed("year") {
				scope.Year = &year
			}
			if scope.Month, err = parseMonthFlag(monthStr); err != nil {
				return err
			}
			if scope.Day, err = parseDayFlag(dayStr); err != nil {
				return err
			}

			var stats domain.AggregateStats
			if scoped || scope.Year != nil || scope.Month != nil || scope.Day != nil {
				stats, err = rc.comp.Trades.ScopedAggregateStats(cmd.Context(), rc.userID, scope)
			} else {
				stats, err = rc.comp.Trades.AggregateStats(cmd.Context(), rc.userID)
			}
			if err != nil {
				return err
			}

			currency := rc.comp.Trades.ReportingCurrency()
			return rc.render(stats, func(w io.Writer) error {
				if stats.ScopedYear != nil {
					fmt.Fprintf(w, "YEAR\t%d\n", *stats.ScopedYear)
				}
				if stats.ScopedMonth != "" {
					fmt.Fprintf(w, "MONTH\t%s\n", stats.ScopedMonth)
				}
				fmt.Fprintf(w, "TOTAL\t%s\n", formatMoney(stats.TotalPnl, currency))
				fmt.Fprintf(w, "TRADES\t%d\n", stats.TradeCount)
				fmt.Fprintf(w, "PNL%%\t%s\n", formatPercent(stats.PnlPercent))
				fmt.Fprintf(w, "BEST DAY\t%s\n", formatBest(stats.BestDay, currency))
				fmt.Fprintf(w, "BEST MONTH\t%s\n", formatBest(stats.BestMonth, currency))
				fmt.Fprintf(w, "RATE\t%s (as of %s)\n", stats.Rate.String(), stats.FxDate)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "scope to a calendar year")
	cmd.Flags().StringVar(&monthStr, "month", "", "scope to a month (YYYY-MM); best day is searched in it")
	cmd.Flags().StringVar(&dayStr, "day", "", "pin best day to this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&scoped, "scoped", false, "scope to the year of the latest closed trade")
	return cmd
}

func formatBest(b *domain.Bucket, currency string) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%s  %s  (%d trades, %s)", b.Period, formatMoney(b.Pnl, currency), b.Trades, formatPercent(b.PnlPercent))
}
