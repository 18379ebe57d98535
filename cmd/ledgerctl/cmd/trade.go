package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tradeLedger/internal/app"
	"tradeLedger/internal/domain"
)

func newTradeCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Create, update, delete and list trades",
	}

	cmd.AddCommand(
		newTradeAddCmd(rc),
		newTradeUpdateCmd(rc),
		newTradeGetCmd(rc),
		newTradeDeleteCmd(rc),
		newTradeListCmd(rc),
	)
	return cmd
}

// tradeFlags are the raw write flags shared by add and update.
type tradeFlags struct {
	symbol     string
	assetType  string
	currency   string
	direction  string
	quantity   int64
	entry      string
	exit       string
	fees       string
	marginRate string
	accountID  string
	optionType string
	strike     string
	expiry     string
	opened     string
	closed     string
	notes      string
}

func (f *tradeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.symbol, "symbol", "", "ticker symbol (required)")
	fl.StringVar(&f.assetType, "type", string(domain.AssetStock), "asset type (STOCK, OPTION)")
	fl.StringVar(&f.currency, "currency", "USD", "trade currency")
	fl.StringVar(&f.direction, "direction", string(domain.Long), "position direction (LONG, SHORT)")
	fl.Int64Var(&f.quantity, "qty", 0, "quantity (shares or contracts)")
	fl.StringVar(&f.entry, "entry", "", "entry price (required)")
	fl.StringVar(&f.exit, "exit", "", "exit price (required)")
	fl.StringVar(&f.fees, "fees", "", "total fees; account default when omitted")
	fl.StringVar(&f.marginRate, "margin-rate", "", "annual margin rate in percent; account default when omitted")
	fl.StringVar(&f.accountID, "account", "", "account id supplying fee and margin defaults")
	fl.StringVar(&f.optionType, "option-type", "", "option right (CALL, PUT)")
	fl.StringVar(&f.strike, "strike", "", "option strike price")
	fl.StringVar(&f.expiry, "expiry", "", "option expiry date (YYYY-MM-DD)")
	fl.StringVar(&f.opened, "opened", "", "open date (YYYY-MM-DD); defaults to the close date")
	fl.StringVar(&f.closed, "closed", "", "close date (YYYY-MM-DD) (required)")
	fl.StringVar(&f.notes, "notes", "", "free-form notes")

	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("entry")
	cmd.MarkFlagRequired("exit")
	cmd.MarkFlagRequired("closed")
}

func (f *tradeFlags) input() (domain.TradeInput, error) {
	in := domain.TradeInput{
		Symbol:    f.symbol,
		AssetType: domain.AssetType(strings.ToUpper(f.assetType)),
		Currency:  f.currency,
		Direction: domain.Direction(strings.ToUpper(f.direction)),
		Quantity:  f.quantity,
		AccountID: f.accountID,
		Notes:     f.notes,
	}

	var err error
	if in.EntryPrice, err = decimal.NewFromString(f.entry); err != nil {
		return in, fmt.Errorf("bad --entry: %w", err)
	}
	if in.ExitPrice, err = decimal.NewFromString(f.exit); err != nil {
		return in, fmt.Errorf("bad --exit: %w", err)
	}
	if in.Fees, err = optionalDecimal("fees", f.fees); err != nil {
		return in, err
	}
	if in.MarginRate, err = optionalDecimal("margin-rate", f.marginRate); err != nil {
		return in, err
	}
	if in.Strike, err = optionalDecimal("strike", f.strike); err != nil {
		return in, err
	}
	if f.optionType != "" {
		ot := domain.OptionType(strings.ToUpper(f.optionType))
		in.OptionType = &ot
	}
	if f.expiry != "" {
		expiry, err := domain.ParseDate(f.expiry)
		if err != nil {
			return in, fmt.Errorf("bad --expiry: %w", err)
		}
		in.Expiry = &expiry
	}

	if in.ClosedAt, err = domain.ParseDate(f.closed); err != nil {
		return in, fmt.Errorf("bad --closed: %w", err)
	}
	in.OpenedAt = in.ClosedAt
	if f.opened != "" {
		if in.OpenedAt, err = domain.ParseDate(f.opened); err != nil {
			return in, fmt.Errorf("bad --opened: %w", err)
		}
	}
	return in, nil
}

func optionalDecimal(flag, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("bad --%s: %w", flag, err)
	}
	return &v, nil
}

func newTradeAddCmd(rc *rootConfig) *cobra.Command {
	var f tradeFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a closed trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			in, err := f.input()
			if err != nil {
				return err
			}
			trade, err := rc.comp.Trades.CreateTrade(cmd.Context(), rc.userID, in)
			if err != nil {
				return err
			}
			return rc.renderTrade(cmd, trade.ID)
		},
	}
	f.register(cmd)
	return cmd
}

func newTradeUpdateCmd(rc *rootConfig) *cobra.Command {
	var f tradeFlags
	cmd := &cobra.Command{
		Use:   "update <trade-id>",
		Short: "Replace the fields of an existing trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			in, err := f.input()
			if err != nil {
				return err
			}
			trade, err := rc.comp.Trades.UpdateTrade(cmd.Context(), rc.userID, args[0], in)
			if err != nil {
				return err
			}
			return rc.renderTrade(cmd, trade.ID)
		},
	}
	f.register(cmd)
	return cmd
}

func newTradeGetCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "get <trade-id>",
		Short: "Show one trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			return rc.renderTrade(cmd, args[0])
		},
	}
}

func newTradeDeleteCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			if err := rc.comp.Trades.DeleteTrade(cmd.Context(), rc.userID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(rc.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func newTradeListCmd(rc *rootConfig) *cobra.Command {
	var (
		page     int
		size     int
		monthStr string
		dayStr   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades, most recently closed first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rc.requireUser(); err != nil {
				return err
			}
			q := app.ListQuery{Page: page, Size: size}
			var err error
			if q.Month, err = parseMonthFlag(monthStr); err != nil {
				return err
			}
			if q.Day, err = parseDayFlag(dayStr); err != nil {
				return err
			}

			result, err := rc.comp.Trades.ListTrades(cmd.Context(), rc.userID, q)
			if err != nil {
				return err
			}
			rows := make([]tradeRow, 0, len(result.Items))
			for _, v := range result.Items {
				rows = append(rows, toTradeRow(v))
			}
			out := domain.Page[tradeRow]{
				Items: rows, Page: result.Page, Size: result.Size, TotalElements: result.TotalElements,
				TotalPages: result.TotalPages, HasNext: result.HasNext, HasPrevious: result.HasPrevious,
			}
			return rc.render(out, func(w io.Writer) error {
				if err := writeTradeTable(w, result.Items); err != nil {
					return err
				}
				fmt.Fprintf(w, "\npage %d of %d\t(%d trades)\n", result.Page+1, result.TotalPages, result.TotalElements)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page number")
	cmd.Flags().IntVar(&size, "size", 20, "page size (1-100)")
	cmd.Flags().StringVar(&monthStr, "month", "", "only trades closed in this month (YYYY-MM)")
	cmd.Flags().StringVar(&dayStr, "day", "", "only trades closed on this date (YYYY-MM-DD)")
	return cmd
}

func (rc *rootConfig) renderTrade(cmd *cobra.Command, tradeID string) error {
	view, err := rc.comp.Trades.GetTrade(cmd.Context(), rc.userID, tradeID)
	if err != nil {
		return err
	}
	return rc.render(toTradeRow(view), func(w io.Writer) error {
		return writeTradeTable(w, []domain.TradeView{view})
	})
}

func parseMonthFlag(s string) (*domain.YearMonth, error) {
	if s == "" {
		return nil, nil
	}
	ym, err := domain.ParseYearMonth(s)
	if err != nil {
		return nil, fmt.Errorf("bad --month: %w", err)
	}
	return &ym, nil
}

func parseDayFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	day, err := domain.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("bad --day: %w", err)
	}
	return &day, nil
}
