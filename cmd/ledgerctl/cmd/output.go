package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tradeLedger/internal/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// render writes v as JSON or YAML, or calls table with a tab-aligned writer.
func (rc *rootConfig) render(v interface{}, table func(w io.Writer) error) error {
	switch rc.output {
	case outputJSON:
		enc := json.NewEncoder(rc.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(rc.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(rc.out, 0, 4, 2, ' ', 0)
		if err := table(tw); err != nil {
			return err
		}
		return tw.Flush()
	}
}

// formatMoney renders an amount with the currency's symbol, e.g. -$1,234.50.
func formatMoney(amount decimal.Decimal, code string) string {
	cents := amount.Round(2).Shift(2).IntPart()
	return money.New(cents, code).Display()
}

func formatPercent(p *decimal.Decimal) string {
	if p == nil {
		return "-"
	}
	return p.StringFixed(2) + "%"
}

func optionalFixed(p *decimal.Decimal, places int32) *string {
	if p == nil {
		return nil
	}
	s := p.StringFixed(places)
	return &s
}

// tradeRow is the rendered form of a trade: fixed scales, ISO dates.
type tradeRow struct {
	ID          string  `json:"id" yaml:"id"`
	Symbol      string  `json:"symbol" yaml:"symbol"`
	AssetType   string  `json:"assetType" yaml:"assetType"`
	OptionType  string  `json:"optionType,omitempty" yaml:"optionType,omitempty"`
	Strike      string  `json:"strike,omitempty" yaml:"strike,omitempty"`
	Expiry      string  `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Currency    string  `json:"currency" yaml:"currency"`
	Direction   string  `json:"direction" yaml:"direction"`
	Quantity    int64   `json:"quantity" yaml:"quantity"`
	EntryPrice  string  `json:"entryPrice" yaml:"entryPrice"`
	ExitPrice   string  `json:"exitPrice" yaml:"exitPrice"`
	Fees        string  `json:"fees" yaml:"fees"`
	MarginRate  string  `json:"marginRate" yaml:"marginRate"`
	OpenedAt    string  `json:"openedAt" yaml:"openedAt"`
	ClosedAt    string  `json:"closedAt" yaml:"closedAt"`
	RealizedPnl string  `json:"realizedPnl" yaml:"realizedPnl"`
	PnlPercent  *string `json:"pnlPercent" yaml:"pnlPercent"`
	AccountID   string  `json:"accountId,omitempty" yaml:"accountId,omitempty"`
	Notes       string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func toTradeRow(v domain.TradeView) tradeRow {
	t := v.Trade
	row := tradeRow{
		ID:          t.ID,
		Symbol:      t.Symbol,
		AssetType:   string(t.AssetType()),
		Currency:    t.Currency,
		Direction:   string(t.Direction),
		Quantity:    t.Quantity,
		EntryPrice:  t.EntryPrice.StringFixed(4),
		ExitPrice:   t.ExitPrice.StringFixed(4),
		Fees:        t.Fees.StringFixed(2),
		MarginRate:  t.MarginRate.StringFixed(4),
		OpenedAt:    domain.FormatDate(t.OpenedAt),
		ClosedAt:    domain.FormatDate(t.ClosedAt),
		RealizedPnl: t.RealizedPnl.StringFixed(2),
		PnlPercent:  optionalFixed(v.PnlPercent, 2),
		AccountID:   t.AccountID,
		Notes:       t.Notes,
	}
	if opt, ok := t.Instrument.(domain.Option); ok {
		row.OptionType = string(opt.Type)
		row.Strike = opt.Strike.StringFixed(4)
		row.Expiry = domain.FormatDate(opt.Expiry)
	}
	return row
}

func writeTradeTable(w io.Writer, views []domain.TradeView) error {
	fmt.Fprintln(w, "ID\tCLOSED\tSYMBOL\tTYPE\tDIR\tQTY\tENTRY\tEXIT\tPNL\tPNL%")
	for _, v := range views {
		t := v.Trade
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			t.ID, domain.FormatDate(t.ClosedAt), t.Symbol, t.AssetType(), t.Direction, t.Quantity,
			t.EntryPrice.StringFixed(4), t.ExitPrice.StringFixed(4),
			formatMoney(t.RealizedPnl, t.Currency), formatPercent(v.PnlPercent))
	}
	return nil
}

func writeBuckets(w io.Writer, title string, buckets []domain.Bucket, currency string) {
	fmt.Fprintf(w, "\n%s\tPNL\tTRADES\tPNL%%\n", title)
	for _, b := range buckets {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", b.Period, formatMoney(b.Pnl, currency), b.Trades, formatPercent(b.PnlPercent))
	}
}
