// Package export writes trade listings to flat files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"tradeLedger/internal/domain"
)

var header = []string{
	"id", "symbol", "asset_type", "option_type", "strike", "expiry", "currency", "direction",
	"quantity", "entry_price", "exit_price", "fees", "margin_rate", "opened_at", "closed_at",
	"realized_pnl", "pnl_percent", "account_id", "notes",
}

// WriteTradesToCSV writes views to filename, replacing any existing file.
func WriteTradesToCSV(views []domain.TradeView, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteTrades(file, views); err != nil {
		return err
	}
	return file.Close()
}

// WriteTrades writes a header row and one row per trade. Amounts keep their
// stored scale; an unavailable percent is an empty cell.
func WriteTrades(w io.Writer, views []domain.TradeView) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, v := range views {
		if err := writer.Write(row(v)); err != nil {
			return fmt.Errorf("failed to write trade %s: %w", v.Trade.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func row(v domain.TradeView) []string {
	t := v.Trade
	var optionType, strike, expiry string
	if opt, ok := t.Instrument.(domain.Option); ok {
		optionType = string(opt.Type)
		strike = opt.Strike.StringFixed(4)
		expiry = domain.FormatDate(opt.Expiry)
	}
	percent := ""
	if v.PnlPercent != nil {
		percent = v.PnlPercent.StringFixed(2)
	}
	return []string{
		t.ID,
		t.Symbol,
		string(t.AssetType()),
		optionType,
		strike,
		expiry,
		t.Currency,
		string(t.Direction),
		strconv.FormatInt(t.Quantity, 10),
		t.EntryPrice.StringFixed(4),
		t.ExitPrice.StringFixed(4),
		t.Fees.StringFixed(2),
		t.MarginRate.StringFixed(4),
		domain.FormatDate(t.OpenedAt),
		domain.FormatDate(t.ClosedAt),
		t.RealizedPnl.StringFixed(2),
		percent,
		t.AccountID,
		t.Notes,
	}
}
