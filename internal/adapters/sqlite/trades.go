package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/ports"
)

const tradeColumns = `
	id, user_id, COALESCE(account_id, ''), symbol, asset_type, currency, direction, quantity,
	entry_price_e4, exit_price_e4, fees_cents, margin_rate_e4, option_type, strike_e4, expiry,
	opened_at, closed_at, pnl_cents, notes, created_at, updated_at`

// listingOrder is the canonical trade ordering: most recently closed first,
// then most recently created, then insertion order.
const listingOrder = `ORDER BY closed_at DESC, created_at DESC, rowid DESC`

// SaveTrade inserts a trade or updates it in place when its ID already exists.
func (r *Repository) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	const query = `
	INSERT INTO trades (id, user_id, account_id, symbol, asset_type, currency, direction, quantity,
	                    entry_price_e4, exit_price_e4, fees_cents, margin_rate_e4, option_type, strike_e4, expiry,
	                    opened_at, closed_at, pnl_cents, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		account_id = excluded.account_id, symbol = excluded.symbol, asset_type = excluded.asset_type,
		currency = excluded.currency, direction = excluded.direction, quantity = excluded.quantity,
		entry_price_e4 = excluded.entry_price_e4, exit_price_e4 = excluded.exit_price_e4,
		fees_cents = excluded.fees_cents, margin_rate_e4 = excluded.margin_rate_e4,
		option_type = excluded.option_type, strike_e4 = excluded.strike_e4, expiry = excluded.expiry,
		opened_at = excluded.opened_at, closed_at = excluded.closed_at, pnl_cents = excluded.pnl_cents,
		notes = excluded.notes, updated_at = excluded.updated_at
	WHERE trades.user_id = excluded.user_id`

	var (
		accountID  sql.NullString
		optionType sql.NullString
		strike     sql.NullInt64
		expiry     sql.NullString
	)
	if trade.AccountID != "" {
		accountID = sql.NullString{String: trade.AccountID, Valid: true}
	}
	if opt, ok := trade.Instrument.(domain.Option); ok {
		optionType = sql.NullString{String: string(opt.Type), Valid: true}
		strike = sql.NullInt64{Int64: toScaled(opt.Strike, priceExp), Valid: true}
		expiry = sql.NullString{String: domain.FormatDate(opt.Expiry), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.UserID, accountID, trade.Symbol, string(trade.AssetType()), trade.Currency,
		string(trade.Direction), trade.Quantity,
		toScaled(trade.EntryPrice, priceExp), toScaled(trade.ExitPrice, priceExp),
		toScaled(trade.Fees, centsExp), toScaled(trade.MarginRate, priceExp),
		optionType, strike, expiry,
		domain.FormatDate(trade.OpenedAt), domain.FormatDate(trade.ClosedAt),
		toScaled(trade.RealizedPnl, centsExp), trade.Notes,
		trade.CreatedAt.UTC(), trade.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save trade %s for symbol %s: %w", trade.ID, trade.Symbol, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade %s: %w", trade.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for user: %w", trade.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade saved", map[string]interface{}{"tradeID": trade.ID, "symbol": trade.Symbol, "pnl": trade.RealizedPnl.String()})
	return nil
}

// DeleteTrade removes the user's trade.
func (r *Repository) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	const query = `DELETE FROM trades WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, tradeID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", tradeID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete trade %s: %w", tradeID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for delete: %w", tradeID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": tradeID})
	return nil
}

// FindTradeByIDForUser retrieves a trade owned by userID.
func (r *Repository) FindTradeByIDForUser(ctx context.Context, userID, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ? AND user_id = ?`

	trade, err := scanTrade(r.db.QueryRowContext(ctx, query, tradeID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade not found by ID", map[string]interface{}{"tradeID": tradeID})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query trade by ID %s: %w", tradeID, err)
	}
	return trade, nil
}

// FindAllForUser retrieves every trade of the user in listing order.
func (r *Repository) FindAllForUser(ctx context.Context, userID string) ([]*domain.Trade, error) {
	return r.FindByUserAndDateRange(ctx, userID, domain.DateRange{})
}

// FindByUserAndDateRange retrieves the user's trades closed inside rng in listing order.
func (r *Repository) FindByUserAndDateRange(ctx context.Context, userID string, rng domain.DateRange) ([]*domain.Trade, error) {
	where, args := userWhere(userID, rng)
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE ` + where + ` ` + listingOrder
	return r.queryTrades(ctx, query, args...)
}

// ListTrades returns one page of the user's trades and the total number of matches.
func (r *Repository) ListTrades(ctx context.Context, userID string, filter ports.TradeFilter, page domain.PageRequest) ([]*domain.Trade, int64, error) {
	var rng domain.DateRange
	switch {
	case filter.Day != nil:
		rng = domain.DayRange(*filter.Day)
	case filter.Month != nil:
		rng = filter.Month.Range()
	}
	where, args := userWhere(userID, rng)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trades for listing: %w", err)
	}

	query := `SELECT ` + tradeColumns + ` FROM trades WHERE ` + where + ` ` + listingOrder + ` LIMIT ? OFFSET ?`
	trades, err := r.queryTrades(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// userWhere builds the user and closed-date predicate shared by trade queries.
// A zero range adds no date bound.
func userWhere(userID string, rng domain.DateRange) (string, []interface{}) {
	clauses := []string{"user_id = ?"}
	args := []interface{}{userID}
	if !rng.Start.IsZero() {
		clauses = append(clauses, "closed_at >= ?")
		args = append(args, domain.FormatDate(rng.Start))
	}
	if !rng.End.IsZero() {
		clauses = append(clauses, "closed_at < ?")
		args = append(args, domain.FormatDate(rng.End))
	}
	return strings.Join(clauses, " AND "), args
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		assetType, direction         string
		entryE4, exitE4              int64
		feesCents, marginE4, pnlCent int64
		optionType, expiry           sql.NullString
		strike                       sql.NullInt64
		openedAt, closedAt           string
		createdAt, updatedAt         time.Time
	)
	err := s.Scan(
		&t.ID, &t.UserID, &t.AccountID, &t.Symbol, &assetType, &t.Currency, &direction, &t.Quantity,
		&entryE4, &exitE4, &feesCents, &marginE4, &optionType, &strike, &expiry,
		&openedAt, &closedAt, &pnlCent, &t.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}

	t.Direction = domain.Direction(direction)
	t.EntryPrice = fromScaled(entryE4, priceExp)
	t.ExitPrice = fromScaled(exitE4, priceExp)
	t.Fees = fromScaled(feesCents, centsExp)
	t.MarginRate = fromScaled(marginE4, priceExp)
	t.RealizedPnl = fromScaled(pnlCent, centsExp)
	t.CreatedAt = createdAt
	t.UpdatedAt = updatedAt

	if t.OpenedAt, err = domain.ParseDate(openedAt); err != nil {
		return nil, err
	}
	if t.ClosedAt, err = domain.ParseDate(closedAt); err != nil {
		return nil, err
	}

	switch domain.AssetType(assetType) {
	case domain.AssetOption:
		if !optionType.Valid || !strike.Valid || !expiry.Valid {
			return nil, fmt.Errorf("option trade %s is missing option terms", t.ID)
		}
		exp, err := domain.ParseDate(expiry.String)
		if err != nil {
			return nil, err
		}
		t.Instrument = domain.Option{
			Type:   domain.OptionType(optionType.String),
			Strike: fromScaled(strike.Int64, priceExp),
			Expiry: exp,
		}
	default:
		t.Instrument = domain.Stock{}
	}
	return t, nil
}
