package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/ports"

	"github.com/shopspring/decimal"
)

// convertedPnl converts pnl_cents of secondary-currency rows at a rate given
// in micros, rounding half away from zero to whole cents. Arguments: the
// secondary currency, then the rate twice.
const convertedPnl = `
	CASE WHEN currency = ? THEN
		CASE WHEN pnl_cents >= 0 THEN (pnl_cents * ? + 500000) / 1000000
		     ELSE -((-pnl_cents * ? + 500000) / 1000000) END
	ELSE pnl_cents END`

func conversionArgs(conv ports.Conversion) []interface{} {
	micros := toScaled(conv.Rate, rateExp)
	return []interface{}{conv.Secondary, micros, micros}
}

// CountTrades counts the user's trades closed inside rng.
func (r *Repository) CountTrades(ctx context.Context, userID string, rng domain.DateRange) (int, error) {
	where, args := userWhere(userID, rng)
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count trades: %v", ports.ErrQueryFailed, err)
	}
	return count, nil
}

// SumPnl sums converted per-trade P&L.
func (r *Repository) SumPnl(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (decimal.Decimal, error) {
	where, args := userWhere(userID, rng)
	query := `SELECT COALESCE(SUM(` + convertedPnl + `), 0) FROM trades WHERE ` + where

	var cents int64
	if err := r.db.QueryRowContext(ctx, query, append(conversionArgs(conv), args...)...).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("%w: sum pnl: %v", ports.ErrQueryFailed, err)
	}
	return fromScaled(cents, centsExp), nil
}

// SumNotional sums native notional per currency in SQL and applies the rate
// to the secondary-currency total.
func (r *Repository) SumNotional(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (decimal.Decimal, error) {
	where, args := userWhere(userID, rng)
	query := `
	SELECT currency, COALESCE(SUM(entry_price_e4 * quantity * CASE asset_type WHEN 'OPTION' THEN 100 ELSE 1 END), 0)
	FROM trades WHERE ` + where + `
	GROUP BY currency`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: sum notional: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var currency string
		var sumE4 int64
		if err := rows.Scan(&currency, &sumE4); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan notional row: %w", err)
		}
		notional := fromScaled(sumE4, priceExp)
		if currency == conv.Secondary {
			notional = notional.Mul(conv.Rate)
		}
		total = total.Add(notional)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating notional rows: %w", err)
	}
	return total, nil
}

// BestDay returns the closed date with the highest converted P&L; the
// earliest date wins ties.
func (r *Repository) BestDay(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (*domain.PeriodAggregate, error) {
	return r.best(ctx, "closed_at", userID, conv, rng)
}

// BestMonth returns the closed month with the highest converted P&L; the
// earliest month wins ties.
func (r *Repository) BestMonth(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (*domain.PeriodAggregate, error) {
	return r.best(ctx, "substr(closed_at, 1, 7)", userID, conv, rng)
}

func (r *Repository) best(ctx context.Context, periodExpr, userID string, conv ports.Conversion, rng domain.DateRange) (*domain.PeriodAggregate, error) {
	where, args := userWhere(userID, rng)
	query := `
	SELECT ` + periodExpr + ` AS period, SUM(` + convertedPnl + `) AS pnl, COUNT(*)
	FROM trades WHERE ` + where + `
	GROUP BY period
	ORDER BY pnl DESC, period ASC
	LIMIT 1`

	var (
		row   domain.PeriodAggregate
		cents int64
	)
	err := r.db.QueryRowContext(ctx, query, append(conversionArgs(conv), args...)...).Scan(&row.Period, &cents, &row.Trades)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: best period: %v", ports.ErrQueryFailed, err)
	}
	row.Pnl = fromScaled(cents, centsExp)
	return &row, nil
}

// LatestClosedAt returns the user's most recent closed date.
func (r *Repository) LatestClosedAt(ctx context.Context, userID string) (*time.Time, error) {
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(closed_at) FROM trades WHERE user_id = ?`, userID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("%w: latest closed date: %v", ports.ErrQueryFailed, err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t, err := domain.ParseDate(latest.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
