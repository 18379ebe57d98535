package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradeLedger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const rateColumns = `id, base_currency, quote_currency, effective_date, rate_micros, created_at, updated_at`

// FindLatestRate returns the most recent history row for the pair.
func (r *Repository) FindLatestRate(ctx context.Context, base, quote string) (*domain.RateRecord, error) {
	query := `SELECT ` + rateColumns + ` FROM exchange_rates
	WHERE base_currency = ? AND quote_currency = ?
	ORDER BY effective_date DESC LIMIT 1`
	return r.findRate(ctx, query, base, quote)
}

// FindRateByDate returns the history row for the pair on date.
func (r *Repository) FindRateByDate(ctx context.Context, base, quote string, date time.Time) (*domain.RateRecord, error) {
	query := `SELECT ` + rateColumns + ` FROM exchange_rates
	WHERE base_currency = ? AND quote_currency = ? AND effective_date = ?`
	return r.findRate(ctx, query, base, quote, domain.FormatDate(date))
}

func (r *Repository) findRate(ctx context.Context, query string, args ...interface{}) (*domain.RateRecord, error) {
	rec, err := scanRate(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query exchange rate: %w", err)
	}
	return rec, nil
}

// UpsertRate updates the row for (base, quote, date) in place, or inserts it.
func (r *Repository) UpsertRate(ctx context.Context, base, quote string, date time.Time, rate decimal.Decimal) error {
	const query = `
	INSERT INTO exchange_rates (id, base_currency, quote_currency, effective_date, rate_micros, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(base_currency, quote_currency, effective_date) DO UPDATE SET
		rate_micros = excluded.rate_micros,
		updated_at = excluded.updated_at`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), base, quote, domain.FormatDate(date), toScaled(rate, rateExp), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate %s/%s on %s: %w", base, quote, domain.FormatDate(date), err)
	}
	r.logger.Debug(ctx, "Exchange rate stored", map[string]interface{}{
		"base": base, "quote": quote, "date": domain.FormatDate(date), "rate": rate.String(),
	})
	return nil
}

func scanRate(s scanner) (*domain.RateRecord, error) {
	rec := &domain.RateRecord{}
	var effective string
	var micros int64
	if err := s.Scan(&rec.ID, &rec.Base, &rec.Quote, &effective, &micros, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(effective)
	if err != nil {
		return nil, err
	}
	rec.EffectiveDate = date
	rec.Rate = fromScaled(micros, rateExp)
	return rec, nil
}
