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

// CreateAccount stores an account with its default fees and margin rates.
// An empty ID is assigned a new UUID.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin account transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertAccount = `
	INSERT INTO accounts (id, user_id, name, default_stock_fees_cents, default_option_fees_cents, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertAccount,
		account.ID, account.UserID, account.Name,
		toScaled(account.DefaultStockFees, centsExp), toScaled(account.DefaultOptionFees, centsExp),
		account.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert account %s: %w", account.Name, err)
	}

	const insertRate = `INSERT INTO account_margin_rates (account_id, currency, margin_rate_e4) VALUES (?, ?, ?)`
	for currency, rate := range account.DefaultMarginRates {
		if _, err := tx.ExecContext(ctx, insertRate, account.ID, currency, toScaled(rate, priceExp)); err != nil {
			return fmt.Errorf("failed to insert margin rate %s for account %s: %w", currency, account.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit account %s: %w", account.ID, err)
	}
	r.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": account.ID, "userID": account.UserID})
	return nil
}

// FindAccountForUser returns the account if it exists and belongs to userID.
func (r *Repository) FindAccountForUser(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	const query = `
	SELECT id, user_id, name, default_stock_fees_cents, default_option_fees_cents, created_at
	FROM accounts
	WHERE id = ? AND user_id = ?`

	a := &domain.Account{DefaultMarginRates: map[string]decimal.Decimal{}}
	var stockFees, optionFees int64
	err := r.db.QueryRowContext(ctx, query, accountID, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &stockFees, &optionFees, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Account not found for user", map[string]interface{}{"accountID": accountID})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query account %s: %w", accountID, err)
	}
	a.DefaultStockFees = fromScaled(stockFees, centsExp)
	a.DefaultOptionFees = fromScaled(optionFees, centsExp)

	rows, err := r.db.QueryContext(ctx, `SELECT currency, margin_rate_e4 FROM account_margin_rates WHERE account_id = ?`, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query margin rates for account %s: %w", a.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var currency string
		var rateE4 int64
		if err := rows.Scan(&currency, &rateE4); err != nil {
			return nil, fmt.Errorf("failed to scan margin rate: %w", err)
		}
		a.DefaultMarginRates[currency] = fromScaled(rateE4, priceExp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating margin rate rows: %w", err)
	}
	return a, nil
}
