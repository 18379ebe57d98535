package ports

import (
	"context"
	"time"

	"tradeLedger/internal/domain"

	"github.com/shopspring/decimal"
)

// TradeFilter narrows a trade listing to one month or one day.
// When both are set, Day wins.
type TradeFilter struct {
	Month *domain.YearMonth
	Day   *time.Time
}

// TradeFinder loads materialized trades for a user.
type TradeFinder interface {
	// FindAllForUser returns every trade of the user ordered by closed date
	// descending, then creation order descending.
	FindAllForUser(ctx context.Context, userID string) ([]*domain.Trade, error)
	// FindByUserAndDateRange returns the user's trades closed inside rng, same ordering.
	FindByUserAndDateRange(ctx context.Context, userID string, rng domain.DateRange) ([]*domain.Trade, error)
}

// TradeRepository defines the interface for storing and retrieving trades.
type TradeRepository interface {
	TradeFinder
	// SaveTrade inserts the trade, or replaces it when a trade with its ID exists.
	SaveTrade(ctx context.Context, trade *domain.Trade) error
	// DeleteTrade removes the user's trade. Returns ErrNotFound if nothing was deleted.
	DeleteTrade(ctx context.Context, userID, tradeID string) error
	// FindTradeByIDForUser retrieves a trade owned by userID.
	// Returns nil, nil if no such trade exists for that user.
	FindTradeByIDForUser(ctx context.Context, userID, tradeID string) (*domain.Trade, error)
	// ListTrades returns one page of the user's trades and the total match count.
	ListTrades(ctx context.Context, userID string, filter TradeFilter, page domain.PageRequest) ([]*domain.Trade, int64, error)
}

// AccountRepository looks up accounts used for fee and margin defaulting.
type AccountRepository interface {
	// FindAccountForUser returns nil, nil if the account does not exist or has another owner.
	FindAccountForUser(ctx context.Context, userID, accountID string) (*domain.Account, error)
}

// RateHistoryRepository persists confirmed exchange rates.
type RateHistoryRepository interface {
	// FindLatestRate returns the most recent row for the pair, or nil, nil.
	FindLatestRate(ctx context.Context, base, quote string) (*domain.RateRecord, error)
	// FindRateByDate returns the row for the pair and date, or nil, nil.
	FindRateByDate(ctx context.Context, base, quote string, date time.Time) (*domain.RateRecord, error)
	// UpsertRate updates the row for (base, quote, date) in place or inserts it.
	UpsertRate(ctx context.Context, base, quote string, date time.Time, rate decimal.Decimal) error
}

// Conversion describes how native amounts are brought into the reporting
// currency: rows in Secondary are multiplied by Rate, everything else passes through.
// Implementations apply Rate at 6 decimal places, rounded half away from zero.
type Conversion struct {
	Secondary string
	Rate      decimal.Decimal
}

// Aggregator computes aggregate statistics over a user's trades. A zero
// DateRange means the user's whole history.
//
// Two implementations exist: one pushed down into SQL and one computed in
// memory over materialized trades. Both must return identical results.
type Aggregator interface {
	CountTrades(ctx context.Context, userID string, rng domain.DateRange) (int, error)
	// SumPnl sums per-trade converted P&L, each rounded to cents before summing.
	SumPnl(ctx context.Context, userID string, conv Conversion, rng domain.DateRange) (decimal.Decimal, error)
	// SumNotional sums converted notional, unrounded.
	SumNotional(ctx context.Context, userID string, conv Conversion, rng domain.DateRange) (decimal.Decimal, error)
	// BestDay returns the closed-date group with the highest P&L, earliest date on ties.
	// Returns nil, nil when no trades match.
	BestDay(ctx context.Context, userID string, conv Conversion, rng domain.DateRange) (*domain.PeriodAggregate, error)
	// BestMonth returns the closed-month group with the highest P&L, earliest month on ties.
	BestMonth(ctx context.Context, userID string, conv Conversion, rng domain.DateRange) (*domain.PeriodAggregate, error)
	// LatestClosedAt returns the most recent closed date, or nil when the user has no trades.
	LatestClosedAt(ctx context.Context, userID string) (*time.Time, error)
}
