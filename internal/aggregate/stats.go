package aggregate

import (
	"context"
	"fmt"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/pnl"
	"tradeLedger/internal/ports"

	"github.com/shopspring/decimal"
)

// Scope restricts aggregate statistics. All fields are optional.
type Scope struct {
	Year  *int
	Month *domain.YearMonth
	Day   *time.Time
}

// Stats computes statistics over the user's whole history.
func Stats(ctx context.Context, agg ports.Aggregator, userID string, conv ports.Conversion) (domain.AggregateStats, error) {
	stats, err := totals(ctx, agg, userID, conv, domain.DateRange{})
	if err != nil {
		return domain.AggregateStats{}, err
	}
	if stats.TradeCount == 0 {
		return stats, nil
	}
	if stats.BestDay, err = bestDay(ctx, agg, userID, conv, domain.DateRange{}); err != nil {
		return domain.AggregateStats{}, err
	}
	if stats.BestMonth, err = bestMonth(ctx, agg, userID, conv, domain.DateRange{}); err != nil {
		return domain.AggregateStats{}, err
	}
	return stats, nil
}

// ScopedStats computes statistics for one resolved year. The year is the
// explicit one, else that of the requested month or day, else that of the
// user's latest closed trade, else today's. Best day is searched in the
// pinned day, else the requested month, else the best month.
func ScopedStats(ctx context.Context, agg ports.Aggregator, userID string, conv ports.Conversion, scope Scope, today time.Time) (domain.AggregateStats, error) {
	year, err := resolveYear(ctx, agg, userID, scope, today)
	if err != nil {
		return domain.AggregateStats{}, err
	}
	yearRange := domain.YearRange(year)

	stats, err := totals(ctx, agg, userID, conv, yearRange)
	if err != nil {
		return domain.AggregateStats{}, err
	}
	stats.ScopedYear = &year

	switch {
	case scope.Month != nil:
		stats.ScopedMonth = scope.Month.String()
	case scope.Day != nil:
		stats.ScopedMonth = domain.YearMonthOf(*scope.Day).String()
	}

	if stats.TradeCount == 0 {
		return stats, nil
	}

	if stats.BestMonth, err = bestMonth(ctx, agg, userID, conv, yearRange); err != nil {
		return domain.AggregateStats{}, err
	}

	var dayRange domain.DateRange
	switch {
	case scope.Day != nil:
		dayRange = domain.DayRange(*scope.Day)
	case scope.Month != nil:
		dayRange = scope.Month.Range()
	case stats.BestMonth != nil:
		ym, err := domain.ParseYearMonth(stats.BestMonth.Period)
		if err != nil {
			return domain.AggregateStats{}, fmt.Errorf("failed to parse best month: %w", err)
		}
		dayRange = ym.Range()
		stats.ScopedMonth = stats.BestMonth.Period
	default:
		return stats, nil
	}

	if stats.BestDay, err = bestDay(ctx, agg, userID, conv, dayRange); err != nil {
		return domain.AggregateStats{}, err
	}
	return stats, nil
}

func resolveYear(ctx context.Context, agg ports.Aggregator, userID string, scope Scope, today time.Time) (int, error) {
	switch {
	case scope.Year != nil:
		return *scope.Year, nil
	case scope.Month != nil:
		return scope.Month.Year, nil
	case scope.Day != nil:
		return scope.Day.Year(), nil
	}
	latest, err := agg.LatestClosedAt(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve scoped year: %w", err)
	}
	if latest != nil {
		return latest.Year(), nil
	}
	return today.Year(), nil
}

func totals(ctx context.Context, agg ports.Aggregator, userID string, conv ports.Conversion, rng domain.DateRange) (domain.AggregateStats, error) {
	count, err := agg.CountTrades(ctx, userID, rng)
	if err != nil {
		return domain.AggregateStats{}, fmt.Errorf("failed to count trades: %w", err)
	}
	stats := domain.AggregateStats{TotalPnl: decimal.Zero, TradeCount: count}
	if count == 0 {
		return stats, nil
	}
	sum, err := agg.SumPnl(ctx, userID, conv, rng)
	if err != nil {
		return domain.AggregateStats{}, fmt.Errorf("failed to sum pnl: %w", err)
	}
	notional, err := agg.SumNotional(ctx, userID, conv, rng)
	if err != nil {
		return domain.AggregateStats{}, fmt.Errorf("failed to sum notional: %w", err)
	}
	stats.TotalPnl = pnl.Round2(sum)
	stats.PnlPercent = pnl.Percent(stats.TotalPnl, pnl.Round2(notional))
	return stats, nil
}

func bestDay(ctx context.Context, agg ports.Aggregator, userID string, conv ports.Conversion, rng domain.DateRange) (*domain.Bucket, error) {
	row, err := agg.BestDay(ctx, userID, conv, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to find best day: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	day, err := domain.ParseDate(row.Period)
	if err != nil {
		return nil, err
	}
	return bucketOf(ctx, agg, userID, conv, row, domain.DayRange(day))
}

func bestMonth(ctx context.Context, agg ports.Aggregator, userID string, conv ports.Conversion, rng domain.DateRange) (*domain.Bucket, error) {
	row, err := agg.BestMonth(ctx, userID, conv, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to find best month: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	ym, err := domain.ParseYearMonth(row.Period)
	if err != nil {
		return nil, err
	}
	return bucketOf(ctx, agg, userID, conv, row, ym.Range())
}

// bucketOf completes a grouped row with its percent over the period's notional.
func bucketOf(ctx context.Context, agg ports.Aggregator, userID string, conv ports.Conversion, row *domain.PeriodAggregate, rng domain.DateRange) (*domain.Bucket, error) {
	notional, err := agg.SumNotional(ctx, userID, conv, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to sum notional for %s: %w", row.Period, err)
	}
	p := pnl.Round2(row.Pnl)
	return &domain.Bucket{
		Period:     row.Period,
		Pnl:        p,
		Trades:     row.Trades,
		PnlPercent: pnl.Percent(p, pnl.Round2(notional)),
	}, nil
}
