// Package aggregate builds P&L summaries and dashboard statistics.
//
// Summarize groups a bounded set of trades in memory. Stats and ScopedStats
// run over any ports.Aggregator, so the same algorithm works whether the
// sums are computed in SQL or by the in-memory Exact implementation.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/fx"
	"tradeLedger/internal/pnl"
	"tradeLedger/internal/ports"

	"github.com/shopspring/decimal"
)

type bucketAcc struct {
	pnl      decimal.Decimal
	notional decimal.Decimal
	trades   int
}

func (a *bucketAcc) add(p, notional decimal.Decimal) {
	a.pnl = a.pnl.Add(p)
	a.notional = a.notional.Add(notional)
	a.trades++
}

// Summarize computes totals plus daily and monthly buckets, most recent first.
// Rate and FxDate are left for the caller, which knows the snapshot used.
func Summarize(trades []*domain.Trade, n fx.Normalizer) domain.PnlSummary {
	var total bucketAcc
	daily := map[string]*bucketAcc{}
	monthly := map[string]*bucketAcc{}

	for _, t := range trades {
		p := n.Pnl(t)
		notional := n.Notional(t)
		total.add(p, notional)
		accFor(daily, domain.FormatDate(t.ClosedAt)).add(p, notional)
		accFor(monthly, domain.YearMonthOf(t.ClosedAt).String()).add(p, notional)
	}

	totalPnl := pnl.Round2(total.pnl)
	return domain.PnlSummary{
		TotalPnl:   totalPnl,
		TradeCount: total.trades,
		PnlPercent: n.Percent(totalPnl, total.notional),
		Daily:      toBuckets(daily, n),
		Monthly:    toBuckets(monthly, n),
	}
}

func accFor(m map[string]*bucketAcc, key string) *bucketAcc {
	acc, ok := m[key]
	if !ok {
		acc = &bucketAcc{}
		m[key] = acc
	}
	return acc
}

// toBuckets relies on ISO labels sorting chronologically as strings.
func toBuckets(m map[string]*bucketAcc, n fx.Normalizer) []domain.Bucket {
	buckets := make([]domain.Bucket, 0, len(m))
	for period, acc := range m {
		p := pnl.Round2(acc.pnl)
		buckets = append(buckets, domain.Bucket{
			Period:     period,
			Pnl:        p,
			Trades:     acc.trades,
			PnlPercent: n.Percent(p, acc.notional),
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Period > buckets[j].Period
	})
	return buckets
}

// Exact implements ports.Aggregator by loading trades and folding them in
// memory. It is the reference the SQL implementation is checked against.
type Exact struct {
	finder ports.TradeFinder
}

// NewExact creates an in-memory aggregator over finder.
func NewExact(finder ports.TradeFinder) *Exact {
	return &Exact{finder: finder}
}

var _ ports.Aggregator = (*Exact)(nil)

func (e *Exact) load(ctx context.Context, userID string, rng domain.DateRange) ([]*domain.Trade, error) {
	var (
		trades []*domain.Trade
		err    error
	)
	if rng.IsZero() {
		trades, err = e.finder.FindAllForUser(ctx, userID)
	} else {
		trades, err = e.finder.FindByUserAndDateRange(ctx, userID, rng)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for aggregation: %w", err)
	}
	return trades, nil
}

// convertPnl applies the storage-side rule: rows in the secondary currency
// are converted at the rate rounded to pnl.RatePlaces and rounded to cents,
// everything else passes through.
func convertPnl(conv ports.Conversion, t *domain.Trade) decimal.Decimal {
	if t.Currency != conv.Secondary {
		return t.RealizedPnl
	}
	return pnl.Round2(t.RealizedPnl.Mul(pnl.RoundRate(conv.Rate)))
}

func convertNotional(conv ports.Conversion, t *domain.Trade) decimal.Decimal {
	notional := pnl.TradeNotional(t)
	if t.Currency != conv.Secondary {
		return notional
	}
	return notional.Mul(pnl.RoundRate(conv.Rate))
}

func (e *Exact) CountTrades(ctx context.Context, userID string, rng domain.DateRange) (int, error) {
	trades, err := e.load(ctx, userID, rng)
	if err != nil {
		return 0, err
	}
	return len(trades), nil
}

func (e *Exact) SumPnl(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (decimal.Decimal, error) {
	trades, err := e.load(ctx, userID, rng)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range trades {
		sum = sum.Add(convertPnl(conv, t))
	}
	return pnl.Round2(sum), nil
}

func (e *Exact) SumNotional(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (decimal.Decimal, error) {
	trades, err := e.load(ctx, userID, rng)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range trades {
		sum = sum.Add(convertNotional(conv, t))
	}
	return sum, nil
}

func (e *Exact) BestDay(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (*domain.PeriodAggregate, error) {
	return e.best(ctx, userID, conv, rng, func(t time.Time) string { return domain.FormatDate(t) })
}

func (e *Exact) BestMonth(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange) (*domain.PeriodAggregate, error) {
	return e.best(ctx, userID, conv, rng, func(t time.Time) string { return domain.YearMonthOf(t).String() })
}

func (e *Exact) best(ctx context.Context, userID string, conv ports.Conversion, rng domain.DateRange, label func(time.Time) string) (*domain.PeriodAggregate, error) {
	trades, err := e.load(ctx, userID, rng)
	if err != nil {
		return nil, err
	}
	groups := map[string]*domain.PeriodAggregate{}
	for _, t := range trades {
		key := label(t.ClosedAt)
		g, ok := groups[key]
		if !ok {
			g = &domain.PeriodAggregate{Period: key}
			groups[key] = g
		}
		g.Pnl = g.Pnl.Add(convertPnl(conv, t))
		g.Trades++
	}
	return pickBest(groups), nil
}

// pickBest returns the highest-P&L group, the earliest period on ties.
func pickBest(groups map[string]*domain.PeriodAggregate) *domain.PeriodAggregate {
	var best *domain.PeriodAggregate
	for _, g := range groups {
		if best == nil || g.Pnl.GreaterThan(best.Pnl) || (g.Pnl.Equal(best.Pnl) && g.Period < best.Period) {
			best = g
		}
	}
	if best != nil {
		best.Pnl = pnl.Round2(best.Pnl)
	}
	return best
}

func (e *Exact) LatestClosedAt(ctx context.Context, userID string) (*time.Time, error) {
	trades, err := e.load(ctx, userID, domain.DateRange{})
	if err != nil {
		return nil, err
	}
	var latest *time.Time
	for _, t := range trades {
		if latest == nil || t.ClosedAt.After(*latest) {
			c := t.ClosedAt
			latest = &c
		}
	}
	return latest, nil
}
