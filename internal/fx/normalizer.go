package fx

import (
	"tradeLedger/internal/domain"
	"tradeLedger/internal/pnl"
	"tradeLedger/internal/ports"

	"github.com/shopspring/decimal"
)

// Normalizer converts native trade amounts into the reporting currency at a
// fixed rate, applied at pnl.RatePlaces. Build one per request from a single
// cache snapshot.
type Normalizer struct {
	Reporting string
	Secondary string
	Rate      decimal.Decimal
}

// NewNormalizer pins the cache's current snapshot.
func NewNormalizer(reporting, secondary string, cache *RateCache) (Normalizer, domain.RateSnapshot) {
	snap := cache.Current()
	return Normalizer{Reporting: reporting, Secondary: secondary, Rate: pnl.RoundRate(snap.Rate)}, snap
}

// Pnl returns the trade's realized P&L in the reporting currency, rounded to cents.
func (n Normalizer) Pnl(t *domain.Trade) decimal.Decimal {
	if t.Currency == n.Reporting {
		return t.RealizedPnl
	}
	return pnl.Round2(t.RealizedPnl.Mul(pnl.RoundRate(n.Rate)))
}

// Notional returns the trade's notional in the reporting currency, unrounded.
func (n Normalizer) Notional(t *domain.Trade) decimal.Decimal {
	notional := pnl.TradeNotional(t)
	if t.Currency == n.Reporting {
		return notional
	}
	return notional.Mul(pnl.RoundRate(n.Rate))
}

// Percent applies the percent rule to totals; notional is rounded to cents first.
func (n Normalizer) Percent(totalPnl, totalNotional decimal.Decimal) *decimal.Decimal {
	return pnl.Percent(totalPnl, pnl.Round2(totalNotional))
}

// Conversion describes the same rule for aggregators that push the
// arithmetic down into storage.
func (n Normalizer) Conversion() ports.Conversion {
	return ports.Conversion{Secondary: n.Secondary, Rate: n.Rate}
}
