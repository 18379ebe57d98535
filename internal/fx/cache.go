// Package fx holds the process-wide exchange rate, its refresh lifecycle and
// the conversion of native trade amounts into the reporting currency.
package fx

import (
	"fmt"
	"sync/atomic"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/pnl"

	"github.com/shopspring/decimal"
)

// FallbackSource names the snapshot installed before any rate was confirmed.
const FallbackSource = "fallback"

// RateCache holds the current rate snapshot. Reads never block; the rate and
// its date always come from the same snapshot.
type RateCache struct {
	current atomic.Pointer[domain.RateSnapshot]
}

// NewRateCache creates a cache in the FALLBACK state holding rate as of today.
// Rates are held at pnl.RatePlaces.
func NewRateCache(fallback decimal.Decimal, today time.Time) (*RateCache, error) {
	fallback = pnl.RoundRate(fallback)
	if !fallback.IsPositive() {
		return nil, fmt.Errorf("fallback rate must be positive, got %s", fallback)
	}
	c := &RateCache{}
	c.current.Store(&domain.RateSnapshot{
		Rate:   fallback,
		AsOf:   domain.DateOf(today),
		State:  domain.RateFallback,
		Source: FallbackSource,
	})
	return c, nil
}

// Current returns a copy of the current snapshot.
func (c *RateCache) Current() domain.RateSnapshot {
	return *c.current.Load()
}

// CurrentRate returns reporting-currency units per 1 unit of the secondary currency.
func (c *RateCache) CurrentRate() decimal.Decimal {
	return c.current.Load().Rate
}

// AsOfDate returns the date the current rate was confirmed effective.
func (c *RateCache) AsOfDate() time.Time {
	return c.current.Load().AsOf
}

// State reports whether the rate is the configured fallback or a confirmed one.
func (c *RateCache) State() domain.RateState {
	return c.current.Load().State
}

// Replace swaps in a confirmed rate, rounded to pnl.RatePlaces. Rates that
// are not positive after rounding are rejected and leave the cache untouched.
func (c *RateCache) Replace(rate decimal.Decimal, asOf time.Time, source string) error {
	rate = pnl.RoundRate(rate)
	if !rate.IsPositive() {
		return fmt.Errorf("refusing non-positive rate %s", rate)
	}
	c.current.Store(&domain.RateSnapshot{
		Rate:   rate,
		AsOf:   domain.DateOf(asOf),
		State:  domain.RateLive,
		Source: source,
	})
	return nil
}
