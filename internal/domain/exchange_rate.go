package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSnapshot is the cached exchange rate together with the date it was
// confirmed effective. Snapshots are immutable and replaced as a whole.
type RateSnapshot struct {
	Rate   decimal.Decimal // Reporting-currency units per 1 unit of the secondary currency
	AsOf   time.Time       // Civil date the rate was effective
	State  RateState
	Source string
}

// RateRecord is one persisted row of rate history.
type RateRecord struct {
	ID            string
	Base          string // Secondary currency, e.g. CAD
	Quote         string // Reporting currency, e.g. USD
	EffectiveDate time.Time
	Rate          decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Quote is one record reported by an external quote source: 1 From = Rate To.
type Quote struct {
	From      string
	To        string
	Rate      decimal.Decimal
	Timestamp time.Time
}
