// Package pnl computes realized profit and loss for closed trades.
//
// All functions are pure. Rounding is half away from zero, which for
// decimal amounts is the same as the accounting "half up" convention.
package pnl

import (
	"time"

	"tradeLedger/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the scale of every stored or reported amount.
	MoneyPlaces = 2
	// FractionPlaces is the scale of intermediate ratios (year fraction, rate).
	FractionPlaces = 10
	// PricePlaces is the scale prices and margin rates are stored at.
	PricePlaces = 4
	// RatePlaces is the scale exchange rates are cached and stored at.
	RatePlaces = 6
)

var (
	daysInYear = decimal.NewFromInt(365)
	hundred    = decimal.NewFromInt(100)
)

// Input holds the trade fields the calculation depends on.
type Input struct {
	Direction  domain.Direction
	Quantity   int64
	Multiplier int64
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Fees       decimal.Decimal
	MarginRate decimal.Decimal // Annualized percent
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// InputFromTrade extracts the calculation input from a trade.
func InputFromTrade(t *domain.Trade) Input {
	return Input{
		Direction:  t.Direction,
		Quantity:   t.Quantity,
		Multiplier: t.Multiplier(),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Fees:       t.Fees,
		MarginRate: t.MarginRate,
		OpenedAt:   t.OpenedAt,
		ClosedAt:   t.ClosedAt,
	}
}

// RealizedPnl returns gross movement minus fees and margin carrying cost,
// rounded to cents.
func RealizedPnl(in Input) decimal.Decimal {
	movement := in.ExitPrice.Sub(in.EntryPrice)
	if in.Direction == domain.Short {
		movement = movement.Neg()
	}
	gross := movement.Mul(decimal.NewFromInt(in.Quantity)).Mul(decimal.NewFromInt(multiplier(in)))
	return Round2(gross.Sub(in.Fees).Sub(MarginFee(in)))
}

// MarginFee returns the time-proportional financing cost of holding the
// position, rounded to cents. Zero when no rate applies or the position was
// opened and closed on the same day.
func MarginFee(in Input) decimal.Decimal {
	if !in.MarginRate.IsPositive() {
		return decimal.Zero
	}
	if in.OpenedAt.IsZero() || in.ClosedAt.IsZero() {
		return decimal.Zero
	}
	daysHeld := domain.DaysBetween(in.OpenedAt, in.ClosedAt)
	if daysHeld <= 0 {
		return decimal.Zero
	}
	notional := Notional(in.EntryPrice, in.Quantity, multiplier(in))
	if !notional.IsPositive() {
		return decimal.Zero
	}
	yearFraction := decimal.NewFromInt(daysHeld).DivRound(daysInYear, FractionPlaces)
	rate := in.MarginRate.DivRound(hundred, FractionPlaces)
	return Round2(notional.Mul(rate).Mul(yearFraction))
}

// Notional is the absolute exposure |entry × quantity × multiplier|.
func Notional(entry decimal.Decimal, quantity, multiplier int64) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(quantity)).Mul(decimal.NewFromInt(multiplier)).Abs()
}

// TradeNotional is the native-currency notional of a trade.
func TradeNotional(t *domain.Trade) decimal.Decimal {
	return Notional(t.EntryPrice, t.Quantity, t.Multiplier())
}

// Percent returns pnl as a percentage of notional, rounded to cents, or nil
// when notional is not positive.
func Percent(pnl, notional decimal.Decimal) *decimal.Decimal {
	if !notional.IsPositive() {
		return nil
	}
	pct := pnl.Mul(hundred).DivRound(notional, MoneyPlaces)
	return &pct
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundRate rounds an exchange rate to RatePlaces, half away from zero.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// RoundPrice rounds a price or margin rate to PricePlaces.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PricePlaces)
}

func multiplier(in Input) int64 {
	if in.Multiplier <= 0 {
		return 1
	}
	return in.Multiplier
}
