package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxSymbolLength = 12
	MaxNotesLength  = 500

	// Upper bounds on trade size. They keep the integer sums and rate
	// products of the SQL aggregates inside int64.
	MaxQuantity   = 10_000_000
	MaxTradeValue = 100_000_000 // Per side: price × quantity × multiplier, and fees
	MaxMarginRate = 100         // Annual percent
)

// Instrument is what a trade was made in: a Stock or an Option.
// The option fields only exist on the Option variant, so a trade can never
// carry a partial set of them.
type Instrument interface {
	AssetType() AssetType
	Multiplier() int64
	isInstrument()
}

// Stock is a plain equity instrument.
type Stock struct{}

func (Stock) AssetType() AssetType { return AssetStock }
func (Stock) Multiplier() int64    { return 1 }
func (Stock) isInstrument()        {}

// Option is an option contract with its defining terms.
type Option struct {
	Type   OptionType
	Strike decimal.Decimal
	Expiry time.Time
}

func (Option) AssetType() AssetType { return AssetOption }
func (Option) Multiplier() int64    { return OptionMultiplier }
func (Option) isInstrument()        {}

// NewInstrument builds the instrument variant for assetType. Option fields are
// ignored for stocks and all required for options.
func NewInstrument(assetType AssetType, optionType *OptionType, strike *decimal.Decimal, expiry *time.Time) (Instrument, error) {
	switch assetType {
	case AssetStock:
		return Stock{}, nil
	case AssetOption:
		if optionType == nil || strike == nil || expiry == nil {
			return nil, NewValidationError(ReasonOptionFields)
		}
		if !optionType.Valid() {
			return nil, NewValidationError("Unsupported option type " + string(*optionType))
		}
		if strike.IsNegative() {
			return nil, NewValidationError("Strike price cannot be negative")
		}
		return Option{Type: *optionType, Strike: *strike, Expiry: DateOf(*expiry)}, nil
	default:
		return nil, NewValidationError("Unsupported asset type " + string(assetType))
	}
}

// Trade is one closed position owned by a user.
type Trade struct {
	ID          string
	UserID      string
	AccountID   string // Optional owning account, empty when unset
	Symbol      string
	Instrument  Instrument
	Currency    string
	Direction   Direction
	Quantity    int64
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Fees        decimal.Decimal
	MarginRate  decimal.Decimal // Annualized percent
	OpenedAt    time.Time
	ClosedAt    time.Time
	RealizedPnl decimal.Decimal // Derived at write time, native currency
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AssetType is a shortcut for the instrument's asset type.
func (t *Trade) AssetType() AssetType {
	if t.Instrument == nil {
		return AssetStock
	}
	return t.Instrument.AssetType()
}

// Multiplier is a shortcut for the instrument's lot multiplier.
func (t *Trade) Multiplier() int64 {
	if t.Instrument == nil {
		return 1
	}
	return t.Instrument.Multiplier()
}

// TradeInput carries the caller-supplied fields for a create or update.
// Optional values are pointers; nil means "not supplied".
type TradeInput struct {
	Symbol     string
	AssetType  AssetType
	Currency   string
	Direction  Direction
	Quantity   int64
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Fees       *decimal.Decimal
	MarginRate *decimal.Decimal
	AccountID  string
	OptionType *OptionType
	Strike     *decimal.Decimal
	Expiry     *time.Time
	OpenedAt   time.Time
	ClosedAt   time.Time
	Notes      string
}

// NormalizedSymbol returns the trimmed, upper-cased symbol.
func (in TradeInput) NormalizedSymbol() string {
	return strings.ToUpper(strings.TrimSpace(in.Symbol))
}

// Validate checks the field-level rules of a trade write. Currency support
// is checked by the caller, which knows the configured currencies.
func (in TradeInput) Validate() error {
	symbol := in.NormalizedSymbol()
	if symbol == "" {
		return NewValidationError("Symbol is required")
	}
	if len(symbol) > MaxSymbolLength {
		return NewValidationError("Symbol must be at most 12 characters")
	}
	if !in.AssetType.Valid() {
		return NewValidationError("Unsupported asset type " + string(in.AssetType))
	}
	if in.AssetType == AssetOption && (in.OptionType == nil || in.Strike == nil || in.Expiry == nil) {
		return NewValidationError(ReasonOptionFields)
	}
	if !in.Direction.Valid() {
		return NewValidationError("Unsupported direction " + string(in.Direction))
	}
	if in.Quantity <= 0 {
		return NewValidationError("Quantity must be positive")
	}
	if in.Quantity > MaxQuantity {
		return NewValidationError("Quantity must be at most 10000000")
	}
	if in.EntryPrice.IsNegative() || in.ExitPrice.IsNegative() {
		return NewValidationError("Prices cannot be negative")
	}
	maxValue := decimal.NewFromInt(MaxTradeValue)
	units := decimal.NewFromInt(in.Quantity)
	if in.AssetType == AssetOption {
		units = units.Mul(decimal.NewFromInt(OptionMultiplier))
	}
	if in.EntryPrice.Mul(units).GreaterThan(maxValue) || in.ExitPrice.Mul(units).GreaterThan(maxValue) {
		return NewValidationError("Trade value must be at most 100000000")
	}
	if in.Fees != nil && in.Fees.IsNegative() {
		return NewValidationError("Fees cannot be negative")
	}
	if in.Fees != nil && in.Fees.GreaterThan(maxValue) {
		return NewValidationError("Fees must be at most 100000000")
	}
	if in.MarginRate != nil && in.MarginRate.GreaterThan(decimal.NewFromInt(MaxMarginRate)) {
		return NewValidationError("Margin rate must be at most 100")
	}
	if in.MarginRate != nil && in.MarginRate.IsNegative() {
		return NewValidationError("Margin rate cannot be negative")
	}
	if in.OpenedAt.IsZero() || in.ClosedAt.IsZero() {
		return NewValidationError("Open and close dates are required")
	}
	if DateOf(in.OpenedAt).After(DateOf(in.ClosedAt)) {
		return NewValidationError(ReasonCloseBeforeOpen)
	}
	if len(in.Notes) > MaxNotesLength {
		return NewValidationError("Notes must be at most 500 characters")
	}
	return nil
}
