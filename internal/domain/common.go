package domain

// AssetType identifies the kind of instrument a trade was made in.
type AssetType string

const (
	AssetStock  AssetType = "STOCK"
	AssetOption AssetType = "OPTION"
)

// Valid reports whether the asset type is one of the supported values.
func (a AssetType) Valid() bool {
	return a == AssetStock || a == AssetOption
}

// Direction represents the side of a closed position (LONG or SHORT).
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Valid reports whether the direction is LONG or SHORT.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// OptionType is the right carried by an option contract.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// Valid reports whether the option type is CALL or PUT.
func (o OptionType) Valid() bool {
	return o == Call || o == Put
}

// RateState describes where the currently cached exchange rate came from.
type RateState string

const (
	RateFallback RateState = "FALLBACK" // Configured constant, never confirmed by a source
	RateLive     RateState = "LIVE"     // Loaded from history or a successful refresh
)

// OptionMultiplier is the contract lot size applied to option trades.
const OptionMultiplier = 100
