package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket is a dated aggregation unit (one day or one month).
type Bucket struct {
	Period     string           `json:"period" yaml:"period"`
	Pnl        decimal.Decimal  `json:"pnl" yaml:"pnl"`
	Trades     int              `json:"trades" yaml:"trades"`
	PnlPercent *decimal.Decimal `json:"pnlPercent" yaml:"pnlPercent"` // nil when no notional is available
}

// PnlSummary is the exact, in-memory summary of a bounded trade set.
type PnlSummary struct {
	TotalPnl   decimal.Decimal  `json:"totalPnl" yaml:"totalPnl"`
	TradeCount int              `json:"tradeCount" yaml:"tradeCount"`
	PnlPercent *decimal.Decimal `json:"pnlPercent" yaml:"pnlPercent"`
	Daily      []Bucket         `json:"daily" yaml:"daily"`
	Monthly    []Bucket         `json:"monthly" yaml:"monthly"`
	Rate       decimal.Decimal  `json:"rate" yaml:"rate"`
	FxDate     string           `json:"fxDate" yaml:"fxDate"`
}

// AggregateStats are dashboard statistics computed without materializing trades.
type AggregateStats struct {
	TotalPnl    decimal.Decimal  `json:"totalPnl" yaml:"totalPnl"`
	TradeCount  int              `json:"tradeCount" yaml:"tradeCount"`
	PnlPercent  *decimal.Decimal `json:"pnlPercent" yaml:"pnlPercent"`
	BestDay     *Bucket          `json:"bestDay" yaml:"bestDay"`
	BestMonth   *Bucket          `json:"bestMonth" yaml:"bestMonth"`
	Rate        decimal.Decimal  `json:"rate" yaml:"rate"`
	FxDate      string           `json:"fxDate" yaml:"fxDate"`
	ScopedYear  *int             `json:"scopedYear,omitempty" yaml:"scopedYear,omitempty"`
	ScopedMonth string           `json:"scopedMonth,omitempty" yaml:"scopedMonth,omitempty"`
}

// PeriodAggregate is one grouped row returned by a best-day or best-month query.
type PeriodAggregate struct {
	Period string
	Pnl    decimal.Decimal
	Trades int
}

// TradeView is a trade together with its return over native notional.
type TradeView struct {
	Trade      Trade            `json:"trade" yaml:"trade"`
	PnlPercent *decimal.Decimal `json:"pnlPercent" yaml:"pnlPercent"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items         []T   `json:"items" yaml:"items"`
	Page          int   `json:"page" yaml:"page"`
	Size          int   `json:"size" yaml:"size"`
	TotalElements int64 `json:"totalElements" yaml:"totalElements"`
	TotalPages    int   `json:"totalPages" yaml:"totalPages"`
	HasNext       bool  `json:"hasNext" yaml:"hasNext"`
	HasPrevious   bool  `json:"hasPrevious" yaml:"hasPrevious"`
}

const (
	MinPageSize = 1
	MaxPageSize = 100
)

// PageRequest is a zero-based page number and a page size.
type PageRequest struct {
	Page int
	Size int
}

// Clamp bounds the size to [MinPageSize, MaxPageSize] and floors the page at 0.
func (p PageRequest) Clamp() PageRequest {
	if p.Size < MinPageSize {
		p.Size = MinPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// NewPage wraps items with the page metadata derived from total.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:         items,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       req.Page+1 < totalPages,
		HasPrevious:   req.Page > 0,
	}
}

// Account holds the per-account defaults applied to new trades.
type Account struct {
	ID                 string
	UserID             string
	Name               string
	DefaultStockFees   decimal.Decimal
	DefaultOptionFees  decimal.Decimal
	DefaultMarginRates map[string]decimal.Decimal // Keyed by currency code
	CreatedAt          time.Time
}

// DefaultFees returns the account fee for the given asset type.
func (a *Account) DefaultFees(assetType AssetType) decimal.Decimal {
	if assetType == AssetOption {
		return a.DefaultOptionFees
	}
	return a.DefaultStockFees
}

// DefaultMarginRate returns the account margin rate for currency, zero when unset.
func (a *Account) DefaultMarginRate(currency string) decimal.Decimal {
	if rate, ok := a.DefaultMarginRates[currency]; ok {
		return rate
	}
	return decimal.Zero
}
