package ports

import (
	"context"

	"tradeLedger/internal/domain"
)

// QuoteSource returns exchange-rate quotes from an external provider.
// Implementations must honour ctx cancellation; callers bound it with a timeout.
type QuoteSource interface {
	// Name identifies the source in logs and rate snapshots.
	Name() string
	// FetchQuotes returns zero or more quote records. An empty result is not an error.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)
}
