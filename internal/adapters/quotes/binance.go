package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

const baseURLProduction = "https://api.binance.com"

// BinanceSource reads the last traded price of one spot symbol and reports
// it as a quote for the symbol's currency pair, stamped with server time.
type BinanceSource struct {
	client *binance.Client
	symbol string
	from   string
	to     string
	logger ports.Logger
}

// BinanceConfig holds configuration specific to the Binance quote source.
type BinanceConfig struct {
	Symbol  string // e.g. USDTCAD
	From    string // Defaults to the symbol minus its last three letters
	To      string // Defaults to the symbol's last three letters
	BaseURL string // Optional override, used by tests
	Logger  ports.Logger
}

// NewBinanceSource creates a Binance-backed quote source. Only public
// endpoints are used, so no API keys are needed.
func NewBinanceSource(cfg BinanceConfig) (*BinanceSource, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance quote source")
	}
	symbol := strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if len(symbol) < 6 {
		return nil, fmt.Errorf("%w: invalid Binance symbol %q", ports.ErrConfigurationError, cfg.Symbol)
	}
	from, to := strings.ToUpper(cfg.From), strings.ToUpper(cfg.To)
	if from == "" {
		from = symbol[:len(symbol)-3]
	}
	if to == "" {
		to = symbol[len(symbol)-3:]
	}

	client := binance.NewClient("", "")
	client.BaseURL = baseURLProduction
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	cfg.Logger.Info(context.Background(), "Binance quote source configured", map[string]interface{}{
		"baseURL": client.BaseURL, "symbol": symbol, "pair": from + "/" + to,
	})

	return &BinanceSource{client: client, symbol: symbol, from: from, to: to, logger: cfg.Logger}, nil
}

// Name identifies the source in logs and snapshots.
func (s *BinanceSource) Name() string { return "binance" }

// FetchQuotes returns a single quote for the configured symbol.
func (s *BinanceSource) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	op := "FetchQuotes"
	prices, err := s.client.NewListPricesService().Symbol(s.symbol).Do(ctx)
	if err != nil {
		return nil, s.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		return nil, s.handleError(ctx, fmt.Errorf("%w: no price returned for %s", ports.ErrNoUsableQuote, s.symbol), op)
	}

	rate, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		parseErr := fmt.Errorf("%w: could not parse price '%s': %v", ports.ErrMalformedQuote, prices[0].Price, err)
		return nil, s.handleError(ctx, parseErr, op)
	}

	serverTimeMs, err := s.client.NewServerTimeService().Do(ctx)
	if err != nil {
		return nil, s.handleError(ctx, err, op)
	}

	return []domain.Quote{{
		From:      s.from,
		To:        s.to,
		Rate:      rate,
		Timestamp: time.UnixMilli(serverTimeMs).UTC(),
	}}, nil
}

// handleError translates Binance API errors into standardized ports errors.
func (s *BinanceSource) handleError(ctx context.Context, err error, operation string) error {
	fields := map[string]interface{}{"operation": operation, "symbol": s.symbol, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1121: // Parameter errors, including unknown symbol
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrSourceUnavailable
		}
		s.logger.Warn(ctx, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case errors.Is(err, ports.ErrMalformedQuote), errors.Is(err, ports.ErrNoUsableQuote):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrSourceUnavailable, err)
	}
	s.logger.Warn(ctx, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}
