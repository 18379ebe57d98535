// Package bootstrap wires configuration into the running components shared by
// the daemon and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tradeLedger/config"
	"tradeLedger/internal/adapters/quotes"
	"tradeLedger/internal/adapters/sqlite"
	"tradeLedger/internal/aggregate"
	"tradeLedger/internal/app"
	"tradeLedger/internal/domain"
	"tradeLedger/internal/fx"
	"tradeLedger/internal/ports"
)

// Components are the wired application parts.
type Components struct {
	Repo   *sqlite.Repository
	Cache  *fx.RateCache
	Rates  *fx.RateService
	Trades *app.TradeService
}

// Close releases the database.
func (c *Components) Close() error {
	return c.Repo.Close()
}

// Build opens storage, seeds the rate cache with the fallback and creates the
// services. It does not contact the quote source; call Rates.Init for that.
func Build(cfg *config.Config, logger ports.Logger) (*Components, error) {
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database repository: %w", err)
	}

	source, err := NewQuoteSource(cfg, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	cache, err := fx.NewRateCache(cfg.FXFallbackRate, todayIn(cfg))
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize rate cache: %w", err)
	}

	rates, err := fx.NewRateService(fx.Config{
		Base:    cfg.SecondaryCurrency,
		Quote:   cfg.ReportingCurrency,
		Timeout: cfg.FXTimeout,
		Zone:    cfg.FXZone,
		Source:  source,
		History: repo,
		Cache:   cache,
		Logger:  logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize rate service: %w", err)
	}

	var aggregator ports.Aggregator = repo
	if cfg.StatsBackend == config.BackendMemory {
		aggregator = aggregate.NewExact(repo)
	}

	trades, err := app.NewTradeService(app.Config{
		Trades:     repo,
		Accounts:   repo,
		Aggregator: aggregator,
		Rates:      cache,
		Reporting:  cfg.ReportingCurrency,
		Secondary:  cfg.SecondaryCurrency,
		Zone:       cfg.FXZone,
		Logger:     logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize trade service: %w", err)
	}

	logger.Info(context.Background(), "Components initialized", map[string]interface{}{
		"dbPath": cfg.DBPath, "fxSource": source.Name(), "statsBackend": cfg.StatsBackend,
		"reporting": cfg.ReportingCurrency, "secondary": cfg.SecondaryCurrency,
	})
	return &Components{Repo: repo, Cache: cache, Rates: rates, Trades: trades}, nil
}

// NewQuoteSource builds the quote source selected by FX_SOURCE. The Binance
// symbol is read as reporting→secondary, e.g. USDTCAD quotes CAD per USD.
func NewQuoteSource(cfg *config.Config, logger ports.Logger) (ports.QuoteSource, error) {
	switch cfg.FXSource {
	case config.SourceBinance:
		src, err := quotes.NewBinanceSource(quotes.BinanceConfig{
			Symbol:  cfg.BinanceSymbol,
			From:    cfg.ReportingCurrency,
			To:      cfg.SecondaryCurrency,
			BaseURL: cfg.BinanceBaseURL,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceHTTP, "":
		src, err := quotes.NewCBSASource(quotes.CBSAConfig{
			Endpoint: cfg.FXEndpoint,
			Client:   &http.Client{Timeout: cfg.FXTimeout},
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unknown FX source %q", ports.ErrConfigurationError, cfg.FXSource)
	}
}

func todayIn(cfg *config.Config) time.Time {
	zone := cfg.FXZone
	if zone == nil {
		zone = time.UTC
	}
	return domain.DateOf(time.Now().In(zone))
}
