package fx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/pnl"
	"tradeLedger/internal/ports"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTimeout = 2000 * time.Millisecond
	DefaultZone    = "America/Los_Angeles"
)

var tracer = otel.Tracer("tradeLedger/fx")

// Config holds the dependencies of a RateService.
type Config struct {
	Base    string // Secondary currency, e.g. CAD
	Quote   string // Reporting currency, e.g. USD
	Timeout time.Duration
	Zone    *time.Location
	Source  ports.QuoteSource
	History ports.RateHistoryRepository
	Cache   *RateCache
	Logger  ports.Logger
	Now     func() time.Time // Optional; defaults to time.Now
}

// RateService owns the cache lifecycle: startup load and refreshes from the
// external quote source.
type RateService struct {
	base    string
	quote   string
	timeout time.Duration
	zone    *time.Location
	source  ports.QuoteSource
	history ports.RateHistoryRepository
	cache   *RateCache
	logger  ports.Logger
	now     func() time.Time
}

// NewRateService creates a rate service.
func NewRateService(cfg Config) (*RateService, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for rate service")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("rate cache is required for rate service")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("quote source is required for rate service")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("rate history repository is required for rate service")
	}
	if cfg.Base == "" || cfg.Quote == "" || strings.EqualFold(cfg.Base, cfg.Quote) {
		return nil, fmt.Errorf("%w: base and quote currencies must be distinct, got %q/%q",
			ports.ErrConfigurationError, cfg.Base, cfg.Quote)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RateService{
		base:    strings.ToUpper(cfg.Base),
		quote:   strings.ToUpper(cfg.Quote),
		timeout: cfg.Timeout,
		zone:    cfg.Zone,
		source:  cfg.Source,
		history: cfg.History,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// Cache returns the cache this service writes to.
func (s *RateService) Cache() *RateCache {
	return s.cache
}

// Today returns the current civil date in the configured zone.
func (s *RateService) Today() time.Time {
	return domain.DateOf(s.now().In(s.zone))
}

// Init loads the latest persisted rate over the fallback and then attempts an
// immediate refresh. It never fails; a cold start keeps the fallback.
func (s *RateService) Init(ctx context.Context) {
	s.LoadPersisted(ctx)
	s.Refresh(ctx)
}

// LoadPersisted replaces the cache with the latest persisted rate, if any.
// It reports whether the cache was updated.
func (s *RateService) LoadPersisted(ctx context.Context) bool {
	record, err := s.history.FindLatestRate(ctx, s.base, s.quote)
	switch {
	case err != nil:
		s.logger.Warn(ctx, "Failed to load persisted exchange rate, keeping fallback", map[string]interface{}{
			"base": s.base, "quote": s.quote, "error": err.Error(),
		})
	case record == nil:
		s.logger.Info(ctx, "No persisted exchange rate, using fallback", map[string]interface{}{
			"rate": s.cache.CurrentRate().String(),
		})
	default:
		if err := s.cache.Replace(record.Rate, record.EffectiveDate, "history"); err != nil {
			s.logger.Warn(ctx, "Ignoring persisted exchange rate", map[string]interface{}{"error": err.Error()})
		} else {
			s.logger.Info(ctx, "Loaded persisted exchange rate", map[string]interface{}{
				"rate": record.Rate.String(), "date": domain.FormatDate(record.EffectiveDate),
			})
			return true
		}
	}
	return false
}

// Refresh fetches quotes and, when a usable one is found, swaps the cache and
// upserts the history row for its effective date. Failures are logged and
// leave the cache untouched. It reports whether the cache was updated.
func (s *RateService) Refresh(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "fx.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("fx.source", s.source.Name()))

	rate, effective, err := s.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(ctx, "Exchange rate refresh failed, keeping cached rate", map[string]interface{}{
			"source": s.source.Name(),
			"error":  err.Error(),
			"rate":   s.cache.CurrentRate().String(),
			"asOf":   domain.FormatDate(s.cache.AsOfDate()),
		})
		return false
	}

	if err := s.cache.Replace(rate, effective, s.source.Name()); err != nil {
		s.logger.Warn(ctx, "Exchange rate rejected by cache", map[string]interface{}{"error": err.Error()})
		return false
	}
	span.SetAttributes(attribute.String("fx.rate", rate.String()))

	if err := s.history.UpsertRate(ctx, s.base, s.quote, effective, rate); err != nil {
		s.logger.Error(ctx, err, "Failed to persist exchange rate", map[string]interface{}{
			"rate": rate.String(), "date": domain.FormatDate(effective),
		})
	}
	s.logger.Info(ctx, "Exchange rate refreshed", map[string]interface{}{
		"source": s.source.Name(),
		"rate":   rate.String(),
		"date":   domain.FormatDate(effective),
	})
	return true
}

func (s *RateService) fetch(ctx context.Context) (decimal.Decimal, time.Time, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quotes, err := s.source.FetchQuotes(fetchCtx)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return decimal.Zero, time.Time{}, fmt.Errorf("%w: %v", ports.ErrTimeout, err)
		}
		return decimal.Zero, time.Time{}, err
	}
	return s.selectQuote(quotes)
}

// selectQuote picks the freshest positive quote for the configured pair and
// orients it as quote-currency units per 1 base unit.
func (s *RateService) selectQuote(quotes []domain.Quote) (decimal.Decimal, time.Time, error) {
	matching := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if s.direct(q) || s.inverse(q) {
			matching = append(matching, q)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Timestamp.After(matching[j].Timestamp)
	})

	for _, q := range matching {
		if !q.Rate.IsPositive() {
			continue
		}
		rate := pnl.RoundRate(q.Rate)
		if s.inverse(q) {
			rate = decimal.NewFromInt(1).DivRound(q.Rate, pnl.RatePlaces)
		}
		if !rate.IsPositive() {
			continue
		}
		return rate, domain.DateOf(q.Timestamp.In(s.zone)), nil
	}
	return decimal.Zero, time.Time{}, fmt.Errorf("%w for %s/%s among %d records",
		ports.ErrNoUsableQuote, s.base, s.quote, len(quotes))
}

func (s *RateService) direct(q domain.Quote) bool {
	return strings.EqualFold(q.From, s.base) && strings.EqualFold(q.To, s.quote)
}

func (s *RateService) inverse(q domain.Quote) bool {
	return strings.EqualFold(q.From, s.quote) && strings.EqualFold(q.To, s.base)
}
