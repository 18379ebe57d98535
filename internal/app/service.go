package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradeLedger/internal/aggregate"
	"tradeLedger/internal/domain"
	"tradeLedger/internal/fx"
	"tradeLedger/internal/pnl"
	"tradeLedger/internal/ports"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tradeLedger/app")

// Config holds the dependencies of a TradeService.
type Config struct {
	Trades     ports.TradeRepository
	Accounts   ports.AccountRepository
	Aggregator ports.Aggregator // Backs AggregateStats and ScopedAggregateStats
	Rates      *fx.RateCache
	Reporting  string
	Secondary  string
	Zone       *time.Location // Used to resolve "today"; defaults to UTC
	Logger     ports.Logger
	Now        func() time.Time // Optional; defaults to time.Now
}

// TradeService is the use-case layer over trades: writes with derived P&L,
// owner-scoped reads, and summaries in the reporting currency.
type TradeService struct {
	trades     ports.TradeRepository
	accounts   ports.AccountRepository
	aggregator ports.Aggregator
	rates      *fx.RateCache
	reporting  string
	secondary  string
	zone       *time.Location
	logger     ports.Logger
	now        func() time.Time
}

// ListQuery selects one page of a user's trades, optionally filtered to a
// month or a single closed date. Day wins over Month.
type ListQuery struct {
	Page  int
	Size  int
	Month *domain.YearMonth
	Day   *time.Time
}

// NewTradeService creates a new trade service instance.
func NewTradeService(cfg Config) (*TradeService, error) {
	if cfg.Trades == nil || cfg.Accounts == nil || cfg.Aggregator == nil || cfg.Rates == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for TradeService")
	}
	reporting := strings.ToUpper(cfg.Reporting)
	secondary := strings.ToUpper(cfg.Secondary)
	if reporting == "" || secondary == "" || reporting == secondary {
		return nil, fmt.Errorf("%w: reporting and secondary currencies must be distinct, got %q/%q",
			ports.ErrConfigurationError, cfg.Reporting, cfg.Secondary)
	}
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TradeService{
		trades:     cfg.Trades,
		accounts:   cfg.Accounts,
		aggregator: cfg.Aggregator,
		rates:      cfg.Rates,
		reporting:  reporting,
		secondary:  secondary,
		zone:       cfg.Zone,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}, nil
}

// CreateTrade validates the input, applies account defaults, computes the
// realized P&L and stores a new trade for the user.
func (s *TradeService) CreateTrade(ctx context.Context, userID string, in domain.TradeInput) (*domain.Trade, error) {
	ctx, span := tracer.Start(ctx, "trade.Create", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	trade, err := s.buildTrade(ctx, userID, in)
	if err != nil {
		return nil, spanError(span, err)
	}
	now := s.now().UTC()
	trade.ID = uuid.NewString()
	trade.CreatedAt = now
	trade.UpdatedAt = now

	if err := s.trades.SaveTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, err, "Failed to save trade", map[string]interface{}{"userID": userID, "symbol": trade.Symbol})
		return nil, spanError(span, fmt.Errorf("failed to save trade: %w", err))
	}
	span.SetAttributes(attribute.String("trade.id", trade.ID))
	s.logger.Info(ctx, "Trade created", map[string]interface{}{
		"tradeID": trade.ID, "userID": userID, "symbol": trade.Symbol, "realizedPnl": trade.RealizedPnl.StringFixed(2),
	})
	return trade, nil
}

// UpdateTrade replaces every caller-supplied field of an existing trade and
// recomputes its P&L. Unknown ids and ids owned by other users both yield
// ports.ErrNotFound.
func (s *TradeService) UpdateTrade(ctx context.Context, userID, tradeID string, in domain.TradeInput) (*domain.Trade, error) {
	ctx, span := tracer.Start(ctx, "trade.Update", trace.WithAttributes(
		attribute.String("user.id", userID), attribute.String("trade.id", tradeID)))
	defer span.End()

	existing, err := s.trades.FindTradeByIDForUser(ctx, userID, tradeID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to load trade: %w", err))
	}
	if existing == nil {
		return nil, spanError(span, notFound(tradeID))
	}

	trade, err := s.buildTrade(ctx, userID, in)
	if err != nil {
		return nil, spanError(span, err)
	}
	trade.ID = existing.ID
	trade.CreatedAt = existing.CreatedAt
	trade.UpdatedAt = s.now().UTC()

	if err := s.trades.SaveTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, err, "Failed to update trade", map[string]interface{}{"tradeID": tradeID, "userID": userID})
		return nil, spanError(span, fmt.Errorf("failed to update trade: %w", err))
	}
	s.logger.Info(ctx, "Trade updated", map[string]interface{}{
		"tradeID": trade.ID, "userID": userID, "realizedPnl": trade.RealizedPnl.StringFixed(2),
	})
	return trade, nil
}

// DeleteTrade removes the user's trade.
func (s *TradeService) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	ctx, span := tracer.Start(ctx, "trade.Delete", trace.WithAttributes(
		attribute.String("user.id", userID), attribute.String("trade.id", tradeID)))
	defer span.End()

	if err := s.trades.DeleteTrade(ctx, userID, tradeID); err != nil {
		return spanError(span, fmt.Errorf("failed to delete trade %s: %w", tradeID, err))
	}
	s.logger.Info(ctx, "Trade deleted", map[string]interface{}{"tradeID": tradeID, "userID": userID})
	return nil
}

// GetTrade returns the user's trade with its P&L percent.
func (s *TradeService) GetTrade(ctx context.Context, userID, tradeID string) (domain.TradeView, error) {
	trade, err := s.trades.FindTradeByIDForUser(ctx, userID, tradeID)
	if err != nil {
		return domain.TradeView{}, fmt.Errorf("failed to load trade: %w", err)
	}
	if trade == nil {
		return domain.TradeView{}, notFound(tradeID)
	}
	return viewOf(trade), nil
}

// ListTrades returns one page of the user's trades, most recently closed first.
func (s *TradeService) ListTrades(ctx context.Context, userID string, q ListQuery) (domain.Page[domain.TradeView], error) {
	req := domain.PageRequest{Page: q.Page, Size: q.Size}.Clamp()
	filter := ports.TradeFilter{Month: q.Month, Day: q.Day}

	trades, total, err := s.trades.ListTrades(ctx, userID, filter, req)
	if err != nil {
		return domain.Page[domain.TradeView]{}, fmt.Errorf("failed to list trades: %w", err)
	}
	views := make([]domain.TradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, viewOf(t))
	}
	return domain.NewPage(views, req, total), nil
}

// Summarize builds the exact summary of the user's trades, over one month
// when month is set and over the whole history otherwise.
func (s *TradeService) Summarize(ctx context.Context, userID string, month *domain.YearMonth) (domain.PnlSummary, error) {
	ctx, span := tracer.Start(ctx, "trade.Summarize", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var (
		trades []*domain.Trade
		err    error
	)
	if month != nil {
		span.SetAttributes(attribute.String("summary.month", month.String()))
		trades, err = s.trades.FindByUserAndDateRange(ctx, userID, month.Range())
	} else {
		trades, err = s.trades.FindAllForUser(ctx, userID)
	}
	if err != nil {
		return domain.PnlSummary{}, spanError(span, fmt.Errorf("failed to load trades: %w", err))
	}

	n, snap := fx.NewNormalizer(s.reporting, s.secondary, s.rates)
	summary := aggregate.Summarize(trades, n)
	summary.Rate = snap.Rate
	summary.FxDate = domain.FormatDate(snap.AsOf)
	return summary, nil
}

// AggregateStats computes dashboard statistics over the user's whole history.
func (s *TradeService) AggregateStats(ctx context.Context, userID string) (domain.AggregateStats, error) {
	ctx, span := tracer.Start(ctx, "trade.AggregateStats", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	n, snap := fx.NewNormalizer(s.reporting, s.secondary, s.rates)
	stats, err := aggregate.Stats(ctx, s.aggregator, userID, n.Conversion())
	if err != nil {
		return domain.AggregateStats{}, spanError(span, fmt.Errorf("failed to compute stats: %w", err))
	}
	stats.Rate = snap.Rate
	stats.FxDate = domain.FormatDate(snap.AsOf)
	return stats, nil
}

// ScopedAggregateStats computes statistics for one resolved year.
func (s *TradeService) ScopedAggregateStats(ctx context.Context, userID string, scope aggregate.Scope) (domain.AggregateStats, error) {
	ctx, span := tracer.Start(ctx, "trade.ScopedAggregateStats", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	n, snap := fx.NewNormalizer(s.reporting, s.secondary, s.rates)
	stats, err := aggregate.ScopedStats(ctx, s.aggregator, userID, n.Conversion(), scope, s.today())
	if err != nil {
		return domain.AggregateStats{}, spanError(span, fmt.Errorf("failed to compute scoped stats: %w", err))
	}
	stats.Rate = snap.Rate
	stats.FxDate = domain.FormatDate(snap.AsOf)
	return stats, nil
}

// RateSnapshot returns the exchange rate summaries are currently computed with.
func (s *TradeService) RateSnapshot() domain.RateSnapshot {
	return s.rates.Current()
}

// ReportingCurrency is the currency every summary amount is expressed in.
func (s *TradeService) ReportingCurrency() string {
	return s.reporting
}

func (s *TradeService) today() time.Time {
	return domain.DateOf(s.now().In(s.zone))
}

// buildTrade turns validated input into a trade with normalized amounts and
// its realized P&L. Identity and timestamps are left to the caller.
func (s *TradeService) buildTrade(ctx context.Context, userID string, in domain.TradeInput) (*domain.Trade, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	currency, err := s.checkCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	instrument, err := domain.NewInstrument(in.AssetType, in.OptionType, in.Strike, in.Expiry)
	if err != nil {
		return nil, err
	}
	if opt, ok := instrument.(domain.Option); ok {
		opt.Strike = pnl.RoundPrice(opt.Strike)
		instrument = opt
	}

	fees := decimal.Zero
	if in.Fees != nil {
		fees = *in.Fees
	}
	marginRate := decimal.Zero
	if in.MarginRate != nil {
		marginRate = *in.MarginRate
	}

	accountID := strings.TrimSpace(in.AccountID)
	if accountID != "" {
		account, err := s.accounts.FindAccountForUser(ctx, userID, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load account: %w", err)
		}
		if account == nil {
			return nil, domain.NewValidationError(domain.ReasonAccountNotFound)
		}
		if in.Fees == nil {
			fees = account.DefaultFees(instrument.AssetType())
		}
		if in.MarginRate == nil {
			marginRate = account.DefaultMarginRate(currency)
		}
	}

	trade := &domain.Trade{
		UserID:     userID,
		AccountID:  accountID,
		Symbol:     in.NormalizedSymbol(),
		Instrument: instrument,
		Currency:   currency,
		Direction:  in.Direction,
		Quantity:   in.Quantity,
		EntryPrice: pnl.RoundPrice(in.EntryPrice),
		ExitPrice:  pnl.RoundPrice(in.ExitPrice),
		Fees:       pnl.Round2(fees),
		MarginRate: pnl.RoundPrice(marginRate),
		OpenedAt:   domain.DateOf(in.OpenedAt),
		ClosedAt:   domain.DateOf(in.ClosedAt),
		Notes:      strings.TrimSpace(in.Notes),
	}
	trade.RealizedPnl = pnl.RealizedPnl(pnl.InputFromTrade(trade))
	return trade, nil
}

// checkCurrency accepts only the reporting and secondary currencies. An
// empty code means the reporting currency.
func (s *TradeService) checkCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.reporting, nil
	}
	if money.GetCurrency(code) == nil || (code != s.reporting && code != s.secondary) {
		return "", domain.NewValidationError("Unsupported currency " + code)
	}
	return code, nil
}

func viewOf(t *domain.Trade) domain.TradeView {
	return domain.TradeView{
		Trade:      *t,
		PnlPercent: pnl.Percent(t.RealizedPnl, pnl.Round2(pnl.TradeNotional(t))),
	}
}

func notFound(tradeID string) error {
	return fmt.Errorf("trade %s: %w", tradeID, ports.ErrNotFound)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
