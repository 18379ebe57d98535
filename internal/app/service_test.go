package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"tradeLedger/internal/aggregate"
	"tradeLedger/internal/domain"
	"tradeLedger/internal/fx"
	"tradeLedger/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockLogger struct {
	mu        sync.Mutex
	infoMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockTradeRepo struct {
	mu      sync.Mutex
	trades  map[string]*domain.Trade
	seq     map[string]int
	next    int
	saveErr error
}

func newMockTradeRepo() *mockTradeRepo {
	return &mockTradeRepo{trades: map[string]*domain.Trade{}, seq: map[string]int{}}
}

func (m *mockTradeRepo) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if existing, ok := m.trades[trade.ID]; ok && existing.UserID != trade.UserID {
		return ports.ErrNotFound
	}
	if _, ok := m.seq[trade.ID]; !ok {
		m.next++
		m.seq[trade.ID] = m.next
	}
	cp := *trade
	m.trades[trade.ID] = &cp
	return nil
}

func (m *mockTradeRepo) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok || t.UserID != userID {
		return ports.ErrNotFound
	}
	delete(m.trades, tradeID)
	return nil
}

func (m *mockTradeRepo) FindTradeByIDForUser(ctx context.Context, userID, tradeID string) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockTradeRepo) matching(userID string, keep func(*domain.Trade) bool) []*domain.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Trade
	for _, t := range m.trades {
		if t.UserID == userID && keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClosedAt.Equal(out[j].ClosedAt) {
			return out[i].ClosedAt.After(out[j].ClosedAt)
		}
		return m.seq[out[i].ID] > m.seq[out[j].ID]
	})
	return out
}

func (m *mockTradeRepo) FindAllForUser(ctx context.Context, userID string) ([]*domain.Trade, error) {
	return m.matching(userID, func(*domain.Trade) bool { return true }), nil
}

func (m *mockTradeRepo) FindByUserAndDateRange(ctx context.Context, userID string, rng domain.DateRange) ([]*domain.Trade, error) {
	return m.matching(userID, func(t *domain.Trade) bool { return rng.Contains(t.ClosedAt) }), nil
}

func (m *mockTradeRepo) ListTrades(ctx context.Context, userID string, filter ports.TradeFilter, page domain.PageRequest) ([]*domain.Trade, int64, error) {
	var rng domain.DateRange
	switch {
	case filter.Day != nil:
		rng = domain.DayRange(*filter.Day)
	case filter.Month != nil:
		rng = filter.Month.Range()
	}
	all := m.matching(userID, func(t *domain.Trade) bool { return rng.Contains(t.ClosedAt) })
	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

type mockAccountRepo struct {
	accounts map[string]*domain.Account
}

func (m *mockAccountRepo) FindAccountForUser(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	return a, nil
}

// --- Helpers ---

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *TradeService
	repo   *mockTradeRepo
	cache  *fx.RateCache
	logger *mockLogger
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := newMockTradeRepo()
	accounts := &mockAccountRepo{accounts: map[string]*domain.Account{
		"acc-1": {
			ID:                 "acc-1",
			UserID:             "u1",
			DefaultStockFees:   d("1.00"),
			DefaultOptionFees:  d("0.65"),
			DefaultMarginRates: map[string]decimal.Decimal{"USD": d("5")},
		},
	}}
	cache, err := fx.NewRateCache(d("0.732"), domain.Date(2024, time.June, 14))
	require.NoError(t, err)
	logger := &mockLogger{}

	svc, err := NewTradeService(Config{
		Trades:     repo,
		Accounts:   accounts,
		Aggregator: aggregate.NewExact(repo),
		Rates:      cache,
		Reporting:  "USD",
		Secondary:  "CAD",
		Logger:     logger,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, cache: cache, logger: logger}
}

func stockInput(symbol string, closed time.Time, entry, exit string) domain.TradeInput {
	return domain.TradeInput{
		Symbol:     symbol,
		AssetType:  domain.AssetStock,
		Currency:   "USD",
		Direction:  domain.Long,
		Quantity:   10,
		EntryPrice: d(entry),
		ExitPrice:  d(exit),
		OpenedAt:   closed,
		ClosedAt:   closed,
	}
}

// --- Tests ---

func TestNewTradeService(t *testing.T) {
	repo := newMockTradeRepo()
	cache, err := fx.NewRateCache(d("0.732"), fixedNow)
	require.NoError(t, err)
	base := Config{
		Trades:     repo,
		Accounts:   &mockAccountRepo{},
		Aggregator: aggregate.NewExact(repo),
		Rates:      cache,
		Reporting:  "USD",
		Secondary:  "CAD",
		Logger:     &mockLogger{},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing logger", mutate: func(c *Config) { c.Logger = nil }, wantErr: true},
		{name: "missing aggregator", mutate: func(c *Config) { c.Aggregator = nil }, wantErr: true},
		{name: "missing rates", mutate: func(c *Config) { c.Rates = nil }, wantErr: true},
		{name: "same currencies", mutate: func(c *Config) { c.Secondary = "usd" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			svc, err := NewTradeService(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestTradeService_CreateTrade(t *testing.T) {
	may1 := domain.Date(2024, time.May, 1)
	call := domain.Call

	tests := []struct {
		name       string
		in         domain.TradeInput
		wantPnl    string
		wantReason string
		check      func(t *testing.T, trade *domain.Trade)
	}{
		{
			name: "short option covered call",
			in: domain.TradeInput{
				Symbol:     " aapl ",
				AssetType:  domain.AssetOption,
				Currency:   "usd",
				Direction:  domain.Short,
				Quantity:   2,
				EntryPrice: d("3.10"),
				ExitPrice:  d("1.10"),
				Fees:       dp("4"),
				OptionType: &call,
				Strike:     dp("190.123456"),
				Expiry:     &may1,
				OpenedAt:   may1,
				ClosedAt:   may1,
			},
			wantPnl: "396.00",
			check: func(t *testing.T, trade *domain.Trade) {
				assert.Equal(t, "AAPL", trade.Symbol)
				assert.Equal(t, "USD", trade.Currency)
				opt, ok := trade.Instrument.(domain.Option)
				require.True(t, ok)
				assert.Equal(t, "190.1235", opt.Strike.String())
			},
		},
		{
			name: "stock drops option fields",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10", "12")
				in.OptionType = &call
				in.Strike = dp("5")
				return in
			}(),
			wantPnl: "20.00",
			check: func(t *testing.T, trade *domain.Trade) {
				assert.Equal(t, domain.Stock{}, trade.Instrument)
			},
		},
		{
			name: "prices normalized half up",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10.00005", "10.00015")
				in.Quantity = 100
				return in
			}(),
			wantPnl: "0.01",
			check: func(t *testing.T, trade *domain.Trade) {
				assert.Equal(t, "10.0001", trade.EntryPrice.String())
				assert.Equal(t, "10.0002", trade.ExitPrice.String())
			},
		},
		{
			name: "option without strike",
			in: domain.TradeInput{
				Symbol: "AAPL", AssetType: domain.AssetOption, Currency: "USD", Direction: domain.Long,
				Quantity: 1, EntryPrice: d("1"), ExitPrice: d("2"), OptionType: &call, Expiry: &may1,
				OpenedAt: may1, ClosedAt: may1,
			},
			wantReason: domain.ReasonOptionFields,
		},
		{
			name: "option terms checked before dates",
			in: domain.TradeInput{
				Symbol: "AAPL", AssetType: domain.AssetOption, Currency: "USD", Direction: domain.Long,
				Quantity: 1, EntryPrice: d("1"), ExitPrice: d("2"),
				OpenedAt: may1.AddDate(0, 0, 1), ClosedAt: may1,
			},
			wantReason: domain.ReasonOptionFields,
		},
		{
			name: "missing currency is the reporting currency",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10", "12")
				in.Currency = "  "
				return in
			}(),
			wantPnl: "20.00",
			check: func(t *testing.T, trade *domain.Trade) {
				assert.Equal(t, "USD", trade.Currency)
			},
		},
		{
			name: "quantity above cap",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10", "12")
				in.Quantity = 1_000_000_000_000
				return in
			}(),
			wantReason: "Quantity must be at most 10000000",
		},
		{
			name: "close before open",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10", "12")
				in.OpenedAt = may1.AddDate(0, 0, 1)
				return in
			}(),
			wantReason: domain.ReasonCloseBeforeOpen,
		},
		{
			name: "unsupported currency",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10", "12")
				in.Currency = "EUR"
				return in
			}(),
			wantReason: "Unsupported currency EUR",
		},
		{
			name: "unknown currency code",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10", "12")
				in.Currency = "XYZ"
				return in
			}(),
			wantReason: "Unsupported currency XYZ",
		},
		{
			name: "foreign account",
			in: func() domain.TradeInput {
				in := stockInput("MSFT", may1, "10", "12")
				in.AccountID = "acc-other"
				return in
			}(),
			wantReason: domain.ReasonAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			trade, err := f.svc.CreateTrade(context.Background(), "u1", tt.in)

			if tt.wantReason != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidTrade))
				var vErr *domain.ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, tt.wantReason, vErr.Reason)
				assert.Empty(t, f.repo.trades)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, trade.ID)
			assert.Equal(t, "u1", trade.UserID)
			assert.Equal(t, fixedNow, trade.CreatedAt)
			assert.Equal(t, tt.wantPnl, trade.RealizedPnl.StringFixed(2))
			if tt.check != nil {
				tt.check(t, trade)
			}
			stored, err := f.repo.FindTradeByIDForUser(context.Background(), "u1", trade.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.True(t, stored.RealizedPnl.Equal(trade.RealizedPnl))
		})
	}
}

func TestTradeService_CreateTrade_AccountDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opened := domain.Date(2023, time.May, 1)
	closed := domain.Date(2024, time.April, 30)

	in := domain.TradeInput{
		Symbol: "SPY", AssetType: domain.AssetStock, Currency: "USD", Direction: domain.Long,
		Quantity: 100, EntryPrice: d("100"), ExitPrice: d("100"),
		AccountID: "acc-1", OpenedAt: opened, ClosedAt: closed,
	}
	trade, err := f.svc.CreateTrade(ctx, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, "1", trade.Fees.String(), "stock fee default")
	assert.Equal(t, "5", trade.MarginRate.String(), "USD margin default")
	assert.Equal(t, "-501.00", trade.RealizedPnl.StringFixed(2))

	in.Fees = dp("0")
	in.MarginRate = dp("0")
	trade, err = f.svc.CreateTrade(ctx, "u1", in)
	require.NoError(t, err)
	assert.True(t, trade.RealizedPnl.IsZero(), "explicit values win over defaults")

	in.Fees = nil
	in.MarginRate = nil
	in.Currency = "CAD"
	trade, err = f.svc.CreateTrade(ctx, "u1", in)
	require.NoError(t, err)
	assert.True(t, trade.MarginRate.IsZero(), "no CAD default configured")
	assert.Equal(t, "-1.00", trade.RealizedPnl.StringFixed(2))

	_, err = f.svc.CreateTrade(ctx, "u2", in)
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, domain.ReasonAccountNotFound, vErr.Reason, "account of another user")
}

func TestTradeService_CreateTrade_SaveFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.saveErr = ports.ErrQueryFailed

	_, err := f.svc.CreateTrade(context.Background(), "u1", stockInput("MSFT", domain.Date(2024, 5, 1), "10", "12"))
	assert.ErrorIs(t, err, ports.ErrQueryFailed)
	assert.NotEmpty(t, f.logger.errorMsgs)
}

func TestTradeService_UpdateTrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateTrade(ctx, "u1", stockInput("MSFT", domain.Date(2024, 5, 1), "10", "12"))
	require.NoError(t, err)

	f.svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	updated, err := f.svc.UpdateTrade(ctx, "u1", created.ID, stockInput("MSFT", domain.Date(2024, 5, 2), "10", "9"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, fixedNow.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, "-10.00", updated.RealizedPnl.StringFixed(2))

	_, err = f.svc.UpdateTrade(ctx, "u2", created.ID, stockInput("MSFT", domain.Date(2024, 5, 2), "1", "2"))
	assert.ErrorIs(t, err, ports.ErrNotFound, "another user's trade")

	_, err = f.svc.UpdateTrade(ctx, "u1", "missing", stockInput("MSFT", domain.Date(2024, 5, 2), "1", "2"))
	assert.ErrorIs(t, err, ports.ErrNotFound)

	stored, _ := f.repo.FindTradeByIDForUser(ctx, "u1", created.ID)
	assert.Equal(t, "-10.00", stored.RealizedPnl.StringFixed(2), "failed updates leave the trade alone")
}

func TestTradeService_GetAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateTrade(ctx, "u1", stockInput("MSFT", domain.Date(2024, 5, 1), "10", "12"))
	require.NoError(t, err)

	view, err := f.svc.GetTrade(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, view.Trade.ID)
	require.NotNil(t, view.PnlPercent)
	assert.Equal(t, "20", view.PnlPercent.String())

	_, err = f.svc.GetTrade(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteTrade(ctx, "u2", created.ID), ports.ErrNotFound)
	require.NoError(t, f.svc.DeleteTrade(ctx, "u1", created.ID))
	_, err = f.svc.GetTrade(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestTradeService_GetTrade_ZeroNotional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateTrade(ctx, "u1", stockInput("FREE", domain.Date(2024, 5, 1), "0", "1"))
	require.NoError(t, err)

	view, err := f.svc.GetTrade(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Nil(t, view.PnlPercent)
}

func TestTradeService_ListTrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, c := range []struct {
		symbol string
		closed time.Time
	}{
		{"AAA", domain.Date(2024, 5, 1)},
		{"BBB", domain.Date(2024, 5, 2)},
		{"CCC", domain.Date(2024, 6, 1)},
	} {
		_, err := f.svc.CreateTrade(ctx, "u1", stockInput(c.symbol, c.closed, "10", "11"))
		require.NoError(t, err)
	}

	page, err := f.svc.ListTrades(ctx, "u1", ListQuery{Page: 0, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "CCC", page.Items[0].Trade.Symbol)
	assert.Equal(t, "BBB", page.Items[1].Trade.Symbol)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrevious)

	page, err = f.svc.ListTrades(ctx, "u1", ListQuery{Page: -3, Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, domain.MaxPageSize, page.Size)
	assert.Len(t, page.Items, 3)

	may := domain.YearMonth{Year: 2024, Month: time.May}
	page, err = f.svc.ListTrades(ctx, "u1", ListQuery{Size: 10, Month: &may})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	day := domain.Date(2024, 5, 1)
	page, err = f.svc.ListTrades(ctx, "u1", ListQuery{Size: 10, Month: &may, Day: &day})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "AAA", page.Items[0].Trade.Symbol)

	page, err = f.svc.ListTrades(ctx, "nobody", ListQuery{Size: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext)
}

func TestTradeService_Summarize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTrade(ctx, "u1", stockInput("AAA", domain.Date(2024, 5, 1), "10", "12"))
	require.NoError(t, err)
	short := stockInput("BBB", domain.Date(2024, 5, 2), "50", "55")
	short.Direction = domain.Short
	short.Quantity = 5
	short.Fees = dp("5")
	_, err = f.svc.CreateTrade(ctx, "u1", short)
	require.NoError(t, err)
	cad := stockInput("CCC", domain.Date(2024, 6, 1), "10", "20")
	cad.Currency = "CAD"
	_, err = f.svc.CreateTrade(ctx, "u1", cad)
	require.NoError(t, err)

	summary, err := f.svc.Summarize(ctx, "u1", nil)
	require.NoError(t, err)
	// 20.00 - 30.00 + round2(100.00 * 0.732)
	assert.Equal(t, "63.20", summary.TotalPnl.StringFixed(2))
	assert.Equal(t, 3, summary.TradeCount)
	assert.Equal(t, "0.732", summary.Rate.String())
	assert.Equal(t, "2024-06-14", summary.FxDate)
	require.Len(t, summary.Daily, 3)
	assert.Equal(t, "2024-06-01", summary.Daily[0].Period)
	require.Len(t, summary.Monthly, 2)
	assert.Equal(t, "2024-05", summary.Monthly[1].Period)
	assert.Equal(t, "-10.00", summary.Monthly[1].Pnl.StringFixed(2))

	may := domain.YearMonth{Year: 2024, Month: time.May}
	summary, err = f.svc.Summarize(ctx, "u1", &may)
	require.NoError(t, err)
	assert.Equal(t, "-10.00", summary.TotalPnl.StringFixed(2))
	assert.Equal(t, 2, summary.TradeCount)

	require.NoError(t, f.cache.Replace(d("0.75"), domain.Date(2024, 6, 15), "test"))
	summary, err = f.svc.Summarize(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "65.00", summary.TotalPnl.StringFixed(2), "summaries follow the cache")
	assert.Equal(t, "2024-06-15", summary.FxDate)
}

func TestTradeService_AggregateStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stats, err := f.svc.AggregateStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "0.00", stats.TotalPnl.StringFixed(2))
	assert.Equal(t, 0, stats.TradeCount)
	assert.Nil(t, stats.PnlPercent)
	assert.Nil(t, stats.BestDay)
	assert.Nil(t, stats.BestMonth)

	_, err = f.svc.CreateTrade(ctx, "u1", stockInput("AAA", domain.Date(2023, 3, 1), "10", "15"))
	require.NoError(t, err)
	_, err = f.svc.CreateTrade(ctx, "u1", stockInput("BBB", domain.Date(2024, 5, 1), "10", "12"))
	require.NoError(t, err)

	stats, err = f.svc.AggregateStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "70.00", stats.TotalPnl.StringFixed(2))
	require.NotNil(t, stats.BestDay)
	assert.Equal(t, "2023-03-01", stats.BestDay.Period)
	assert.Equal(t, "0.732", stats.Rate.String())

	scoped, err := f.svc.ScopedAggregateStats(ctx, "u1", aggregate.Scope{})
	require.NoError(t, err)
	require.NotNil(t, scoped.ScopedYear)
	assert.Equal(t, 2024, *scoped.ScopedYear, "latest closed trade picks the year")
	assert.Equal(t, "20.00", scoped.TotalPnl.StringFixed(2))
	assert.Equal(t, "2024-05", scoped.ScopedMonth)

	scoped, err = f.svc.ScopedAggregateStats(ctx, "u2", aggregate.Scope{})
	require.NoError(t, err)
	require.NotNil(t, scoped.ScopedYear)
	assert.Equal(t, fixedNow.Year(), *scoped.ScopedYear, "no trades falls back to today")
	assert.Nil(t, scoped.BestDay)
}
