package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/pnl"
	"tradeLedger/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "trade-ledger-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTrade(user, symbol string, closed time.Time) *domain.Trade {
	now := time.Now().UTC()
	t := &domain.Trade{
		ID:         uuid.NewString(),
		UserID:     user,
		Symbol:     symbol,
		Instrument: domain.Stock{},
		Currency:   "USD",
		Direction:  domain.Long,
		Quantity:   10,
		EntryPrice: d("10.0000"),
		ExitPrice:  d("12.5000"),
		Fees:       d("1.00"),
		OpenedAt:   closed.AddDate(0, 0, -3),
		ClosedAt:   closed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	t.RealizedPnl = pnl.RealizedPnl(pnl.InputFromTrade(t))
	return t
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, err)
}

func TestRepository_SaveAndFindTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name  string
		trade func() *domain.Trade
	}{
		{
			name:  "stock",
			trade: func() *domain.Trade { return newTrade("u1", "AAPL", domain.Date(2024, 5, 10)) },
		},
		{
			name: "option with terms and notes",
			trade: func() *domain.Trade {
				tr := newTrade("u1", "SPY", domain.Date(2024, 5, 11))
				tr.Instrument = domain.Option{Type: domain.Put, Strike: d("512.5000"), Expiry: domain.Date(2024, 6, 21)}
				tr.Direction = domain.Short
				tr.MarginRate = d("6.2500")
				tr.Notes = "rolled from May"
				tr.AccountID = "acct-1"
				tr.RealizedPnl = pnl.RealizedPnl(pnl.InputFromTrade(tr))
				return tr
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.trade()
			require.NoError(t, repo.SaveTrade(ctx, want))

			got, err := repo.FindTradeByIDForUser(ctx, "u1", want.ID)
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, want.Symbol, got.Symbol)
			assert.Equal(t, want.Instrument.AssetType(), got.Instrument.AssetType())
			assert.Equal(t, want.Direction, got.Direction)
			assert.Equal(t, want.AccountID, got.AccountID)
			assert.Equal(t, want.Notes, got.Notes)
			assert.True(t, want.EntryPrice.Equal(got.EntryPrice))
			assert.True(t, want.ExitPrice.Equal(got.ExitPrice))
			assert.True(t, want.Fees.Equal(got.Fees))
			assert.True(t, want.MarginRate.Equal(got.MarginRate))
			assert.True(t, want.RealizedPnl.Equal(got.RealizedPnl))
			assert.True(t, want.OpenedAt.Equal(got.OpenedAt))
			assert.True(t, want.ClosedAt.Equal(got.ClosedAt))
			if opt, ok := want.Instrument.(domain.Option); ok {
				gotOpt, ok := got.Instrument.(domain.Option)
				require.True(t, ok)
				assert.Equal(t, opt.Type, gotOpt.Type)
				assert.True(t, opt.Strike.Equal(gotOpt.Strike))
				assert.True(t, opt.Expiry.Equal(gotOpt.Expiry))
			}

			// Stored P&L never drifts from the stored fields.
			assert.True(t, pnl.RealizedPnl(pnl.InputFromTrade(got)).Equal(got.RealizedPnl))
		})
	}
}

func TestRepository_TradeOwnership(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade("owner", "MSFT", domain.Date(2024, 1, 5))
	require.NoError(t, repo.SaveTrade(ctx, trade))

	got, err := repo.FindTradeByIDForUser(ctx, "intruder", trade.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	stolen := *trade
	stolen.UserID = "intruder"
	stolen.Symbol = "HACK"
	err = repo.SaveTrade(ctx, &stolen)
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	err = repo.DeleteTrade(ctx, "intruder", trade.ID)
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	got, err = repo.FindTradeByIDForUser(ctx, "owner", trade.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "MSFT", got.Symbol)
}

func TestRepository_UpdateTradeInPlace(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade("u1", "AMD", domain.Date(2024, 2, 1))
	require.NoError(t, repo.SaveTrade(ctx, trade))

	trade.ExitPrice = d("9.0000")
	trade.RealizedPnl = pnl.RealizedPnl(pnl.InputFromTrade(trade))
	trade.UpdatedAt = time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.SaveTrade(ctx, trade))

	all, err := repo.FindAllForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "-11.00", all[0].RealizedPnl.StringFixed(2))
}

func TestRepository_DeleteTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade("u1", "NVDA", domain.Date(2024, 3, 1))
	require.NoError(t, repo.SaveTrade(ctx, trade))
	require.NoError(t, repo.DeleteTrade(ctx, "u1", trade.ID))

	got, err := repo.FindTradeByIDForUser(ctx, "u1", trade.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.DeleteTrade(ctx, "u1", trade.ID)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestRepository_ListTradesPagination(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, tc := range []struct {
		symbol string
		day    int
	}{{"AAA", 10}, {"BBB", 11}, {"CCC", 12}} {
		require.NoError(t, repo.SaveTrade(ctx, newTrade("u1", tc.symbol, domain.Date(2024, 5, tc.day))))
	}
	require.NoError(t, repo.SaveTrade(ctx, newTrade("u2", "ZZZ", domain.Date(2024, 5, 12))))

	req := domain.PageRequest{Page: 0, Size: 2}
	items, total, err := repo.ListTrades(ctx, "u1", ports.TradeFilter{}, req)
	require.NoError(t, err)
	page := domain.NewPage(items, req, total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "CCC", page.Items[0].Symbol)
	assert.Equal(t, "BBB", page.Items[1].Symbol)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrevious)

	req = domain.PageRequest{Page: 1, Size: 2}
	items, total, err = repo.ListTrades(ctx, "u1", ports.TradeFilter{}, req)
	require.NoError(t, err)
	page = domain.NewPage(items, req, total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "AAA", page.Items[0].Symbol)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)
}

func TestRepository_ListTradesFilters(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.SaveTrade(ctx, newTrade("u1", "APR", domain.Date(2024, 4, 30))))
	require.NoError(t, repo.SaveTrade(ctx, newTrade("u1", "MAY1", domain.Date(2024, 5, 1))))
	require.NoError(t, repo.SaveTrade(ctx, newTrade("u1", "MAY31", domain.Date(2024, 5, 31))))
	require.NoError(t, repo.SaveTrade(ctx, newTrade("u1", "JUN", domain.Date(2024, 6, 1))))

	may := domain.YearMonth{Year: 2024, Month: time.May}
	items, total, err := repo.ListTrades(ctx, "u1", ports.TradeFilter{Month: &may}, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "MAY31", items[0].Symbol)
	assert.Equal(t, "MAY1", items[1].Symbol)

	day := domain.Date(2024, 4, 30)
	items, total, err = repo.ListTrades(ctx, "u1", ports.TradeFilter{Day: &day, Month: &may}, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "APR", items[0].Symbol)
}

func TestRepository_SameDayOrdering(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	day := domain.Date(2024, 7, 1)
	first := newTrade("u1", "FIRST", day)
	second := newTrade("u1", "SECOND", day)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.SaveTrade(ctx, first))
	require.NoError(t, repo.SaveTrade(ctx, second))

	all, err := repo.FindAllForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SECOND", all[0].Symbol)
	assert.Equal(t, "FIRST", all[1].Symbol)
}

func TestRepository_Accounts(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	account := &domain.Account{
		UserID:            "u1",
		Name:              "Margin",
		DefaultStockFees:  d("1.00"),
		DefaultOptionFees: d("0.65"),
		DefaultMarginRates: map[string]decimal.Decimal{
			"USD": d("6.2500"),
			"CAD": d("5.0000"),
		},
	}
	require.NoError(t, repo.CreateAccount(ctx, account))
	require.NotEmpty(t, account.ID)

	got, err := repo.FindAccountForUser(ctx, "u1", account.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Margin", got.Name)
	assert.True(t, got.DefaultFees(domain.AssetOption).Equal(d("0.65")))
	assert.True(t, got.DefaultMarginRate("CAD").Equal(d("5")))
	assert.True(t, got.DefaultMarginRate("EUR").IsZero())

	other, err := repo.FindAccountForUser(ctx, "u2", account.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestRepository_RateHistory(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	latest, err := repo.FindLatestRate(ctx, "CAD", "USD")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.UpsertRate(ctx, "CAD", "USD", domain.Date(2024, 1, 2), d("0.745000")))
	require.NoError(t, repo.UpsertRate(ctx, "CAD", "USD", domain.Date(2024, 1, 3), d("0.741000")))
	// Same date again updates in place.
	require.NoError(t, repo.UpsertRate(ctx, "CAD", "USD", domain.Date(2024, 1, 3), d("0.742500")))

	latest, err = repo.FindLatestRate(ctx, "CAD", "USD")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-01-03", domain.FormatDate(latest.EffectiveDate))
	assert.Equal(t, "0.742500", latest.Rate.StringFixed(6))

	byDate, err := repo.FindRateByDate(ctx, "CAD", "USD", domain.Date(2024, 1, 2))
	require.NoError(t, err)
	require.NotNil(t, byDate)
	assert.Equal(t, "0.745000", byDate.Rate.StringFixed(6))

	var rows int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM exchange_rates`).Scan(&rows))
	assert.Equal(t, 2, rows)

	missing, err := repo.FindRateByDate(ctx, "USD", "CAD", domain.Date(2024, 1, 2))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_Aggregates(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	usd := newTrade("u1", "AAPL", domain.Date(2024, 2, 15)) // 24.00
	cad := newTrade("u1", "SHOP", domain.Date(2024, 2, 15))
	cad.Currency = "CAD"
	cad.Fees = d("1.01")
	cad.RealizedPnl = pnl.RealizedPnl(pnl.InputFromTrade(cad)) // 23.99
	loss := newTrade("u1", "LOSS", domain.Date(2024, 3, 1))
	loss.Currency = "CAD"
	loss.ExitPrice = d("9.9950")
	loss.Fees = decimal.Zero
	loss.RealizedPnl = pnl.RealizedPnl(pnl.InputFromTrade(loss)) // -0.05
	for _, tr := range []*domain.Trade{usd, cad, loss} {
		require.NoError(t, repo.SaveTrade(ctx, tr))
	}

	conv := ports.Conversion{Secondary: "CAD", Rate: d("0.75")}

	count, err := repo.CountTrades(ctx, "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// 24.00 + round(23.99 × 0.75 = 17.9925) + round(-0.05 × 0.75 = -0.0375)
	sum, err := repo.SumPnl(ctx, "u1", conv, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "41.95", sum.StringFixed(2))

	notional, err := repo.SumNotional(ctx, "u1", conv, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "250.00", notional.StringFixed(2))

	bestDay, err := repo.BestDay(ctx, "u1", conv, domain.DateRange{})
	require.NoError(t, err)
	require.NotNil(t, bestDay)
	assert.Equal(t, "2024-02-15", bestDay.Period)
	assert.Equal(t, 2, bestDay.Trades)
	assert.Equal(t, "41.99", bestDay.Pnl.StringFixed(2))

	bestMonth, err := repo.BestMonth(ctx, "u1", conv, domain.YearRange(2024))
	require.NoError(t, err)
	require.NotNil(t, bestMonth)
	assert.Equal(t, "2024-02", bestMonth.Period)

	none, err := repo.BestDay(ctx, "u1", conv, domain.YearRange(2023))
	require.NoError(t, err)
	assert.Nil(t, none)

	latest, err := repo.LatestClosedAt(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-03-01", domain.FormatDate(*latest))

	latest, err = repo.LatestClosedAt(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, latest)
}
