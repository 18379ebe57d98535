package fx

import (
	"context"
	"sync"
	"time"

	"tradeLedger/internal/domain"

	"github.com/shopspring/decimal"
)

type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockSource struct {
	quotes []domain.Quote
	err    error
	block  bool
	calls  int
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.quotes, m.err
}

type upsertCall struct {
	base, quote string
	date        time.Time
	rate        decimal.Decimal
}

type mockHistory struct {
	latest    *domain.RateRecord
	latestErr error
	upsertErr error
	upserts   []upsertCall
}

func (m *mockHistory) FindLatestRate(ctx context.Context, base, quote string) (*domain.RateRecord, error) {
	return m.latest, m.latestErr
}

func (m *mockHistory) FindRateByDate(ctx context.Context, base, quote string, date time.Time) (*domain.RateRecord, error) {
	for _, u := range m.upserts {
		if u.base == base && u.quote == quote && u.date.Equal(date) {
			return &domain.RateRecord{Base: base, Quote: quote, EffectiveDate: date, Rate: u.rate}, nil
		}
	}
	return nil, nil
}

func (m *mockHistory) UpsertRate(ctx context.Context, base, quote string, date time.Time, rate decimal.Decimal) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, upsertCall{base: base, quote: quote, date: date, rate: rate})
	return nil
}
