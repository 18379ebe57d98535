// Package quotes contains the external exchange-rate sources.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradeLedger/internal/domain"
	"tradeLedger/internal/ports"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// DefaultCBSAEndpoint publishes daily Canada Border Services Agency rates.
const DefaultCBSAEndpoint = "https://bcd-api-dca-ipa.cbsa-asfc.cloud-nuage.canada.ca/exchange-rate-lambda/exchange-rates"

// recordsPath selects the record list itself; a wildcard would turn a missing
// key into an empty result.
const recordsPath = "$.ForeignExchangeRates"

/*
	{
	    "ForeignExchangeRates": [
	        {
	            "FromCurrency": {"Value": "USD"},
	            "ToCurrency": {"Value": "CAD"},
	            "Rate": "1.4012",
	            "ExchangeRateEffectiveTimestamp": "2024-12-05T08:00:00Z"
	        }
	    ]
	}
*/

// CBSASource reads rates from a CBSA-style JSON endpoint.
type CBSASource struct {
	endpoint string
	client   *http.Client
	logger   ports.Logger
	now      func() time.Time
}

// CBSAConfig holds configuration for the HTTP quote source.
type CBSAConfig struct {
	Endpoint string
	Client   *http.Client // Optional; deadlines come from the request context
	Logger   ports.Logger
}

// NewCBSASource creates an HTTP quote source.
func NewCBSASource(cfg CBSAConfig) (*CBSASource, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for CBSA quote source")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultCBSAEndpoint
	}
	client := cfg.Client
	if client == nil {
		client = new(http.Client)
	}
	return &CBSASource{endpoint: endpoint, client: client, logger: cfg.Logger, now: time.Now}, nil
}

// Name identifies the source in logs and snapshots.
func (s *CBSASource) Name() string { return "cbsa" }

// FetchQuotes performs one GET and returns every well-formed record.
// Records with unreadable currencies or rates are skipped.
func (s *CBSASource) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	var jobj any
	if err := s.jwget(ctx, &jobj); err != nil {
		return nil, err
	}

	jval, err := jsonpath.Get(recordsPath, jobj)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrMalformedQuote, recordsPath, err)
	}
	records, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", ports.ErrMalformedQuote, recordsPath)
	}

	quotes := make([]domain.Quote, 0, len(records))
	for _, rec := range records {
		q, err := s.toQuote(rec)
		if err != nil {
			s.logger.Debug(ctx, "Skipping exchange rate record", map[string]interface{}{"error": err.Error()})
			continue
		}
		quotes = append(quotes, q)
	}
	s.logger.Debug(ctx, "Fetched exchange rate records", map[string]interface{}{
		"records": len(records), "usable": len(quotes),
	})
	return quotes, nil
}

func (s *CBSASource) jwget(ctx context.Context, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ports.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: GET %s: %s", ports.ErrRateLimited, req.URL.Host, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: GET %s%s: %s", ports.ErrSourceUnavailable, req.URL.Host, req.URL.Path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ports.ErrSourceUnavailable, err)
	}
	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrMalformedQuote, err)
	}
	return nil
}

func (s *CBSASource) toQuote(rec any) (domain.Quote, error) {
	from, err := currencyAt(rec, "FromCurrency")
	if err != nil {
		return domain.Quote{}, err
	}
	to, err := currencyAt(rec, "ToCurrency")
	if err != nil {
		return domain.Quote{}, err
	}
	rate, err := rateAt(rec)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{From: from, To: to, Rate: rate, Timestamp: s.timestampAt(rec)}, nil
}

// currencyAt accepts both {"Value": "USD"} and a bare "USD".
func currencyAt(rec any, field string) (string, error) {
	jval, err := jsonpath.Get("$."+field, rec)
	if err != nil {
		return "", err
	}
	if m, ok := jval.(map[string]any); ok {
		jval = m["Value"]
	}
	code, ok := jval.(string)
	if !ok || code == "" {
		return "", fmt.Errorf("%s is not a currency code: %v", field, jval)
	}
	return strings.ToUpper(code), nil
}

// rateAt accepts the rate as a JSON string or number.
func rateAt(rec any) (decimal.Decimal, error) {
	jval, err := jsonpath.Get("$.Rate", rec)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := jval.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("rate is neither string nor number: %v", jval)
	}
}

// timestampAt falls back to the current time when the timestamp is missing
// or unreadable.
func (s *CBSASource) timestampAt(rec any) time.Time {
	jval, err := jsonpath.Get("$.ExchangeRateEffectiveTimestamp", rec)
	if err != nil {
		return s.now()
	}
	str, ok := jval.(string)
	if !ok {
		return s.now()
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t
		}
	}
	return s.now()
}
