package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPSource reads rate tables from an exchangerate-api.com v4 style endpoint:
// GET <baseURL>/<BASE> returning {"base": "...", "rates": {"EUR": 1.0, ...}}.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// NewHTTPSource creates a source with a bounded request timeout.
func NewHTTPSource(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Latest fetches the current table for base.
func (s *HTTPSource) Latest(ctx context.Context, base string) (RateTable, error) {
	base = Code(base)
	url := fmt.Sprintf("%s/%s", s.baseURL, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RateTable{}, fmt.Errorf("%w: build request: %v", ErrSourceUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return RateTable{}, fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RateTable{}, fmt.Errorf("%w: status %d: %s", ErrSourceUnreachable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return RateTable{}, fmt.Errorf("%w: decode response: %v", ErrSourceUnreachable, err)
	}
	if payload.Rates == nil {
		return RateTable{}, fmt.Errorf("%w: response carries no rates", ErrSourceUnreachable)
	}

	s.logger.Debug("exchange rates fetched", "base", base, "count", len(payload.Rates), "date", payload.Date)

	rates := make(map[string]decimal.Decimal, len(payload.Rates))
	for code, rate := range payload.Rates {
		rates[Code(code)] = rate
	}
	if _, ok := rates[base]; !ok {
		rates[base] = decimal.NewFromInt(1)
	}

	return RateTable{Base: base, Rates: rates, FetchedAt: time.Now().UTC()}, nil
}
