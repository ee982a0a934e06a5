package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRateUnavailable means the rate table lacks one of the requested codes.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrSourceUnreachable means the rate lookup could not be completed.
	ErrSourceUnreachable = errors.New("exchange rate source unreachable")
)

// RateTable is one snapshot of spot rates quoted against Base.
type RateTable struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// Convert applies amount * rate[to] / rate[from] using the snapshot.
func (t RateTable) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fromRate, ok := t.Rates[from]
	if !ok || fromRate.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s not quoted against %s", ErrRateUnavailable, from, t.Base)
	}
	toRate, ok := t.Rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s not quoted against %s", ErrRateUnavailable, to, t.Base)
	}
	return amount.Mul(toRate.Div(fromRate)), nil
}

// Source fetches the latest rate table for a base currency.
type Source interface {
	Latest(ctx context.Context, base string) (RateTable, error)
}

// Normalizer converts amounts into the settlement currency.
type Normalizer struct {
	source     Source
	settlement string
}

// NewNormalizer builds a normalizer that settles in the given currency.
func NewNormalizer(source Source, settlement string) *Normalizer {
	return &Normalizer{source: source, settlement: Code(settlement)}
}

// Settlement returns the code all stored balances are denominated in.
func (n *Normalizer) Settlement() string {
	return n.settlement
}

// Normalize converts amount from the given currency into the settlement currency.
func (n *Normalizer) Normalize(ctx context.Context, amount decimal.Decimal, from string) (decimal.Decimal, error) {
	return n.Snapshot().Convert(ctx, amount, from, n.settlement)
}

// Snapshot returns a converter that fetches each base table at most once, so
// every conversion within one logical operation sees the same rates.
func (n *Normalizer) Snapshot() *Snapshot {
	return &Snapshot{normalizer: n, tables: make(map[string]RateTable)}
}

// Snapshot is a per-operation view over the rate source. Safe for concurrent use.
type Snapshot struct {
	normalizer *Normalizer
	mu         sync.Mutex
	tables     map[string]RateTable
}

// Convert converts amount between two currencies. Empty codes mean the
// settlement currency. Lookup failures are returned unchanged.
func (s *Snapshot) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = s.normalizer.resolve(from)
	to = s.normalizer.resolve(to)
	if from == to {
		return amount, nil
	}

	table, err := s.table(ctx, from)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return table.Convert(amount, from, to)
}

func (s *Snapshot) table(ctx context.Context, base string) (RateTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if table, ok := s.tables[base]; ok {
		return table, nil
	}
	table, err := s.normalizer.source.Latest(ctx, base)
	if err != nil {
		return RateTable{}, err
	}
	s.tables[base] = table
	return table, nil
}

func (n *Normalizer) resolve(code string) string {
	if code = Code(code); code == "" {
		return n.settlement
	}
	return code
}

// Code canonicalizes a currency code.
func Code(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
