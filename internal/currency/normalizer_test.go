package currency

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu     sync.Mutex
	tables map[string]RateTable
	err    error
	calls  int
}

func (s *stubSource) Latest(_ context.Context, base string) (RateTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return RateTable{}, s.err
	}
	table, ok := s.tables[base]
	if !ok {
		return RateTable{}, ErrSourceUnreachable
	}
	return table, nil
}

func xafTable() RateTable {
	return RateTable{
		Base: "XAF",
		Rates: map[string]decimal.Decimal{
			"XAF": decimal.NewFromInt(1),
			"EUR": decimal.RequireFromString("0.001524"),
			"USD": decimal.RequireFromString("0.00165"),
		},
	}
}

func TestNormalizeSameCurrencySkipsLookup(t *testing.T) {
	src := &stubSource{}
	n := NewNormalizer(src, "EUR")

	got, err := n.Normalize(context.Background(), decimal.NewFromInt(1000), "eur")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(1000)))
	assert.Zero(t, src.calls)
}

func TestNormalizeEmptyCurrencyDefaultsToSettlement(t *testing.T) {
	src := &stubSource{}
	n := NewNormalizer(src, "EUR")

	got, err := n.Normalize(context.Background(), decimal.NewFromInt(250), "")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(250)))
	assert.Zero(t, src.calls)
}

func TestNormalizeConvertsWithRateRatio(t *testing.T) {
	src := &stubSource{tables: map[string]RateTable{"XAF": xafTable()}}
	n := NewNormalizer(src, "EUR")

	got, err := n.Normalize(context.Background(), decimal.NewFromInt(100000), "XAF")
	require.NoError(t, err)
	assert.Equal(t, "152.4", got.String())
}

func TestNormalizeMissingCodeIsRateUnavailable(t *testing.T) {
	src := &stubSource{tables: map[string]RateTable{"XAF": xafTable()}}
	n := NewNormalizer(src, "GBP")

	_, err := n.Normalize(context.Background(), decimal.NewFromInt(10), "XAF")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateUnavailable))
}

func TestNormalizePropagatesSourceFailure(t *testing.T) {
	src := &stubSource{err: ErrSourceUnreachable}
	n := NewNormalizer(src, "EUR")

	_, err := n.Normalize(context.Background(), decimal.NewFromInt(10), "XAF")
	assert.ErrorIs(t, err, ErrSourceUnreachable)
}

func TestSnapshotReusesTable(t *testing.T) {
	src := &stubSource{tables: map[string]RateTable{"XAF": xafTable()}}
	snap := NewNormalizer(src, "EUR").Snapshot()
	ctx := context.Background()

	_, err := snap.Convert(ctx, decimal.NewFromInt(1), "XAF", "")
	require.NoError(t, err)
	_, err = snap.Convert(ctx, decimal.NewFromInt(2), "XAF", "USD")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
}
