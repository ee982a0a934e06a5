package history

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eazycard/eazycard/internal/account"
	"github.com/eazycard/eazycard/internal/logging"
)

func day(d, m int) time.Time {
	return time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func entry(amount string, method string, date time.Time, id string) account.ReloadEntry {
	return account.ReloadEntry{Amount: decimal.RequireFromString(amount), PaymentMethod: method, Date: date, ClientID: id}
}

func TestAnnotateDoesNotMutateInput(t *testing.T) {
	in := []account.ReloadEntry{entry("10", "Card", day(1, 1), "1")}
	out := Annotate(in, "Awa", "Ndiaye")
	assert.Equal(t, "Awa Ndiaye", out[0].Name)
	assert.Empty(t, in[0].Name)
}

func TestSortDescendingByDateIsStable(t *testing.T) {
	in := []account.ReloadEntry{
		entry("1", "a", day(1, 1), "1"),
		entry("2", "b", day(15, 1), "1"),
		entry("3", "c", day(1, 1), "1"),
		entry("4", "d", day(15, 1), "1"),
	}
	out := SortDescendingByDate(in)

	methods := make([]string, len(out))
	for i, e := range out {
		methods[i] = e.PaymentMethod
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, methods)
	assert.Equal(t, "a", in[0].PaymentMethod)

	assert.Equal(t, out, SortDescendingByDate(out))
}

func TestSortEmpty(t *testing.T) {
	out := SortDescendingByDate(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestMergeAllOrdersAcrossClients(t *testing.T) {
	accounts := []account.ClientAccount{
		{ID: "1", FirstName: "Awa", LastName: "Ndiaye", ReloadHistory: []account.ReloadEntry{entry("10", "Card", day(1, 1), "1")}},
		{ID: "2", FirstName: "Jean", LastName: "Mbarga", ReloadHistory: []account.ReloadEntry{entry("20", "Card", day(15, 1), "2")}},
	}
	out := MergeAll(accounts)
	require.Len(t, out, 2)
	assert.Equal(t, "15/01/2024", out[0].Date.Format(account.DateLayout))
	assert.Equal(t, "Jean Mbarga", out[0].Name)
	assert.Equal(t, "01/01/2024", out[1].Date.Format(account.DateLayout))
	assert.Equal(t, "Awa Ndiaye", out[1].Name)
}

func seed(t *testing.T, repo account.Repository, acc account.ClientAccount) {
	t.Helper()
	rec, err := account.Encode(acc)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), rec))
}

func TestServiceForClient(t *testing.T) {
	repo := account.NewMemoryRepository()
	seed(t, repo, account.ClientAccount{
		ID: "1", FirstName: "Awa", LastName: "Ndiaye", Limit: decimal.NewFromInt(30),
		ReloadHistory: []account.ReloadEntry{entry("10", "Card", day(1, 1), "1"), entry("20", "Card", day(2, 1), "1")},
	})
	svc := NewService(repo, logging.Discard())

	out, err := svc.ForClient(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "20.00", out[0].Amount.StringFixed(2))
	assert.Equal(t, "Awa Ndiaye", out[0].Name)

	_, err = svc.ForClient(context.Background(), "2")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestServiceAllSkipsCorruptRecords(t *testing.T) {
	repo := account.NewMemoryRepository()
	seed(t, repo, account.ClientAccount{ID: "1", FirstName: "Awa", LastName: "Ndiaye", ReloadHistory: []account.ReloadEntry{entry("10", "Card", day(1, 1), "1")}})
	seed(t, repo, account.ClientAccount{ID: "2", FirstName: "Jean", LastName: "Mbarga", ReloadHistory: []account.ReloadEntry{entry("20", "Card", day(15, 1), "2")}})
	require.NoError(t, repo.Create(context.Background(), account.Record{
		ClientID:         "3",
		ReloadingHistory: `[{"Amount":1,"PaymentMethod":"Card","Date":"not a date","clientID":"3"}]`,
	}))

	report, err := NewService(repo, logging.Discard()).All(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "2", report.Entries[0].ClientID)
	assert.Equal(t, "1", report.Entries[1].ClientID)
	require.Len(t, report.Corrupt, 1)
	assert.Equal(t, "3", report.Corrupt[0].ClientID)
}

func TestServiceAllEmptyStore(t *testing.T) {
	report, err := NewService(account.NewMemoryRepository(), logging.Discard()).All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report.Entries)
	assert.Empty(t, report.Entries)
}
