package account

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract checks the behaviour every Repository must share.
// Ids are prefixed so a shared database only sees this run's rows.
func runRepositoryContract(t *testing.T, repo Repository, prefix string) {
	t.Helper()
	ctx := context.Background()
	id := func(s string) string { return prefix + s }

	_, err := repo.Get(ctx, id("missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	rec := Record{
		ClientID:         id("b"),
		FirstName:        "Awa",
		LastName:         "Ndiaye",
		Email:            "awa@example.com",
		Spend:            "0",
		Limit:            "950.00",
		CardLimitReached: "0",
		ReloadingHistory: "[]",
	}
	require.NoError(t, repo.Create(ctx, rec))
	assert.ErrorIs(t, repo.Create(ctx, Record{ClientID: id("b"), Limit: "1.00"}), ErrAlreadyExists)

	got, err := repo.Get(ctx, id("b"))
	require.NoError(t, err)
	assert.Equal(t, "950.00", got.Limit)
	assert.Equal(t, "Awa", got.FirstName)
	assert.Equal(t, int64(1), got.Version)

	update := BalanceUpdate{Limit: "1130.00", CardLimitReached: "0", ReloadingHistory: `[{"Amount":"180.00"}]`, ExpectedVersion: 1}
	require.NoError(t, repo.UpdateBalance(ctx, id("b"), update))

	got, err = repo.Get(ctx, id("b"))
	require.NoError(t, err)
	assert.Equal(t, "1130.00", got.Limit)
	assert.Equal(t, `[{"Amount":"180.00"}]`, got.ReloadingHistory)
	assert.Equal(t, "0", got.Spend)
	assert.Equal(t, int64(2), got.Version)

	stale := update
	stale.Limit = "9999.00"
	assert.ErrorIs(t, repo.UpdateBalance(ctx, id("b"), stale), ErrVersionConflict)
	assert.ErrorIs(t, repo.UpdateBalance(ctx, id("missing"), update), ErrNotFound)

	got, err = repo.Get(ctx, id("b"))
	require.NoError(t, err)
	assert.Equal(t, "1130.00", got.Limit)

	require.NoError(t, repo.Create(ctx, Record{ClientID: id("a"), Limit: "10.00", Spend: "0", CardLimitReached: "0", ReloadingHistory: "[]"}))
	records, err := repo.List(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range records {
		if strings.HasPrefix(r.ClientID, prefix) {
			ids = append(ids, r.ClientID)
		}
	}
	assert.Equal(t, []string{id("a"), id("b")}, ids)
}

func TestMemoryRepositoryContract(t *testing.T) {
	runRepositoryContract(t, NewMemoryRepository(), "")
}

func TestPostgresRepositoryContract(t *testing.T) {
	url := os.Getenv("EAZYCARD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("EAZYCARD_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	prefix := "contract-" + uuid.NewString() + "-"
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM clients WHERE client_id LIKE $1`, prefix+"%")
	})

	runRepositoryContract(t, repo, prefix)
}
