package statement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eazycard/eazycard/internal/account"
	"github.com/eazycard/eazycard/internal/logging"
	"github.com/eazycard/eazycard/internal/notification"
)

func TestRenderTable(t *testing.T) {
	entries := []account.ReloadEntry{
		{Amount: decimal.RequireFromString("180"), PaymentMethod: "Card", Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{Amount: decimal.RequireFromString("950"), PaymentMethod: "Virement", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	want := "Voici votre historique des recharges\n\n" +
		"| Date | Montant | Devise | Méthode paiement |\n" +
		strings.Repeat("-", 46) + "\n" +
		"| 15/01/2024 | 180.00 | EUR | Card |\n" +
		"| 01/01/2024 | 950.00 | EUR | Virement |"
	assert.Equal(t, want, RenderTable(entries, TableTitle, "EUR"))
}

func TestRenderEmptyTable(t *testing.T) {
	assert.Equal(t, EmptyTable, RenderTable(nil, TableTitle, "EUR"))
}

func TestCompose(t *testing.T) {
	acc := account.ClientAccount{
		FirstName: "Awa",
		LastName:  "Ndiaye",
		Limit:     decimal.RequireFromString("1130"),
		Spend:     decimal.RequireFromString("30.5"),
	}
	assert.Equal(t, "Awa Ndiaye\nVotre solde actuel est 1099.50 EUR\nAucune transaction à afficher.", Compose(acc, "EUR"))
}

type flakyNotifier struct {
	failFor map[string]bool
	sent    []notification.Message
}

func (n *flakyNotifier) Send(_ context.Context, m notification.Message) error {
	if n.failFor[m.To[0]] {
		return errors.New("mailbox unavailable")
	}
	n.sent = append(n.sent, m)
	return nil
}

type countingObserver struct{ failures int }

func (c *countingObserver) StatementFailures(n int) { c.failures += n }

func TestSendWeeklyIsolatesFailures(t *testing.T) {
	repo := account.NewMemoryRepository()
	ctx := context.Background()
	for _, acc := range []account.ClientAccount{
		{ID: "1", FirstName: "Awa", LastName: "Ndiaye", Email: "awa@example.com", Limit: decimal.NewFromInt(100)},
		{ID: "2", FirstName: "Jean", LastName: "Mbarga", Email: "jean@example.com", Limit: decimal.NewFromInt(50)},
		{ID: "3", FirstName: "Paul", LastName: "Biya", Email: "paul@example.com", Limit: decimal.NewFromInt(10)},
	} {
		rec, err := account.Encode(acc)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, rec))
	}
	require.NoError(t, repo.Create(ctx, account.Record{ClientID: "4", Limit: "lots"}))

	notifier := &flakyNotifier{failFor: map[string]bool{"jean@example.com": true}}
	observer := &countingObserver{}
	svc := NewService(repo, notifier, []string{"ops@eazycard.test"}, "EUR", observer, logging.Discard())

	report, err := svc.SendWeekly(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, 2, observer.failures)

	failed := map[string]bool{}
	for _, f := range report.Failures {
		failed[f.ClientID] = true
	}
	assert.Equal(t, map[string]bool{"2": true, "4": true}, failed)
	assert.ErrorIs(t, report.Err(), account.ErrCorruptRecord)

	require.Len(t, notifier.sent, 2)
	msg := notifier.sent[0]
	assert.Equal(t, notification.KindStatement, msg.Kind)
	assert.Equal(t, Subject, msg.Subject)
	assert.Equal(t, []string{"ops@eazycard.test"}, msg.Bcc)
	assert.Contains(t, msg.Body, "Votre solde actuel est 100.00 EUR")
}

func TestSendWeeklyCleanRun(t *testing.T) {
	svc := NewService(account.NewMemoryRepository(), &flakyNotifier{}, nil, "EUR", nil, logging.Discard())
	report, err := svc.SendWeekly(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.NoError(t, report.Err())
}
