package statement

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/eazycard/eazycard/internal/account"
)

const (
	// TableTitle heads the reload table of a weekly statement.
	TableTitle = "Voici votre historique des recharges\n"
	// EmptyTable replaces the table when there is nothing to list.
	EmptyTable = "Aucune transaction à afficher."
	// Subject of the weekly statement email.
	Subject = "VOTRE HISTORIQUE DE TRANSACTION EAZYCard ENVOYE CHAQUE SEMAINE"

	tableHeader = "| Date | Montant | Devise | Méthode paiement |"
)

var tableSeparator = strings.Repeat("-", utf8.RuneCountInString(tableHeader))

// RenderTable lays entries out one row each, in the order given.
func RenderTable(entries []account.ReloadEntry, title, currency string) string {
	if len(entries) == 0 {
		return EmptyTable
	}
	rows := make([]string, 0, len(entries)+3)
	rows = append(rows, title, tableHeader, tableSeparator)
	for _, e := range entries {
		rows = append(rows, fmt.Sprintf("| %s | %s | %s | %s |",
			e.Date.Format(account.DateLayout), e.Amount.StringFixed(2), currency, e.PaymentMethod))
	}
	return strings.Join(rows, "\n")
}

// Compose builds the statement body for one account.
func Compose(acc account.ClientAccount, currency string) string {
	return fmt.Sprintf("%s\nVotre solde actuel est %s %s\n%s",
		acc.FullName(), acc.Balance().StringFixed(2), currency,
		RenderTable(acc.ReloadHistory, TableTitle, currency))
}
