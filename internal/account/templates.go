package account

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eazycard/eazycard/internal/notification"
)

const (
	subjectAccountCreated = "CONFIRMATION DE CRÉATION DE VOTRE COMPTE EAZYCARD"
	subjectRecharge       = "VOTRE RECHARGE EAZYCard A REUSSI"
	subjectRefund         = "VOTRE REMBOURSEMENT EAZYCard A REUSSI"
)

const accountCreatedBody = `Bonjour %s
Nous avons le plaisir de vous informer que votre compte EAZYCard a été créé avec succès.
Détails du compte :
    - ID du compte : %s
    - Date de création : %s
    - Recharge initiale : %s %s
    - Solde actuel : %s %s

Pour toute communication future, veuillez s'il vous plaît préciser l'ID de votre compte : %s

Nous restons à votre disposition pour toute question ou assistance complémentaire.
Cordialement,
L'équipe EAZYCard
`

const rechargeBody = `Bonjour %s,
Nous avons le plaisir de vous informer que votre recharge EAZYCard a été réalisée avec succès.
Détails de la transaction :
    - Montant de la recharge : %s %s
    - Date de la recharge : %s
    - Nouveau solde : %s %s

Nous vous remercions de votre confiance.

Nous restons à votre disposition pour toute question ou assistance complémentaire.
Cordialement,
L'équipe EAZYCard
`

const refundBody = `Bonjour %s,
Nous avons le plaisir de vous informer que votre remboursement EAZYCard a été réalisé avec succès.
Détails de la transaction :
    - Montant du remboursement : %s %s
    - Date du remboursement : %s
    - Nouveau solde : %s %s

Nous vous remercions pour votre confiance.

Nous restons à votre disposition pour toute question ou assistance complémentaire.
Cordialement,
L'équipe EAZYCard
`

func accountCreatedMessage(acc ClientAccount, gross decimal.Decimal, currency string, day time.Time, bcc []string) notification.Message {
	return notification.Message{
		Kind:    notification.KindAccountCreated,
		To:      []string{acc.Email},
		Bcc:     bcc,
		Subject: subjectAccountCreated,
		Body: fmt.Sprintf(accountCreatedBody,
			acc.FullName(),
			acc.ID,
			day.Format(DateLayout),
			gross.StringFixed(2), currency,
			acc.Limit.StringFixed(2), currency,
			acc.ID,
		),
	}
}

func rechargeMessage(acc ClientAccount, entry ReloadEntry, amount, balance decimal.Decimal, currency string, bcc []string) notification.Message {
	kind, subject, body := notification.KindRecharge, subjectRecharge, rechargeBody
	if entry.PaymentMethod == RefundPaymentMethod {
		kind, subject, body = notification.KindRefund, subjectRefund, refundBody
	}
	return notification.Message{
		Kind:    kind,
		To:      []string{acc.Email},
		Bcc:     bcc,
		Subject: subject,
		Body: fmt.Sprintf(body,
			acc.FullName(),
			amount.StringFixed(2), currency,
			entry.Date.Format(DateLayout),
			balance.StringFixed(2), currency,
		),
	}
}
