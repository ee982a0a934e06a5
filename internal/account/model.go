package account

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RefundPaymentMethod marks a recharge booked as a refund.
const RefundPaymentMethod = "Remboursement"

// DateLayout is the day-precision layout used on the wire and in storage.
const DateLayout = "02/01/2006"

// ClientAccount is the prepaid card state of one client. Monetary values are
// in the settlement currency.
type ClientAccount struct {
	ID                    string
	FirstName             string
	LastName              string
	Country               string
	Email                 string
	Phone                 string
	Limit                 decimal.Decimal
	Spend                 decimal.Decimal
	CardLimitReachedCount int
	ReloadHistory         []ReloadEntry
	Version               int64
}

// FullName returns "First Last".
func (a ClientAccount) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Balance returns limit - spend rounded to cents. It is never stored.
func (a ClientAccount) Balance() decimal.Decimal {
	return a.Limit.Sub(a.Spend).Round(2)
}

// ReloadEntry records one credited recharge.
type ReloadEntry struct {
	Amount        decimal.Decimal
	PaymentMethod string
	Date          time.Time
	ClientID      string
	// Name is a display field stamped in by history queries, never persisted.
	Name string
}

// MarshalJSON renders the entry the way clients of the action API read it.
func (e ReloadEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount        json.Number `json:"Amount"`
		PaymentMethod string      `json:"PaymentMethod"`
		Date          string      `json:"Date"`
		ClientID      string      `json:"clientID"`
		Name          string      `json:"Name,omitempty"`
	}{
		Amount:        json.Number(e.Amount.StringFixed(2)),
		PaymentMethod: e.PaymentMethod,
		Date:          e.Date.Format(DateLayout),
		ClientID:      e.ClientID,
		Name:          e.Name,
	})
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
