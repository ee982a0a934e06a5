package action

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// Action names accepted in the envelope or as top-level events.
const (
	CreateClient       = "CREATE_CLIENT"
	CardRecharge       = "CARD_RECHARGE"
	HistoryReload      = "HISTORY_RELOAD"
	HistoryTransaction = "HISTORY_TRANSACTION"
)

// Event is the request envelope.
type Event struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ClientID accepts ids sent as JSON strings or numbers.
type ClientID string

func (id *ClientID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ClientID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("ClientID must be a string or a number")
	}
	*id = ClientID(n.String())
	return nil
}

type createClientPayload struct {
	ClientID      ClientID         `json:"ClientID" validate:"required"`
	FirstName     string           `json:"FirstName" validate:"required"`
	LastName      string           `json:"LastName" validate:"required"`
	Country       string           `json:"Country"`
	Email         string           `json:"Email" validate:"required,email"`
	Phone         string           `json:"Phone"`
	Limit         *decimal.Decimal `json:"Limit" validate:"required"`
	Rate          *decimal.Decimal `json:"Rate" validate:"required"`
	Currency      string           `json:"Currency" validate:"omitempty,len=3,alpha"`
	PaymentMethod string           `json:"PaymentMethod" validate:"required"`
}

type cardRechargePayload struct {
	ClientID      ClientID         `json:"ClientID" validate:"required"`
	Limit         *decimal.Decimal `json:"Limit" validate:"required"`
	Rate          *decimal.Decimal `json:"Rate" validate:"required"`
	Currency      string           `json:"Currency" validate:"omitempty,len=3,alpha"`
	PaymentMethod string           `json:"PaymentMethod" validate:"required"`
}

type historyReloadPayload struct {
	ClientID ClientID `json:"ClientID"`
}
