package account

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// lenientDateLayout also accepts the unpadded d/m/yyyy dates of older records.
const lenientDateLayout = "2/1/2006"

// Record is the stored shape of a client: one item per client keyed by
// ClientID, money as decimal strings and the reload history as a JSON array.
type Record struct {
	ClientID         string `dynamodbav:"ClientID"`
	FirstName        string `dynamodbav:"FirstName"`
	LastName         string `dynamodbav:"LastName"`
	Country          string `dynamodbav:"Country"`
	Email            string `dynamodbav:"Email"`
	Phone            string `dynamodbav:"Phone"`
	Spend            string `dynamodbav:"Spend"`
	Limit            string `dynamodbav:"Limit"`
	CardLimitReached string `dynamodbav:"CardLimitReached"`
	ReloadingHistory string `dynamodbav:"ReloadingHistory,omitempty"`
	Version          int64  `dynamodbav:"Version,omitempty"`

	// loadErr is set by stores that could read the key but not the item.
	loadErr error
}

type storedEntry struct {
	Amount        json.Number `json:"Amount"`
	PaymentMethod string      `json:"PaymentMethod"`
	Date          string      `json:"Date"`
	ClientID      string      `json:"clientID"`
}

type loadedEntry struct {
	Amount        decimal.Decimal `json:"Amount"`
	PaymentMethod string          `json:"PaymentMethod"`
	Date          string          `json:"Date"`
	ClientID      flexibleID      `json:"clientID"`
}

// flexibleID accepts ids written either as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
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
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("client id must be a string or number: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// Encode maps an account onto its stored record.
func Encode(a ClientAccount) (Record, error) {
	history, err := EncodeHistory(a.ReloadHistory)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ClientID:         a.ID,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Country:          a.Country,
		Email:            a.Email,
		Phone:            a.Phone,
		Spend:            a.Spend.StringFixed(2),
		Limit:            a.Limit.StringFixed(2),
		CardLimitReached: fmt.Sprint(a.CardLimitReachedCount),
		ReloadingHistory: history,
		Version:          a.Version,
	}, nil
}

// EncodeHistory serializes reload entries in their given order.
func EncodeHistory(entries []ReloadEntry) (string, error) {
	stored := make([]storedEntry, 0, len(entries))
	for _, e := range entries {
		stored = append(stored, storedEntry{
			Amount:        json.Number(e.Amount.StringFixed(2)),
			PaymentMethod: e.PaymentMethod,
			Date:          e.Date.Format(DateLayout),
			ClientID:      e.ClientID,
		})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode reload history: %w", err)
	}
	return string(raw), nil
}

// Decode maps a stored record onto an account. Any unreadable field yields a
// *CorruptRecordError naming it.
func Decode(r Record) (ClientAccount, error) {
	corrupt := func(field string, err error) (ClientAccount, error) {
		return ClientAccount{}, &CorruptRecordError{ClientID: r.ClientID, Field: field, Err: err}
	}

	if r.ClientID == "" {
		return corrupt("ClientID", errors.New("empty"))
	}
	if r.loadErr != nil {
		return corrupt("item", r.loadErr)
	}
	spend, err := parseMoney(r.Spend)
	if err != nil {
		return corrupt("Spend", err)
	}
	limit, err := parseMoney(r.Limit)
	if err != nil {
		return corrupt("Limit", err)
	}
	reached, err := parseCounter(r.CardLimitReached)
	if err != nil {
		return corrupt("CardLimitReached", err)
	}
	history, err := DecodeHistory(r.ClientID, r.ReloadingHistory)
	if err != nil {
		return corrupt("ReloadingHistory", err)
	}

	return ClientAccount{
		ID:                    r.ClientID,
		FirstName:             r.FirstName,
		LastName:              r.LastName,
		Country:               r.Country,
		Email:                 r.Email,
		Phone:                 r.Phone,
		Limit:                 limit,
		Spend:                 spend,
		CardLimitReachedCount: reached,
		ReloadHistory:         history,
		Version:               r.Version,
	}, nil
}

// DecodeHistory parses a stored history. Entries without a client id inherit
// clientID; entries naming another client are rejected.
func DecodeHistory(clientID, raw string) ([]ReloadEntry, error) {
	if strings.TrimSpace(raw) == "" {
		return []ReloadEntry{}, nil
	}

	var loaded []loadedEntry
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		return nil, fmt.Errorf("decode reload history: %w", err)
	}

	entries := make([]ReloadEntry, 0, len(loaded))
	for i, l := range loaded {
		date, err := time.Parse(lenientDateLayout, strings.TrimSpace(l.Date))
		if err != nil {
			return nil, fmt.Errorf("entry %d: date %q: %w", i, l.Date, err)
		}
		owner := string(l.ClientID)
		if owner == "" {
			owner = clientID
		}
		if owner != clientID {
			return nil, fmt.Errorf("entry %d belongs to client %s", i, owner)
		}
		entries = append(entries, ReloadEntry{
			Amount:        l.Amount,
			PaymentMethod: l.PaymentMethod,
			Date:          date,
			ClientID:      owner,
		})
	}
	return entries, nil
}

// DecodeAll decodes every record, returning the readable accounts and one
// *CorruptRecordError per unreadable record.
func DecodeAll(records []Record) ([]ClientAccount, []*CorruptRecordError) {
	accounts := make([]ClientAccount, 0, len(records))
	var corrupt []*CorruptRecordError
	for _, r := range records {
		acc, err := Decode(r)
		if err != nil {
			var cre *CorruptRecordError
			if errors.As(err, &cre) {
				corrupt = append(corrupt, cre)
				continue
			}
			corrupt = append(corrupt, &CorruptRecordError{ClientID: r.ClientID, Field: "record", Err: err})
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts, corrupt
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseCounter(s string) (int, error) {
	d, err := parseMoney(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("counter %q is not a non-negative integer", s)
	}
	return int(d.IntPart()), nil
}
