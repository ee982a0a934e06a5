package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eazycard/eazycard/internal/currency"
	"github.com/eazycard/eazycard/internal/notification"
)

const (
	msgCreated      = "Client created successfully."
	msgExists       = "Client already exists."
	msgInvalidRate  = "The rate is incorrect it must be between 0 and 1."
	msgNegativeFund = "Refill amount cannot be negative"
	msgMissingID    = "ClientID is required."
)

// Outcome enumerates the business results of engine operations.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeRecharged
	OutcomeConflict
	OutcomeNotFound
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRecharged:
		return "recharged"
	case OutcomeConflict:
		return "conflict"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result reports a create or recharge. ConversionAmount is the gross amount in
// the settlement currency, Credited the net amount added to the limit.
type Result struct {
	Outcome          Outcome
	Message          string
	ConversionAmount decimal.Decimal
	Credited         decimal.Decimal
	NewLimit         decimal.Decimal
	Balance          decimal.Decimal
	Account          ClientAccount
}

// CreateInput carries the parameters of a client creation. Limit is expressed
// in Currency and Rate is the fee fraction; neither is stored as such.
type CreateInput struct {
	ClientID      string
	FirstName     string
	LastName      string
	Country       string
	Email         string
	Phone         string
	Limit         decimal.Decimal
	Rate          decimal.Decimal
	Currency      string
	PaymentMethod string
}

// RechargeInput carries the parameters of a card recharge.
type RechargeInput struct {
	ClientID      string
	Amount        decimal.Decimal
	Rate          decimal.Decimal
	Currency      string
	PaymentMethod string
}

// EngineConfig holds the engine's explicit collaborators' settings.
type EngineConfig struct {
	// AdminRecipients are copied on every client notification.
	AdminRecipients []string
	// MaxUpdateAttempts bounds optimistic retries of a recharge write.
	MaxUpdateAttempts int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine applies the account creation and recharge rules.
type Engine struct {
	repo     Repository
	rates    *currency.Normalizer
	notifier notification.Notifier
	admins   []string
	attempts int
	now      func() time.Time
	logger   *slog.Logger
}

// NewEngine builds an accounting engine.
func NewEngine(repo Repository, rates *currency.Normalizer, notifier notification.Notifier, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.MaxUpdateAttempts < 1 {
		cfg.MaxUpdateAttempts = 3
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	admins := append([]string(nil), cfg.AdminRecipients...)
	return &Engine{
		repo:     repo,
		rates:    rates,
		notifier: notifier,
		admins:   admins,
		attempts: cfg.MaxUpdateAttempts,
		now:      cfg.Now,
		logger:   logger,
	}
}

// Settlement returns the currency balances are kept in.
func (e *Engine) Settlement() string {
	return e.rates.Settlement()
}

// Create onboards a client with an initial recharge. An existing id yields
// OutcomeConflict and leaves the stored record untouched.
func (e *Engine) Create(ctx context.Context, in CreateInput) (Result, error) {
	in.ClientID = strings.TrimSpace(in.ClientID)
	if in.ClientID == "" {
		return Result{Outcome: OutcomeInvalid, Message: msgMissingID}, nil
	}

	if _, err := e.repo.Get(ctx, in.ClientID); err == nil {
		return Result{Outcome: OutcomeConflict, Message: msgExists}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Result{}, err
	}

	if msg, ok := validate(in.Rate, in.Limit); !ok {
		return Result{Outcome: OutcomeInvalid, Message: msg}, nil
	}

	converted, err := e.rates.Normalize(ctx, in.Limit, in.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("convert initial limit: %w", err)
	}
	gross := converted.Round(2)
	net := netOf(gross, in.Rate)
	today := Day(e.now())

	acc := ClientAccount{
		ID:                    in.ClientID,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Country:               in.Country,
		Email:                 in.Email,
		Phone:                 in.Phone,
		Limit:                 net,
		Spend:                 decimal.Zero,
		CardLimitReachedCount: 0,
		ReloadHistory: []ReloadEntry{{
			Amount:        net,
			PaymentMethod: in.PaymentMethod,
			Date:          today,
			ClientID:      in.ClientID,
		}},
		Version: 1,
	}

	rec, err := Encode(acc)
	if err != nil {
		return Result{}, err
	}
	if err := e.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Result{Outcome: OutcomeConflict, Message: msgExists}, nil
		}
		return Result{}, err
	}

	e.logger.Info("client created", "client_id", acc.ID, "gross", gross.StringFixed(2), "net", net.StringFixed(2))
	e.notify(ctx, accountCreatedMessage(acc, gross, e.Settlement(), today, e.admins))

	return Result{
		Outcome:          OutcomeCreated,
		Message:          msgCreated,
		ConversionAmount: gross,
		Credited:         net,
		NewLimit:         net,
		Balance:          acc.Balance(),
		Account:          acc,
	}, nil
}

// Recharge credits a client's limit with the net converted amount, resets the
// limit-reached counter and prepends the reload entry. Spend is not touched.
func (e *Engine) Recharge(ctx context.Context, in RechargeInput) (Result, error) {
	in.ClientID = strings.TrimSpace(in.ClientID)
	if in.ClientID == "" {
		return Result{Outcome: OutcomeInvalid, Message: msgMissingID}, nil
	}

	rec, err := e.repo.Get(ctx, in.ClientID)
	if errors.Is(err, ErrNotFound) {
		return Result{Outcome: OutcomeNotFound, Message: fmt.Sprintf("Client %s not found.", in.ClientID)}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if msg, ok := validate(in.Rate, decimal.Zero); !ok {
		return Result{Outcome: OutcomeInvalid, Message: msg}, nil
	}
	converted, err := e.rates.Normalize(ctx, in.Amount, in.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("convert recharge amount: %w", err)
	}
	gross := converted.Round(2)
	if gross.IsNegative() {
		return Result{Outcome: OutcomeInvalid, Message: msgNegativeFund}, nil
	}
	net := netOf(gross, in.Rate)
	entry := ReloadEntry{Amount: net, PaymentMethod: in.PaymentMethod, Date: Day(e.now()), ClientID: in.ClientID}

	for attempt := 1; ; attempt++ {
		acc, err := Decode(rec)
		if err != nil {
			return Result{}, err
		}

		acc.Limit = acc.Limit.Add(net).Round(2)
		acc.CardLimitReachedCount = 0
		acc.ReloadHistory = append([]ReloadEntry{entry}, acc.ReloadHistory...)

		history, err := EncodeHistory(acc.ReloadHistory)
		if err != nil {
			return Result{}, err
		}
		err = e.repo.UpdateBalance(ctx, acc.ID, BalanceUpdate{
			Limit:            acc.Limit.StringFixed(2),
			CardLimitReached: "0",
			ReloadingHistory: history,
			ExpectedVersion:  acc.Version,
		})
		if err == nil {
			acc.Version++
			balance := acc.Balance()
			e.logger.Info("client recharged",
				"client_id", acc.ID,
				"gross", gross.StringFixed(2),
				"net", net.StringFixed(2),
				"new_limit", acc.Limit.StringFixed(2),
				"attempt", attempt,
			)
			e.notify(ctx, rechargeMessage(acc, entry, gross, balance, e.Settlement(), e.admins))
			return Result{
				Outcome:          OutcomeRecharged,
				Message:          fmt.Sprintf("Client %s recharge successful.", acc.ID),
				ConversionAmount: gross,
				Credited:         net,
				NewLimit:         acc.Limit,
				Balance:          balance,
				Account:          acc,
			}, nil
		}

		switch {
		case errors.Is(err, ErrNotFound):
			return Result{Outcome: OutcomeNotFound, Message: fmt.Sprintf("Client %s not found.", in.ClientID)}, nil
		case !errors.Is(err, ErrVersionConflict):
			return Result{}, err
		case attempt >= e.attempts:
			return Result{}, fmt.Errorf("recharge client %s after %d attempts: %w", in.ClientID, attempt, err)
		}

		e.logger.Warn("recharge raced with another write, retrying", "client_id", in.ClientID, "attempt", attempt)
		if rec, err = e.repo.Get(ctx, in.ClientID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Result{Outcome: OutcomeNotFound, Message: fmt.Sprintf("Client %s not found.", in.ClientID)}, nil
			}
			return Result{}, err
		}
	}
}

func (e *Engine) notify(ctx context.Context, msg notification.Message) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, msg); err != nil {
		e.logger.Error("notification failed", "kind", msg.Kind, "error", err)
	}
}

var one = decimal.NewFromInt(1)

// validate checks the fee rate and the pre-conversion amount.
func validate(rate, amount decimal.Decimal) (string, bool) {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return msgInvalidRate, false
	}
	if amount.IsNegative() {
		return msgNegativeFund, false
	}
	return "", true
}

// netOf deducts the flat fee: round(gross - rate*gross, 2).
func netOf(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Sub(rate.Mul(gross)).Round(2)
}
