package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/eazycard/eazycard/internal/account"
	"github.com/eazycard/eazycard/internal/currency"
	"github.com/eazycard/eazycard/internal/history"
	"github.com/eazycard/eazycard/internal/metrics"
	"github.com/eazycard/eazycard/internal/statement"
)

const (
	msgUnknownAction   = "Error: The action you want to perform does not exist."
	msgStatementsSent  = "Email history transaction sent successfully"
	msgInvalidEnvelope = "request body must be a JSON object with an action field"
)

// Response is the transport-neutral result of an action.
type Response struct {
	Status  int
	Body    any
	Headers map[string]string
}

func message(status int, msg string) Response {
	return Response{Status: status, Body: fiber.Map{"message": msg}}
}

// Router dispatches action envelopes and top-level events to the services.
type Router struct {
	engine     *account.Engine
	history    *history.Service
	statements *statement.Service
	validate   *validator.Validate
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// NewRouter builds a router. metrics may be nil.
func NewRouter(engine *account.Engine, hist *history.Service, statements *statement.Service, m *metrics.Collector, logger *slog.Logger) *Router {
	return &Router{
		engine:     engine,
		history:    hist,
		statements: statements,
		validate:   validator.New(),
		metrics:    m,
		logger:     logger,
	}
}

// Dispatch decodes the envelope in body and runs its action.
func (r *Router) Dispatch(ctx context.Context, body []byte) Response {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return message(fiber.StatusBadRequest, msgInvalidEnvelope)
	}

	start := time.Now()
	var (
		resp    Response
		outcome string
	)
	switch ev.Action {
	case CreateClient:
		resp, outcome = r.createClient(ctx, ev.Data)
	case CardRecharge:
		resp, outcome = r.cardRecharge(ctx, ev.Data)
	case HistoryReload:
		resp, outcome = r.historyReload(ctx, ev.Data)
	default:
		r.logger.Warn("unknown action", "action", ev.Action)
		return Response{Status: fiber.StatusBadRequest, Body: msgUnknownAction}
	}
	r.metrics.ObserveAction(ev.Action, outcome, time.Since(start))
	return resp
}

// RunEvent handles a top-level event that carries no envelope.
func (r *Router) RunEvent(ctx context.Context, name string) Response {
	if name != HistoryTransaction {
		r.logger.Warn("unknown event", "action", name)
		return Response{Status: fiber.StatusBadRequest, Body: msgUnknownAction}
	}

	start := time.Now()
	report, err := r.statements.SendWeekly(ctx)
	if err != nil {
		r.metrics.ObserveAction(name, "error", time.Since(start))
		return r.failure(name, err)
	}
	outcome := "ok"
	if len(report.Failures) > 0 {
		outcome = "partial"
	}
	r.metrics.ObserveAction(name, outcome, time.Since(start))
	return Response{
		Status: fiber.StatusOK,
		Body:   msgStatementsSent,
		Headers: map[string]string{
			"X-Statements-Sent":   strconv.Itoa(report.Sent),
			"X-Statements-Failed": strconv.Itoa(len(report.Failures)),
		},
	}
}

func (r *Router) createClient(ctx context.Context, data json.RawMessage) (Response, string) {
	var p createClientPayload
	if resp, ok := r.decode(data, &p); !ok {
		return resp, "invalid"
	}

	res, err := r.engine.Create(ctx, account.CreateInput{
		ClientID:      string(p.ClientID),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Country:       p.Country,
		Email:         p.Email,
		Phone:         p.Phone,
		Limit:         *p.Limit,
		Rate:          *p.Rate,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
	})
	if err != nil {
		return r.failure(CreateClient, err), "error"
	}

	switch res.Outcome {
	case account.OutcomeCreated:
		r.metrics.AddCredited(res.Credited)
		return amounts(fiber.StatusCreated, res), res.Outcome.String()
	default:
		return message(fiber.StatusBadRequest, res.Message), res.Outcome.String()
	}
}

func (r *Router) cardRecharge(ctx context.Context, data json.RawMessage) (Response, string) {
	var p cardRechargePayload
	if resp, ok := r.decode(data, &p); !ok {
		return resp, "invalid"
	}

	res, err := r.engine.Recharge(ctx, account.RechargeInput{
		ClientID:      string(p.ClientID),
		Amount:        *p.Limit,
		Rate:          *p.Rate,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
	})
	if err != nil {
		return r.failure(CardRecharge, err), "error"
	}

	switch res.Outcome {
	case account.OutcomeRecharged:
		r.metrics.AddCredited(res.Credited)
		return amounts(fiber.StatusOK, res), res.Outcome.String()
	case account.OutcomeNotFound:
		return message(fiber.StatusNotFound, res.Message), res.Outcome.String()
	default:
		return message(fiber.StatusBadRequest, res.Message), res.Outcome.String()
	}
}

func (r *Router) historyReload(ctx context.Context, data json.RawMessage) (Response, string) {
	var p historyReloadPayload
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &p); err != nil {
			return message(fiber.StatusBadRequest, "invalid data: "+err.Error()), "invalid"
		}
	}

	id := strings.TrimSpace(string(p.ClientID))
	if id == "" {
		report, err := r.history.All(ctx)
		if err != nil {
			return r.failure(HistoryReload, err), "error"
		}
		resp := Response{Status: fiber.StatusOK, Body: report.Entries}
		if len(report.Corrupt) > 0 {
			resp.Headers = map[string]string{"X-Corrupt-Records": strconv.Itoa(len(report.Corrupt))}
		}
		return resp, "ok"
	}

	entries, err := r.history.ForClient(ctx, id)
	if errors.Is(err, account.ErrNotFound) {
		return Response{Status: fiber.StatusOK, Body: fmt.Sprintf("Info: Customer %s was not found.", id)}, "not_found"
	}
	if err != nil {
		return r.failure(HistoryReload, err), "error"
	}
	return Response{Status: fiber.StatusOK, Body: entries}, "ok"
}

func (r *Router) decode(data json.RawMessage, dst any) (Response, bool) {
	if len(data) == 0 || string(data) == "null" {
		return message(fiber.StatusBadRequest, "missing data"), false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return message(fiber.StatusBadRequest, "invalid data: "+err.Error()), false
	}
	if err := r.validate.Struct(dst); err != nil {
		return message(fiber.StatusBadRequest, validationMessage(err)), false
	}
	return Response{}, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// failure maps infrastructure errors onto statuses and logs them.
func (r *Router) failure(action string, err error) Response {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, currency.ErrRateUnavailable), errors.Is(err, currency.ErrSourceUnreachable):
		status = fiber.StatusBadGateway
	case errors.Is(err, account.ErrVersionConflict):
		status = fiber.StatusConflict
	}
	r.logger.Error("action failed", "action", action, "status", status, "error", err)
	return message(status, err.Error())
}

func amounts(status int, res account.Result) Response {
	return Response{Status: status, Body: fiber.Map{
		"message":           res.Message,
		"conversion_amount": money(res.ConversionAmount),
		"new_limit":         money(res.NewLimit),
	}}
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
