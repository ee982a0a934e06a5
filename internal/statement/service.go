package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eazycard/eazycard/internal/account"
	"github.com/eazycard/eazycard/internal/notification"
)

// Failure is one account the weekly run could not serve.
type Failure struct {
	ClientID string
	Err      error
}

// Report summarizes a weekly statement run.
type Report struct {
	Sent     int
	Failures []Failure
}

// Err joins every per-account failure, or returns nil.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("client %s: %w", f.ClientID, f.Err)
	}
	return errors.Join(errs...)
}

// FailureObserver counts failed statements.
type FailureObserver interface {
	StatementFailures(n int)
}

// Service sends the weekly statements.
type Service struct {
	repo     account.Repository
	notifier notification.Notifier
	admins   []string
	currency string
	observer FailureObserver
	logger   *slog.Logger
}

// NewService builds the statement service. The notifier must deliver
// synchronously so send failures can be reported per account.
func NewService(repo account.Repository, notifier notification.Notifier, admins []string, currency string, observer FailureObserver, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		admins:   append([]string(nil), admins...),
		currency: currency,
		observer: observer,
		logger:   logger,
	}
}

// SendWeekly mails every client their balance and reload table. One bad
// record or failed send is reported and the run carries on. The error return
// is reserved for failing to list the clients at all.
func (s *Service) SendWeekly(ctx context.Context) (Report, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list clients: %w", err)
	}

	var report Report
	accounts, corrupt := account.DecodeAll(records)
	for _, c := range corrupt {
		report.Failures = append(report.Failures, Failure{ClientID: c.ClientID, Err: c})
	}

	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, Failure{ClientID: acc.ID, Err: err})
			continue
		}
		msg := notification.Message{
			Kind:    notification.KindStatement,
			To:      []string{acc.Email},
			Bcc:     s.admins,
			Subject: Subject,
			Body:    Compose(acc, s.currency),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			report.Failures = append(report.Failures, Failure{ClientID: acc.ID, Err: err})
			continue
		}
		report.Sent++
	}

	for _, f := range report.Failures {
		s.logger.Error("weekly statement failed", "client_id", f.ClientID, "error", f.Err)
	}
	if s.observer != nil && len(report.Failures) > 0 {
		s.observer.StatementFailures(len(report.Failures))
	}
	s.logger.Info("weekly statements sent", "sent", report.Sent, "failed", len(report.Failures))
	return report, nil
}
