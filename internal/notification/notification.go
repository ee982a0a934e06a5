package notification

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// KindAccountCreated confirms a new client account.
	KindAccountCreated = "account_created"
	// KindRecharge confirms a standard card recharge.
	KindRecharge = "recharge"
	// KindRefund confirms a recharge booked as a refund.
	KindRefund = "refund"
	// KindStatement carries the weekly reload statement.
	KindStatement = "statement"
)

// Message describes a notification payload.
type Message struct {
	Kind    string
	To      []string
	Bcc     []string
	Subject string
	Body    string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger instead of delivering them.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"to", strings.Join(message.To, ","),
		"bcc", len(message.Bcc),
		"subject", message.Subject,
		"body", message.Body,
	)
	return nil
}
