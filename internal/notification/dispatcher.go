package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Observer is told about every delivery attempt made by a Dispatcher.
type Observer interface {
	ObserveNotification(kind string, err error)
}

// Dispatcher sends through the wrapped notifier in the background. Send never
// blocks on delivery. Delivery failures are logged and counted, never returned.
type Dispatcher struct {
	next     Notifier
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher wraps next. Each delivery gets its own timeout; observer may be nil.
func NewDispatcher(next Notifier, timeout time.Duration, logger *slog.Logger, observer Observer) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{next: next, timeout: timeout, logger: logger, observer: observer}
}

// Send schedules delivery and returns immediately. The caller's context only
// contributes its values; cancellation of the request does not abort delivery.
func (d *Dispatcher) Send(ctx context.Context, message Message) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("notification dropped after shutdown", "kind", message.Kind)
		return nil
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		err := d.next.Send(sendCtx, message)
		if d.observer != nil {
			d.observer.ObserveNotification(message.Kind, err)
		}
		if err != nil {
			d.logger.Error("notification failed", "kind", message.Kind, "subject", message.Subject, "error", err)
			return
		}
		d.logger.Debug("notification delivered", "kind", message.Kind)
	}()
	return nil
}

// Close stops accepting messages and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
