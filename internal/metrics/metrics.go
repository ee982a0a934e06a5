package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector owns the service's Prometheus collectors. A nil *Collector is a
// valid no-op.
type Collector struct {
	registry *prometheus.Registry

	actions       *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	credited      prometheus.Counter
	notifications *prometheus.CounterVec
	statements    prometheus.Counter
}

// New registers every collector on a private registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eazycard_actions_total",
			Help: "Actions handled, by action and outcome.",
		}, []string{"action", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eazycard_action_duration_seconds",
			Help:    "Action handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		credited: factory.NewCounter(prometheus.CounterOpts{
			Name: "eazycard_credited_amount_total",
			Help: "Net amount credited to card limits, in the settlement currency.",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eazycard_notifications_total",
			Help: "Notification deliveries, by kind and result.",
		}, []string{"kind", "result"}),
		statements: factory.NewCounter(prometheus.CounterOpts{
			Name: "eazycard_statement_failures_total",
			Help: "Weekly statements that could not be sent.",
		}),
	}
}

// ObserveAction counts one handled action and its latency.
func (c *Collector) ObserveAction(action, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(action, outcome).Inc()
	c.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// AddCredited adds a net credited amount. Negative amounts are ignored.
func (c *Collector) AddCredited(amount decimal.Decimal) {
	if c == nil || amount.IsNegative() {
		return
	}
	c.credited.Add(amount.InexactFloat64())
}

func (c *Collector) ObserveNotification(kind string, err error) {
	if c == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	c.notifications.WithLabelValues(kind, result).Inc()
}

func (c *Collector) StatementFailures(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.statements.Add(float64(n))
}

// Registry exposes the private registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() fiber.Handler {
	if c == nil {
		return func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusNotFound) }
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
