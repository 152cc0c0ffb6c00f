package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors. A nil *Metrics is valid and
// records nothing, so components can be built without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	charges       *prometheus.CounterVec
	payments      *prometheus.CounterVec
	purchases     *prometheus.CounterVec
	compensations *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	downstream    *prometheus.HistogramVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "charge_authorizations_total",
			Help:      "Credit card charge authorizations by outcome.",
		}, []string{"outcome"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "credit_payments_total",
			Help:      "Credit card payments by outcome.",
		}, []string{"outcome"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "debit_purchases_total",
			Help:      "Debit card purchases by outcome.",
		}, []string{"outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "compensations_total",
			Help:      "Account credit-backs issued to undo debits, by result.",
		}, []string{"result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cards",
			Name:      "circuit_breaker_state",
			Help:      "Downstream breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"service"}),
		downstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cards",
			Name:      "downstream_request_duration_seconds",
			Help:      "Latency of calls to downstream services.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation", "result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cards",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		m.charges, m.payments, m.purchases, m.compensations,
		m.breakerState, m.downstream, m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ChargeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.charges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PaymentOutcome(outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PurchaseOutcome(outcome string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Compensation(result string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(result).Inc()
}

func (m *Metrics) BreakerState(service string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(service).Set(state)
}

func (m *Metrics) ObserveDownstream(service, operation, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.downstream.WithLabelValues(service, operation, result).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}
