// Package metrics holds the Prometheus collectors shared by the API and the
// worker. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	riskCache       *prometheus.CounterVec
	loans           *prometheus.CounterVec
	applicants      prometheus.Counter
	depositors      prometheus.Counter
	tickDuration    prometheus.Histogram
	tickFailures    prometheus.Counter
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests; production wiring uses the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tycoon_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tycoon_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		riskCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tycoon_risk_cache_lookups_total",
			Help: "Default probability cache lookups by result.",
		}, []string{"result"}),
		loans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tycoon_loan_events_total",
			Help: "Loan lifecycle events: originated, paid_off, defaulted, missed_payment.",
		}, []string{"event"}),
		applicants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tycoon_applicants_generated_total",
			Help: "Loan applicants generated by ticks.",
		}),
		depositors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tycoon_depositors_generated_total",
			Help: "Depositors generated by ticks.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tycoon_tick_duration_seconds",
			Help:    "Wall time of a full economy tick.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tycoon_tick_failures_total",
			Help: "Per-bank tick transactions that failed.",
		}),
	}
	reg.MustRegister(
		m.requests, m.requestDuration, m.riskCache, m.loans,
		m.applicants, m.depositors, m.tickDuration, m.tickFailures,
	)
	return m
}

// Default registers on a fresh registry that also carries the Go runtime and
// process collectors.
func Default() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (m *Metrics) RiskCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.riskCache.WithLabelValues("hit").Inc()
		return
	}
	m.riskCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) LoanEvent(event string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.loans.WithLabelValues(event).Add(float64(n))
}

func (m *Metrics) Generated(applicants, depositors int) {
	if m == nil {
		return
	}
	m.applicants.Add(float64(applicants))
	m.depositors.Add(float64(depositors))
}

func (m *Metrics) ObserveTick(took time.Duration, failures int) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(took.Seconds())
	m.tickFailures.Add(float64(failures))
}
