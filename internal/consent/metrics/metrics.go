package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations.
type Metrics struct {
	ConsentsGranted     *prometheus.CounterVec
	ConsentsRevoked     *prometheus.CounterVec
	ConsentsExpired     prometheus.Counter
	ActiveConsentsTotal prometheus.Gauge
	ChecksPassed        *prometheus.CounterVec
	ChecksFailed        *prometheus.CounterVec
	GrantLatency        prometheus.Histogram
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		ConsentsGranted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_consents_granted_total",
			Help: "Total number of consents granted, labeled by jurisdiction",
		}, []string{"jurisdiction"}),
		ConsentsRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_consents_revoked_total",
			Help: "Total number of consents revoked or withdrawn, labeled by jurisdiction",
		}, []string{"jurisdiction"}),
		ConsentsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agora_consents_expired_total",
			Help: "Total number of consents detected as expired on the write path",
		}),
		ActiveConsentsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agora_active_consents_total",
			Help: "Current number of active consents system-wide",
		}),
		ChecksPassed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_consent_checks_passed_total",
			Help: "Total number of consent checks that passed, labeled by purpose",
		}, []string{"purpose"}),
		ChecksFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_consent_checks_failed_total",
			Help: "Total number of consent checks that failed, labeled by purpose",
		}, []string{"purpose"}),
		GrantLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agora_consent_grant_latency_seconds",
			Help:    "Latency of consent grant operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementConsentsGranted(jurisdiction string) {
	m.ConsentsGranted.WithLabelValues(jurisdiction).Inc()
}

func (m *Metrics) IncrementConsentsRevoked(jurisdiction string) {
	m.ConsentsRevoked.WithLabelValues(jurisdiction).Inc()
}

func (m *Metrics) IncrementConsentsExpired() {
	m.ConsentsExpired.Inc()
}

func (m *Metrics) IncrementChecksPassed(purpose string) {
	m.ChecksPassed.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementChecksFailed(purpose string) {
	m.ChecksFailed.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementActiveConsents(count float64) {
	m.ActiveConsentsTotal.Add(count)
}

func (m *Metrics) DecrementActiveConsents(count float64) {
	m.ActiveConsentsTotal.Sub(count)
}

func (m *Metrics) ObserveGrantLatency(durationSeconds float64) {
	m.GrantLatency.Observe(durationSeconds)
}
