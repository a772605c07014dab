package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics tracks session bootstrap attempts.
type AuthMetrics struct {
	Attempts *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "authentications_total",
			Help:      "Total number of session bootstrap attempts, by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "authentication_duration_seconds",
			Help:      "Duration of session bootstrap attempts in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.Attempts, m.Duration)
	return m
}

// ObserveAuthentication records one attempt; outcome is "success" or a failure kind.
func (m *AuthMetrics) ObserveAuthentication(outcome string, elapsed time.Duration) {
	m.Attempts.WithLabelValues(outcome).Inc()
	m.Duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
