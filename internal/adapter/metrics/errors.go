package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/lokeshkumarbalu/jira-assistant/internal/platform/errors"
)

// ErrorMetrics counts rendered API errors by type.
type ErrorMetrics struct {
	Errors *prometheus.CounterVec
}

func NewErrorMetrics(reg prometheus.Registerer) *ErrorMetrics {
	m := &ErrorMetrics{
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of API errors, by error type.",
		}, []string{"type"}),
	}

	reg.MustRegister(m.Errors)
	return m
}

// Record matches apperrors.Recorder.
func (m *ErrorMetrics) Record(t apperrors.ErrorType) {
	m.Errors.WithLabelValues(string(t)).Inc()
}
