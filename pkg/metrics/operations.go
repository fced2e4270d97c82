package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

const (
	OpCheckout       = "checkout"
	OpPaymentSuccess = "payment_success"
	OpPaymentCancel  = "payment_cancel"
	OpSiteGenerate   = "site_generate"
)

// OperationMetrics records duration and outcome for storefront operations.
type OperationMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewOperationMetrics registers the operation metrics on the provided registerer.
func NewOperationMetrics(reg prometheus.Registerer) *OperationMetrics {
	if reg == nil {
		return &OperationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mycms",
		Name:      "operation_duration_seconds",
		Help:      "Duration of storefront operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mycms",
		Name:      "operation_success_total",
		Help:      "Successful storefront operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mycms",
		Name:      "operation_failure_total",
		Help:      "Failed storefront operations by error code.",
	}, []string{"operation", "code"})
	reg.MustRegister(duration, success, failure)
	return &OperationMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// Observe records the outcome of one operation started at start.
// code is empty on success.
func (m *OperationMetrics) Observe(op string, start time.Time, code string) {
	if m == nil || m.duration == nil {
		return
	}
	op = normalizeLabel(op)
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if code == "" {
		m.success.WithLabelValues(op).Inc()
		return
	}
	m.failure.WithLabelValues(op, code).Inc()
}

// ObserveResult records an outcome, labelling failures by their error code.
func (m *OperationMetrics) ObserveResult(op string, start time.Time, err error) {
	if err == nil {
		m.Observe(op, start, "")
		return
	}
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	m.Observe(op, start, string(code))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
