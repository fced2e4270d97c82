package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

func TestOperationMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOperationMetrics(reg)

	start := time.Now().Add(-150 * time.Millisecond)
	m.Observe(OpCheckout, start, "")
	m.Observe(OpCheckout, start, "")
	m.Observe(OpCheckout, start, "DUPLICATE_ORDER")

	if got := testutil.ToFloat64(m.success.WithLabelValues(OpCheckout)); got != 2 {
		t.Fatalf("expected success=2, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues(OpCheckout, "DUPLICATE_ORDER")); got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestObserveResultUsesErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOperationMetrics(reg)

	m.ObserveResult(OpPaymentSuccess, time.Now(), nil)
	m.ObserveResult(OpPaymentSuccess, time.Now(), fmt.Errorf("wrapped: %w", pkgerrors.New(pkgerrors.CodeProvider, "declined")))
	m.ObserveResult(OpPaymentSuccess, time.Now(), errors.New("plain"))

	if got := testutil.ToFloat64(m.success.WithLabelValues(OpPaymentSuccess)); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues(OpPaymentSuccess, string(pkgerrors.CodeProvider))); got != 1 {
		t.Fatalf("expected provider failure=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues(OpPaymentSuccess, string(pkgerrors.CodeInternal))); got != 1 {
		t.Fatalf("expected internal failure=1, got %f", got)
	}
}

func TestOperationMetricsNilSafe(t *testing.T) {
	var m *OperationMetrics
	m.Observe(OpSiteGenerate, time.Now(), "")

	empty := NewOperationMetrics(nil)
	empty.Observe(OpSiteGenerate, time.Now(), "RENDER_ERROR")
}

func TestNormalizeLabel(t *testing.T) {
	if normalizeLabel("") != "unknown" {
		t.Fatalf("expected unknown for empty label")
	}
	if normalizeLabel(OpPaymentCancel) != OpPaymentCancel {
		t.Fatalf("expected label passthrough")
	}
}
