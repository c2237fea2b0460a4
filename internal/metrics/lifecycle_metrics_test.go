package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewLifecycleMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewLifecycleMetricsWithRegisterer(reg)
	second := NewLifecycleMetricsWithRegisterer(reg)

	first.RecordOrderPlaced()
	second.RecordOrderPlaced()

	if got := testutil.ToFloat64(first.ordersPlaced); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRecordAdjustmentAndCompensation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetricsWithRegisterer(reg)

	m.RecordAdjustment(AdjustmentOK)
	m.RecordAdjustment(AdjustmentOK)
	m.RecordAdjustment(AdjustmentInsufficient)
	m.RecordCompensation("cancel", true)
	m.RecordCompensation("cancel", false)

	if got := testutil.ToFloat64(m.adjustments.WithLabelValues(AdjustmentOK)); got != 2 {
		t.Fatalf("ok adjustments = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.adjustments.WithLabelValues(AdjustmentInsufficient)); got != 1 {
		t.Fatalf("insufficient adjustments = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.compensations.WithLabelValues("cancel", "failed")); got != 1 {
		t.Fatalf("failed compensations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.partialFailures); got != 1 {
		t.Fatalf("partial failures = %v, want 1", got)
	}
}

func TestInFlightGauge(t *testing.T) {
	m := NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	m.OperationStarted()
	m.OperationStarted()
	m.OperationFinished()

	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
}

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetricsWithRegisterer(reg)

	m.ObserveOperation("cancel", 150*time.Millisecond)
	m.ObserveStep("restock", 5*time.Millisecond)

	observer, err := m.operationDuration.GetMetricWithLabelValues("cancel")
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	metric := &dto.Metric{}
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Fatalf("expected 1 sample, got %d", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() < 0.1 {
		t.Fatalf("unexpected sample sum %v", metric.Histogram.GetSampleSum())
	}
}

func TestStatusTransitionsAndCache(t *testing.T) {
	m := NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordStatusTransition("shipped")
	m.RecordStatusTransition("shipped")
	m.RecordStatsCache(CacheHit)
	m.RecordStatsCache(CacheMiss)
	m.RecordVersionConflict()
	m.RecordOutboxEvent()
	m.RecordOrderCancelled()

	if got := testutil.ToFloat64(m.statusTransitions.WithLabelValues("shipped")); got != 2 {
		t.Fatalf("shipped transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.statsCache.WithLabelValues(CacheHit)); got != 1 {
		t.Fatalf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.versionConflicts); got != 1 {
		t.Fatalf("version conflicts = %v, want 1", got)
	}
}
