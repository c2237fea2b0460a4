package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты корректировки склада.
const (
	AdjustmentOK           = "ok"
	AdjustmentNotFound     = "not_found"
	AdjustmentInsufficient = "insufficient"
	AdjustmentError        = "error"
)

// Результаты обращения к кэшу статистики.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// LifecycleMetrics содержит метрики операций над заказами и складом.
type LifecycleMetrics struct {
	// Счётчики операций
	ordersPlaced      prometheus.Counter
	ordersCancelled   prometheus.Counter
	statusTransitions *prometheus.CounterVec
	adjustments       *prometheus.CounterVec
	compensations     *prometheus.CounterVec
	partialFailures   prometheus.Counter
	versionConflicts  prometheus.Counter

	// Гистограммы времени выполнения
	operationDuration *prometheus.HistogramVec
	stepDuration      *prometheus.HistogramVec

	outboxEvents prometheus.Counter
	statsCache   *prometheus.CounterVec

	// Gauge для операций в процессе выполнения
	inFlight prometheus.Gauge
}

// NewLifecycleMetrics создаёт метрики в DefaultRegisterer.
func NewLifecycleMetrics() *LifecycleMetrics {
	return NewLifecycleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewLifecycleMetricsWithRegisterer создаёт метрики в заданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewLifecycleMetricsWithRegisterer(registerer prometheus.Registerer) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LifecycleMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookstore_orders_placed_total",
			Help: "Total number of orders placed",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookstore_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookstore_order_status_transitions_total",
			Help: "Total number of order status transitions by target status",
		}, []string{"status"}),
		adjustments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookstore_inventory_adjustments_total",
			Help: "Total number of inventory adjustments by result",
		}, []string{"result"}),
		compensations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookstore_saga_compensations_total",
			Help: "Total number of saga compensations by operation and result",
		}, []string{"operation", "result"}),
		partialFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookstore_inventory_partial_failures_total",
			Help: "Total number of operations that left orders and stock out of sync",
		}),
		versionConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookstore_order_version_conflicts_total",
			Help: "Total number of optimistic locking conflicts on orders",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "bookstore_operation_duration_seconds",
			Help:    "Duration of lifecycle operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "bookstore_saga_step_duration_seconds",
			Help:    "Duration of individual saga steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookstore_outbox_events_enqueued_total",
			Help: "Total number of domain events written to the outbox",
		}),
		statsCache: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookstore_stats_cache_requests_total",
			Help: "Admin stats cache lookups by result",
		}, []string{"result"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "bookstore_operations_in_flight",
			Help: "Number of lifecycle operations currently executing",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик оформленных заказов.
func (m *LifecycleMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *LifecycleMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordStatusTransition учитывает переход в статус status.
func (m *LifecycleMetrics) RecordStatusTransition(status string) {
	m.statusTransitions.WithLabelValues(status).Inc()
}

// RecordAdjustment учитывает корректировку склада с результатом result.
func (m *LifecycleMetrics) RecordAdjustment(result string) {
	m.adjustments.WithLabelValues(result).Inc()
}

// RecordCompensation учитывает откат операции; ok=false означает неполный откат.
func (m *LifecycleMetrics) RecordCompensation(operation string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
		m.partialFailures.Inc()
	}
	m.compensations.WithLabelValues(operation, result).Inc()
}

// RecordVersionConflict увеличивает счётчик конфликтов версий.
func (m *LifecycleMetrics) RecordVersionConflict() {
	m.versionConflicts.Inc()
}

// ObserveOperation записывает длительность операции.
func (m *LifecycleMetrics) ObserveOperation(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveStep записывает длительность шага саги.
func (m *LifecycleMetrics) ObserveStep(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *LifecycleMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordStatsCache учитывает обращение к кэшу статистики.
func (m *LifecycleMetrics) RecordStatsCache(result string) {
	m.statsCache.WithLabelValues(result).Inc()
}

// OperationStarted увеличивает число выполняющихся операций.
func (m *LifecycleMetrics) OperationStarted() {
	m.inFlight.Inc()
}

// OperationFinished уменьшает число выполняющихся операций.
func (m *LifecycleMetrics) OperationFinished() {
	m.inFlight.Dec()
}
