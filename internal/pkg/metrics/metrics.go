package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics, or one built with a
// nil registerer, silently drops every observation.
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ordersCreated     prometheus.Counter
	statusTransitions *prometheus.CounterVec
	stockAdjustments  *prometheus.CounterVec
	lockConflicts     *prometheus.CounterVec
}

// New registers the service metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders placed through checkout.",
	})
	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status changes by target status.",
	}, []string{"status"})
	stockAdjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Stock adjustments by type.",
	}, []string{"type"})
	lockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimistic_lock_conflicts_total",
		Help: "Version conflicts detected on guarded writes.",
	}, []string{"entity"})
	reg.MustRegister(httpRequests, httpDuration, ordersCreated, statusTransitions, stockAdjustments, lockConflicts)
	return &Metrics{
		httpRequests:      httpRequests,
		httpDuration:      httpDuration,
		ordersCreated:     ordersCreated,
		statusTransitions: statusTransitions,
		stockAdjustments:  stockAdjustments,
		lockConflicts:     lockConflicts,
	}
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) IncStatusTransition(status string) {
	if m == nil || m.statusTransitions == nil {
		return
	}
	m.statusTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) IncStockAdjustment(kind string) {
	if m == nil || m.stockAdjustments == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) IncLockConflict(entity string) {
	if m == nil || m.lockConflicts == nil {
		return
	}
	m.lockConflicts.WithLabelValues(normalizeLabel(entity)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
