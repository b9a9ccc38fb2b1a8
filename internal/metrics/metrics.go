package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's collectors on a private prometheus registry.
// Observation methods are safe to call on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	CheckoutRequests *prometheus.CounterVec
	CheckoutLatency  prometheus.Histogram
	OrdersCreated    prometheus.Counter

	NotificationDispatch *prometheus.CounterVec
	OutboxParked         prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	checkoutRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_requests_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"result"})
	checkoutLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Time spent in the synchronous checkout pass.",
		Buckets: prometheus.DefBuckets,
	})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Order rows written by successful checkouts.",
	})
	dispatch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatch_total",
		Help: "Outbox dispatch attempts by kind and outcome.",
	}, []string{"kind", "result"})
	parked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_parked_total",
		Help: "Outbox records given up on after the maximum number of attempts.",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"route", "status"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"route"})

	r.MustRegister(checkoutRequests, checkoutLatency, ordersCreated, dispatch, parked, httpRequests, httpLatency)
	return &Registry{
		reg:                  r,
		CheckoutRequests:     checkoutRequests,
		CheckoutLatency:      checkoutLatency,
		OrdersCreated:        ordersCreated,
		NotificationDispatch: dispatch,
		OutboxParked:         parked,
		HTTPRequests:         httpRequests,
		HTTPLatency:          httpLatency,
	}
}

func (r *Registry) ObserveCheckout(result string, elapsed time.Duration, orders int) {
	if r == nil {
		return
	}
	r.CheckoutRequests.WithLabelValues(result).Inc()
	r.CheckoutLatency.Observe(elapsed.Seconds())
	if orders > 0 {
		r.OrdersCreated.Add(float64(orders))
	}
}

func (r *Registry) ObserveDispatch(kind, result string) {
	if r == nil {
		return
	}
	r.NotificationDispatch.WithLabelValues(kind, result).Inc()
}

func (r *Registry) ObserveParked() {
	if r == nil {
		return
	}
	r.OutboxParked.Inc()
}

func (r *Registry) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	r.HTTPLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
