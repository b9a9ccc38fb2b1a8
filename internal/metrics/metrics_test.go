package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveCheckout(t *testing.T) {
	r := NewRegistry()

	r.ObserveCheckout("success", 20*time.Millisecond, 3)
	r.ObserveCheckout("insufficient_stock", time.Millisecond, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.CheckoutRequests.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CheckoutRequests.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.OrdersCreated))
}

func TestRegistry_ObserveDispatchAndParked(t *testing.T) {
	r := NewRegistry()

	r.ObserveDispatch("order.confirmation", "sent")
	r.ObserveDispatch("order.confirmation", "sent")
	r.ObserveDispatch("order.dealer_notifications", "retry")
	r.ObserveParked()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.NotificationDispatch.WithLabelValues("order.confirmation", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.NotificationDispatch.WithLabelValues("order.dealer_notifications", "retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.OutboxParked))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveCheckout("success", time.Second, 1)
		r.ObserveDispatch("k", "sent")
		r.ObserveParked()
		r.ObserveHTTP("/checkout", 200, time.Second)
	})
}

func TestRegistry_HandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveHTTP("/checkout", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{route="/checkout",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "checkout_duration_seconds")
}
