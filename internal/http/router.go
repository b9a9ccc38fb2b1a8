package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
)

func NewRouter(h *Handler, m *metrics.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(Instrument(m))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Post("/checkout", h.Checkout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/orders/{orderId}", h.GetOrder)
		r.Get("/users/{userId}/orders", h.ListOrdersByUser)
		r.Get("/inventory/{productId}", h.GetAvailability)
		r.Post("/inventory/adjust", h.AdjustAvailability)
	})

	return r
}
