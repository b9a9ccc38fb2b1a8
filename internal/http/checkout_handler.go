package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/jsonnum"
)

type checkoutRequest struct {
	UserID          string        `json:"user_id"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	ShippingAddress string        `json:"shipping_address"`
	ShippingPincode string        `json:"shipping_pincode"`
	OrderStatus     string        `json:"order_status"`
	TaxAmount       jsonnum.Float `json:"tax_amount"`
	ShippingCost    jsonnum.Float `json:"shipping_cost"`
	DiscountAmount  jsonnum.Float `json:"discount_amount"`
	PaymentMethod   string        `json:"payment_method"`
	PaymentStatus   string        `json:"payment_status"`
	TransactionID   string        `json:"transaction_id"`
}

type checkoutResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	OrderID  string   `json:"order_id,omitempty"`
	OrderIDs []string `json:"order_ids,omitempty"`
	Items    int      `json:"items,omitempty"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, checkoutResponse{Message: "Invalid request body"})
		return
	}

	cid := GetCorrelationID(r.Context())
	res, err := h.checkout.Checkout(r.Context(), checkout.Request{
		UserID:          strings.TrimSpace(body.UserID),
		CustomerName:    body.CustomerName,
		CustomerEmail:   body.CustomerEmail,
		CustomerPhone:   body.CustomerPhone,
		ShippingAddress: body.ShippingAddress,
		ShippingPincode: body.ShippingPincode,
		OrderStatus:     body.OrderStatus,
		TaxAmount:       float64(body.TaxAmount),
		ShippingCost:    float64(body.ShippingCost),
		DiscountAmount:  float64(body.DiscountAmount),
		PaymentMethod:   body.PaymentMethod,
		PaymentStatus:   body.PaymentStatus,
		TransactionID:   body.TransactionID,
		CorrelationID:   cid,
	})
	if err != nil {
		status, msg := checkoutError(err)
		writeJSON(w, status, checkoutResponse{Message: msg})
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Success:  true,
		OrderID:  res.OrderID(),
		OrderIDs: res.OrderIDs,
		Items:    len(res.Items),
	})
	h.logger.Printf("checkout state=responded user=%s correlation=%s orders=%d", body.UserID, cid, len(res.OrderIDs))

	// The outbox records are committed; the relay delivers them on its own context.
	if h.notifier != nil {
		h.notifier.Wake()
	}
}

// checkoutError maps the checkout error taxonomy onto a status and a message
// safe to show the client.
func checkoutError(err error) (int, string) {
	var notFound *checkout.ProductNotFoundError
	var short *checkout.InsufficientStockError
	var noDealer *checkout.NoDealerError

	switch {
	case errors.Is(err, checkout.ErrMissingUser):
		return http.StatusBadRequest, "User ID is required"
	case errors.Is(err, checkout.ErrNegativeAmount):
		return http.StatusBadRequest, "Tax, shipping and discount must not be negative"
	case errors.Is(err, checkout.ErrInvalidStatus):
		return http.StatusBadRequest, "Unknown order or payment status"
	case errors.Is(err, checkout.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, "Cart is empty"
	case errors.Is(err, checkout.ErrCartTooLarge):
		return http.StatusBadRequest, fmt.Sprintf("Cart has too many items (limit %d)", checkout.MaxLines)
	case errors.Is(err, checkout.ErrCartChanged):
		return http.StatusConflict, "Cart changed during checkout, please retry"
	case errors.As(err, &notFound):
		return http.StatusBadRequest, fmt.Sprintf("Product %s not found", notFound.ProductID)
	case errors.As(err, &short):
		return http.StatusBadRequest, fmt.Sprintf("Insufficient stock for product %s: requested %d, available %d", short.ProductID, short.Requested, short.Available)
	case errors.As(err, &noDealer):
		return http.StatusBadRequest, fmt.Sprintf("No dealer associated with product %s", noDealer.ProductID)
	case errors.Is(err, checkout.ErrOrderPersistFailed):
		return http.StatusInternalServerError, "Failed to create orders"
	default:
		return http.StatusInternalServerError, "Checkout failed"
	}
}
