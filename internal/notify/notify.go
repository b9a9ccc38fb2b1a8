// Package notify carries order confirmations and dealer notifications from the
// outbox to whatever delivers them.
package notify

import (
	"context"
)

const (
	KindOrderConfirmation   = "order.confirmation"
	KindDealerNotifications = "order.dealer_notifications"
)

type Item struct {
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	DealerID  string  `json:"dealer_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type Customer struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	ShippingAddress string `json:"shipping_address"`
	ShippingPincode string `json:"shipping_pincode"`
}

// Confirmation is the summary mailed to the customer.
type Confirmation struct {
	OrderID       string   `json:"order_id"`
	OrderIDs      []string `json:"order_ids"`
	Customer      Customer `json:"customer"`
	Items         []Item   `json:"items"`
	Subtotal      float64  `json:"subtotal"`
	Tax           float64  `json:"tax"`
	Shipping      float64  `json:"shipping"`
	Discount      float64  `json:"discount"`
	Total         float64  `json:"total"`
	PaymentMethod string   `json:"payment_method"`
}

// OrderData is what a dealer needs to fulfil the order.
type OrderData struct {
	Customer Customer `json:"customer"`
	Items    []Item   `json:"items"`
}

// DealerRequest is the outbox payload for KindDealerNotifications.
type DealerRequest struct {
	OrderID  string    `json:"order_id"`
	DealerID string    `json:"dealer_id"`
	Data     OrderData `json:"data"`
}

// Dispatcher is the contract of the external notification senders.
type Dispatcher interface {
	SendOrderConfirmation(ctx context.Context, c Confirmation) (bool, error)
	CreateOrderNotifications(ctx context.Context, data OrderData, orderID, dealerID string) error
}

type deliveryKey struct{}

// Delivery identifies the outbox record being dispatched.
type Delivery struct {
	EventID       string
	CorrelationID string
}

func WithDelivery(ctx context.Context, d Delivery) context.Context {
	return context.WithValue(ctx, deliveryKey{}, d)
}

func DeliveryFrom(ctx context.Context) Delivery {
	d, _ := ctx.Value(deliveryKey{}).(Delivery)
	return d
}
