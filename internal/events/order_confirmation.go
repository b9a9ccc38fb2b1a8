package events

import "time"

const (
	EventTypeOrderConfirmationRequested = "OrderConfirmationRequested"
	orderConfirmationRequestedSchema    = "ecommerce.checkout.order_confirmation_requested.v1"
)

type ConfirmationItem struct {
	OrderID   string  `json:"orderId"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

type OrderConfirmationRequestedPayload struct {
	OrderID         string             `json:"orderId"`
	OrderIDs        []string           `json:"orderIds"`
	UserID          string             `json:"userId"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	CustomerPhone   string             `json:"customerPhone,omitempty"`
	ShippingAddress string             `json:"shippingAddress"`
	ShippingPincode string             `json:"shippingPincode"`
	Items           []ConfirmationItem `json:"items"`
	Subtotal        float64            `json:"subtotal"`
	Tax             float64            `json:"tax"`
	Shipping        float64            `json:"shipping"`
	Discount        float64            `json:"discount"`
	Total           float64            `json:"total"`
	PaymentMethod   string             `json:"paymentMethod"`
	Timestamp       time.Time          `json:"timestamp"`
}

type OrderConfirmationRequestedEvent = EventEnvelope[OrderConfirmationRequestedPayload]
