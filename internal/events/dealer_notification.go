package events

import "time"

const (
	EventTypeDealerNotificationRequested = "DealerNotificationRequested"
	dealerNotificationRequestedSchema    = "ecommerce.checkout.dealer_notification_requested.v1"
)

type DealerItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type DealerNotificationRequestedPayload struct {
	OrderID         string       `json:"orderId"`
	DealerID        string       `json:"dealerId"`
	UserID          string       `json:"userId"`
	CustomerName    string       `json:"customerName"`
	CustomerEmail   string       `json:"customerEmail"`
	CustomerPhone   string       `json:"customerPhone,omitempty"`
	ShippingAddress string       `json:"shippingAddress"`
	ShippingPincode string       `json:"shippingPincode"`
	Items           []DealerItem `json:"items"`
	Timestamp       time.Time    `json:"timestamp"`
}

type DealerNotificationRequestedEvent = EventEnvelope[DealerNotificationRequestedPayload]
