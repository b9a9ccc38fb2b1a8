package notify

import (
	"context"
	"time"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/events"
)

type EventPublisher interface {
	PublishOrderConfirmationRequested(ctx context.Context, meta events.EventMeta, payload events.OrderConfirmationRequestedPayload) error
	PublishDealerNotificationRequested(ctx context.Context, meta events.EventMeta, payload events.DealerNotificationRequestedPayload) error
}

// EventDispatcher hands notifications to downstream senders as events.
type EventDispatcher struct {
	pub EventPublisher
	now func() time.Time
}

func NewEventDispatcher(pub EventPublisher) *EventDispatcher {
	return &EventDispatcher{pub: pub, now: time.Now}
}

// SendOrderConfirmation reports false without error when there is no address
// to mail.
func (d *EventDispatcher) SendOrderConfirmation(ctx context.Context, c Confirmation) (bool, error) {
	if c.Customer.Email == "" {
		return false, nil
	}

	payload := events.OrderConfirmationRequestedPayload{
		OrderID:         c.OrderID,
		OrderIDs:        c.OrderIDs,
		UserID:          c.Customer.UserID,
		CustomerName:    c.Customer.Name,
		CustomerEmail:   c.Customer.Email,
		CustomerPhone:   c.Customer.Phone,
		ShippingAddress: c.Customer.ShippingAddress,
		ShippingPincode: c.Customer.ShippingPincode,
		Subtotal:        c.Subtotal,
		Tax:             c.Tax,
		Shipping:        c.Shipping,
		Discount:        c.Discount,
		Total:           c.Total,
		PaymentMethod:   c.PaymentMethod,
		Timestamp:       d.now().UTC(),
	}
	for _, it := range c.Items {
		payload.Items = append(payload.Items, events.ConfirmationItem{
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}

	if err := d.pub.PublishOrderConfirmationRequested(ctx, meta(ctx, c.Customer.UserID, c.OrderID), payload); err != nil {
		return false, err
	}
	return true, nil
}

func (d *EventDispatcher) CreateOrderNotifications(ctx context.Context, data OrderData, orderID, dealerID string) error {
	payload := events.DealerNotificationRequestedPayload{
		OrderID:         orderID,
		DealerID:        dealerID,
		UserID:          data.Customer.UserID,
		CustomerName:    data.Customer.Name,
		CustomerEmail:   data.Customer.Email,
		CustomerPhone:   data.Customer.Phone,
		ShippingAddress: data.Customer.ShippingAddress,
		ShippingPincode: data.Customer.ShippingPincode,
		Timestamp:       d.now().UTC(),
	}
	for _, it := range data.Items {
		payload.Items = append(payload.Items, events.DealerItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return d.pub.PublishDealerNotificationRequested(ctx, meta(ctx, dealerID, orderID), payload)
}

func meta(ctx context.Context, partitionKey, orderID string) events.EventMeta {
	del := DeliveryFrom(ctx)
	return events.EventMeta{
		EventID:       del.EventID,
		CorrelationID: del.CorrelationID,
		CausationID:   orderID,
		PartitionKey:  partitionKey,
	}
}
