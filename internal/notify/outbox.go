package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/outbox"
)

func ConfirmationMessage(c Confirmation, correlationID string) outbox.Message {
	return outbox.Message{
		Kind:          KindOrderConfirmation,
		PartitionKey:  c.Customer.UserID,
		CorrelationID: correlationID,
		Payload:       c,
	}
}

func DealerMessage(req DealerRequest, correlationID string) outbox.Message {
	return outbox.Message{
		Kind:          KindDealerNotifications,
		PartitionKey:  req.DealerID,
		CorrelationID: correlationID,
		Payload:       req,
	}
}

// OutboxHandlers decodes each notification kind and hands it to d.
func OutboxHandlers(d Dispatcher, logger *log.Logger) map[string]outbox.Handler {
	return map[string]outbox.Handler{
		KindOrderConfirmation: func(ctx context.Context, rec outbox.Record) error {
			var c Confirmation
			if err := json.Unmarshal(rec.Payload, &c); err != nil {
				return fmt.Errorf("decode confirmation: %w", err)
			}
			sent, err := d.SendOrderConfirmation(withRecord(ctx, rec), c)
			if err != nil {
				return err
			}
			if !sent {
				logger.Printf("confirmation not sent order=%s user=%s", c.OrderID, c.Customer.UserID)
			}
			return nil
		},
		KindDealerNotifications: func(ctx context.Context, rec outbox.Record) error {
			var req DealerRequest
			if err := json.Unmarshal(rec.Payload, &req); err != nil {
				return fmt.Errorf("decode dealer request: %w", err)
			}
			return d.CreateOrderNotifications(withRecord(ctx, rec), req.Data, req.OrderID, req.DealerID)
		},
	}
}

func withRecord(ctx context.Context, rec outbox.Record) context.Context {
	return WithDelivery(ctx, Delivery{EventID: rec.EventID, CorrelationID: rec.CorrelationID})
}
