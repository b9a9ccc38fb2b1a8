package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "ecommerce.events"

	OrderConfirmationRequestedRoutingKey  = "order.confirmation_requested.v1"
	DealerNotificationRequestedRoutingKey = "dealer.notification_requested.v1"

	checkoutServiceName = "checkout-service-go"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
