package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

// NotificationsExchange — обменник исходящих уведомлений бота.
const NotificationsExchange = "notifications"

// OutboundQueue — очередь, которую читает отправитель уведомлений.
const OutboundQueue = "notifications.outbound"

// GetNotificationRoutingKeys возвращает ключи маршрутизации,
// привязываемые к очереди исходящих уведомлений.
func GetNotificationRoutingKeys() []string {
	return []string{
		models.NotificationPaymentConfirmed,
		models.NotificationSubscriptionExpired,
		models.NotificationSubscriptionReminder,
	}
}

// SetupChannel открывает канал, объявляет обменник и очередь уведомлений
// и привязывает очередь по всем переданным ключам маршрутизации.
func SetupChannel(conn *amqp.Connection, routingKeys []string) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		NotificationsExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = ch.QueueDeclare(
		OutboundQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, OutboundQueue, err)
	}

	for _, key := range routingKeys {
		err = ch.QueueBind(
			OutboundQueue,
			key,
			NotificationsExchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, OutboundQueue, key, err)
		}
	}

	return ch, nil
}
