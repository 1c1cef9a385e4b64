// Package metrics регистрирует счётчики Prometheus для ключевых событий бота.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal — входящие текстовые сообщения по исходу шлюза доступа.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbot_messages_total",
		Help: "Incoming text messages by access gate outcome.",
	}, []string{"outcome"})

	// AIRequestsTotal — запросы к чат-бэкенду по модели и статусу.
	AIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbot_ai_requests_total",
		Help: "Chat completion requests by model and status.",
	}, []string{"model", "status"})

	// PaymentsConfirmedTotal — подтверждённые платежи.
	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_payments_confirmed_total",
		Help: "Pending payments matched and confirmed.",
	})

	// SubscriptionsExpiredTotal — деактивированные по сроку подписки.
	SubscriptionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_subscriptions_expired_total",
		Help: "Subscriptions deactivated by the expiry sweep.",
	})

	// RemindersSentTotal — отправленные напоминания об окончании подписки.
	RemindersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_reminders_sent_total",
		Help: "Pre-expiry reminders published.",
	})
)
