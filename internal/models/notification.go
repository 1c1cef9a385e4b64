package models

// Виды исходящих уведомлений; используются как routing key в очереди.
const (
	NotificationPaymentConfirmed     = "payment.confirmed"
	NotificationSubscriptionExpired  = "subscription.expired"
	NotificationSubscriptionReminder = "subscription.reminder"
)

// Notification — сообщение для отправки пользователю через транспорт бота.
// Фоновые задачи публикуют его в очередь, потребитель отправляет текст.
type Notification struct {
	UserID int64  `json:"user_id"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}
