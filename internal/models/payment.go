package models

import "time"

// Статусы платёжного намерения.
const (
	PaymentStatusPending = "pending"
	PaymentStatusDone    = "done"
)

// PendingPayment представляет ожидаемый платёж: пользователю сообщили точную
// сумму, и запись ждёт появления перевода на эту сумму в ленте транзакций.
// Сумма хранится в микроединицах ленты (масштаб 10^6), сопоставление —
// точное целочисленное равенство.
type PendingPayment struct {
	ID        int       // Автоинкрементный идентификатор
	UserID    int64     // Пользователь, запросивший подписку
	Amount    int64     // Сумма в микроединицах
	Status    string    // pending или done
	Reference string    // UUID для корреляции в логах
	CreatedAt time.Time // Момент создания намерения
}
