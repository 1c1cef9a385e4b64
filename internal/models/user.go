// Package models содержит доменные структуры бота: пользователя с балансом
// бесплатных сообщений и окном подписки, платёжное намерение и исходящее
// уведомление. Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// User представляет пользователя Telegram-бота.
// Поля StartDate и EndDate могут быть nil — пользователь ещё не оформлял подписку.
type User struct {
	UserID       int64      // Идентификатор пользователя в Telegram
	Username     string     // Имя пользователя (может отсутствовать)
	FirstName    string     // Имя
	LastName     string     // Фамилия
	Balance      int        // Остаток бесплатных сообщений
	IsActive     bool       // Флаг активной подписки
	StartDate    *time.Time // Начало окна подписки
	EndDate      *time.Time // Конец окна подписки
	ReminderSent bool       // Напоминание об окончании уже отправлено в текущем цикле
}

// SubscriptionActive сообщает, действует ли подписка в момент now.
// Проверка опирается на дату окончания, а не только на флаг IsActive:
// флаг может отставать от реальности до одного интервала фоновой проверки.
func (u *User) SubscriptionActive(now time.Time) bool {
	if u == nil || !u.IsActive || u.EndDate == nil {
		return false
	}
	return !now.After(*u.EndDate)
}

// ExpiresOn сообщает, приходится ли конец подписки на календарную дату day.
func (u *User) ExpiresOn(day time.Time) bool {
	if u == nil || u.EndDate == nil {
		return false
	}
	ey, em, ed := u.EndDate.Date()
	dy, dm, dd := day.Date()
	return ey == dy && em == dm && ed == dd
}
