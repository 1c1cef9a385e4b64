// Package sweeper реализует фоновую проверку подписок: деактивацию
// истёкших и напоминание за день до окончания. Обе проверки читают
// леджер и пишут построчно, общей транзакции нет — записи независимы.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/chatbot-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/chatbot-subscription/internal/metrics"
	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
	"github.com/magabrotheeeer/chatbot-subscription/internal/services/access"
)

// Repository определяет методы леджера, нужные проверке подписок.
type Repository interface {
	ListActiveUsers(ctx context.Context) ([]*models.User, error)
	ListReminderCandidates(ctx context.Context) ([]*models.User, error)
	DeactivateUser(ctx context.Context, userID int64) error
	MarkReminderSent(ctx context.Context, userID int64) error
}

// Publisher публикует уведомления в очередь исходящих сообщений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Cache нужен для инвалидации записи пользователя после деактивации.
type Cache interface {
	Invalidate(key string) error
}

// Service реализует один проход проверки и периодический запуск.
type Service struct {
	repo      Repository
	publisher Publisher
	cache     Cache
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, publisher Publisher, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		log:       log,
	}
}

// Run запускает проверку сразу и далее по тикеру, пока контекст не отменён.
// Ошибка одной итерации логируется и не останавливает цикл.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.Sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep выполняет оба прохода: деактивацию истёкших подписок и напоминания.
func (s *Service) Sweep(ctx context.Context) {
	s.deactivateExpired(ctx)
	s.sendReminders(ctx)
}

func (s *Service) deactivateExpired(ctx context.Context) {
	users, err := s.repo.ListActiveUsers(ctx)
	if err != nil {
		s.log.Error("failed to list active users", sl.Err(err))
		return
	}

	now := time.Now()
	for _, u := range users {
		if u.EndDate == nil || !now.After(*u.EndDate) {
			continue
		}

		if err := s.repo.DeactivateUser(ctx, u.UserID); err != nil {
			s.log.Error("failed to deactivate user", slog.Int64("user_id", u.UserID), sl.Err(err))
			continue
		}
		if err := s.cache.Invalidate(access.UserCacheKey(u.UserID)); err != nil {
			s.log.Warn("failed to invalidate user cache", slog.Int64("user_id", u.UserID), sl.Err(err))
		}

		metrics.SubscriptionsExpiredTotal.Inc()
		s.log.Info("subscription expired", slog.Int64("user_id", u.UserID))

		notification := models.Notification{
			UserID: u.UserID,
			Kind:   models.NotificationSubscriptionExpired,
			Text:   "⏳ Ваша месячная подписка закончилась.\n💳 Продлите её, чтобы продолжить.",
		}
		if err := s.publisher.Publish(models.NotificationSubscriptionExpired, notification); err != nil {
			s.log.Error("failed to publish notification", sl.Err(err))
		}
	}
}

func (s *Service) sendReminders(ctx context.Context) {
	users, err := s.repo.ListReminderCandidates(ctx)
	if err != nil {
		s.log.Error("failed to list reminder candidates", sl.Err(err))
		return
	}

	tomorrow := time.Now().AddDate(0, 0, 1)
	for _, u := range users {
		if !u.ExpiresOn(tomorrow) {
			continue
		}

		// Сначала флаг, потом уведомление: повтор напоминания хуже его потери.
		if err := s.repo.MarkReminderSent(ctx, u.UserID); err != nil {
			s.log.Error("failed to mark reminder sent", slog.Int64("user_id", u.UserID), sl.Err(err))
			continue
		}

		metrics.RemindersSentTotal.Inc()
		s.log.Info("expiry reminder queued", slog.Int64("user_id", u.UserID))

		notification := models.Notification{
			UserID: u.UserID,
			Kind:   models.NotificationSubscriptionReminder,
			Text:   "⏰ Важное напоминание!\nВаша подписка закончится завтра 🗓️\n💳 Продлите её заранее, чтобы пользоваться ботом без перерыва.",
		}
		if err := s.publisher.Publish(models.NotificationSubscriptionReminder, notification); err != nil {
			s.log.Error("failed to publish notification", sl.Err(err))
		}
	}
}
