// Package reconciler реализует сверку платежей: опрос ленты транзакций,
// отбор окончательно исполненных переводов, сопоставление с ожидаемыми
// платежами по сумме, подтверждение и публикацию уведомления пользователю.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/chatbot-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/chatbot-subscription/internal/metrics"
	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
	"github.com/magabrotheeeer/chatbot-subscription/internal/services/access"
	"github.com/magabrotheeeer/chatbot-subscription/internal/tronscan"
)

// Feed определяет источник транзакций.
type Feed interface {
	RecentTransactions(ctx context.Context) ([]tronscan.Transaction, error)
}

// Repository определяет методы хранилища, нужные сверке.
type Repository interface {
	FindPendingByAmount(ctx context.Context, amount int64) (int64, bool, error)
	ConfirmForUser(ctx context.Context, userID int64) error
	ActivateSubscription(ctx context.Context, userID int64, months int) error
}

// Publisher публикует уведомления в очередь исходящих сообщений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Cache нужен для инвалидации записи пользователя после активации подписки.
type Cache interface {
	Invalidate(key string) error
}

// Service реализует один проход сверки и периодический запуск.
type Service struct {
	feed      Feed
	repo      Repository
	publisher Publisher
	cache     Cache
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(feed Feed, repo Repository, publisher Publisher, cache Cache, log *slog.Logger) *Service {
	return &Service{
		feed:      feed,
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		log:       log,
	}
}

// Run запускает сверку сразу и далее по тикеру, пока контекст не отменён.
// Ошибка одной итерации логируется и не останавливает цикл.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.Reconcile(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Reconcile(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Reconcile выполняет один цикл: Fetch -> Filter -> Match -> Confirm/Notify.
// Уже учтённые транзакции не запоминаются между циклами — перевод, попавший
// в два опроса подряд, может подтвердить второе намерение на ту же сумму.
func (s *Service) Reconcile(ctx context.Context) {
	s.log.Info("starting payment reconciliation")

	txs, err := s.feed.RecentTransactions(ctx)
	if err != nil {
		s.log.Error("failed to fetch transactions", sl.Err(err))
		return
	}

	for _, tx := range txs {
		if !tx.Settled() {
			continue
		}

		userID, found, err := s.repo.FindPendingByAmount(ctx, tx.Amount)
		if err != nil {
			s.log.Error("failed to look up pending payment", sl.Err(err))
			continue
		}
		if !found {
			continue
		}

		if err := s.repo.ConfirmForUser(ctx, userID); err != nil {
			s.log.Error("failed to confirm payment", slog.Int64("user_id", userID), sl.Err(err))
			continue
		}
		if err := s.repo.ActivateSubscription(ctx, userID, 1); err != nil {
			s.log.Error("failed to activate subscription", slog.Int64("user_id", userID), sl.Err(err))
			continue
		}
		if err := s.cache.Invalidate(access.UserCacheKey(userID)); err != nil {
			s.log.Warn("failed to invalidate user cache", slog.Int64("user_id", userID), sl.Err(err))
		}

		metrics.PaymentsConfirmedTotal.Inc()
		s.log.Info("payment confirmed, subscription activated",
			slog.Int64("user_id", userID),
			slog.String("amount", tronscan.FormatAmount(tx.Amount)),
			slog.String("tx_hash", tx.Hash))

		notification := models.Notification{
			UserID: userID,
			Kind:   models.NotificationPaymentConfirmed,
			Text:   "✅ Платёж получен!\nПодписка активирована на месяц 🎉",
		}
		if err := s.publisher.Publish(models.NotificationPaymentConfirmed, notification); err != nil {
			s.log.Error("failed to publish notification", sl.Err(err))
		}
	}
}
