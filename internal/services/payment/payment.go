// Package payment содержит бизнес-логику оформления подписки:
// создание платёжного намерения на точную сумму тарифа.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

// MicrosPerUnit — масштаб сумм ленты транзакций.
const MicrosPerUnit = 1_000_000

// PaymentRepository определяет методы очереди ожидаемых платежей.
type PaymentRepository interface {
	AddPending(ctx context.Context, userID int64, amount int64) (models.PendingPayment, error)
}

// Service реализует оформление подписки.
type Service struct {
	repo      PaymentRepository
	priceUSDT int
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo PaymentRepository, priceUSDT int, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		priceUSDT: priceUSDT,
		log:       log,
	}
}

// RequestSubscription создаёт платёжное намерение на сумму тарифа и
// возвращает её в микроединицах — ровно ту сумму, которую пользователь
// должен отправить.
func (s *Service) RequestSubscription(ctx context.Context, userID int64) (int64, error) {
	amount := int64(s.priceUSDT) * MicrosPerUnit
	pending, err := s.repo.AddPending(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to add pending payment: %w", err)
	}
	s.log.Info("created pending payment",
		slog.Int("id", pending.ID), slog.Int64("user_id", userID),
		slog.Int64("amount", pending.Amount), slog.String("reference", pending.Reference))
	return pending.Amount, nil
}
