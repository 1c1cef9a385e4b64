// Package notifier потребляет очередь исходящих уведомлений и отправляет
// их пользователям через транспорт бота. Это точка передачи между фоновыми
// задачами и доменом конкурентности транспорта.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/chatbot-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

const sendTimeout = 10 * time.Second

// Sender отправляет текст пользователю.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Service реализует обработку сообщений очереди уведомлений.
type Service struct {
	sender Sender
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(sender Sender, log *slog.Logger) *Service {
	return &Service{
		sender: sender,
		log:    log,
	}
}

// HandleNotification — обработчик одного сообщения очереди.
// Ошибка отправки возвращается наружу: потребитель вернёт сообщение в очередь.
func (s *Service) HandleNotification(body []byte) error {
	var notification models.Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		s.log.Error("failed to unmarshal notification", sl.Err(err))
		return fmt.Errorf("error unmarshalling notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := s.sender.SendText(ctx, notification.UserID, notification.Text); err != nil {
		s.log.Error("failed to send notification",
			slog.Int64("user_id", notification.UserID),
			slog.String("kind", notification.Kind), sl.Err(err))
		return err
	}

	s.log.Info("notification sent",
		slog.Int64("user_id", notification.UserID), slog.String("kind", notification.Kind))
	return nil
}
