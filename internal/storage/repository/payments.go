package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

// AddPending добавляет платёжное намерение со статусом pending и возвращает
// созданную запись. Ограничения уникальности нет: несколько намерений одного
// пользователя или на одну сумму могут сосуществовать.
func (s *Storage) AddPending(ctx context.Context, userID int64, amount int64) (models.PendingPayment, error) {
	const op = "storage.AddPending"
	select {
	case <-ctx.Done():
		return models.PendingPayment{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_id, amount, reference)
			  VALUES ($1, $2, $3)
			  RETURNING id, user_id, amount, status, reference, created_at`
	var p models.PendingPayment
	err := s.DB.QueryRowContext(ctx, query, userID, amount, uuid.New().String()).
		Scan(&p.ID, &p.UserID, &p.Amount, &p.Status, &p.Reference, &p.CreatedAt)
	if err != nil {
		return models.PendingPayment{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// FindPendingByAmount возвращает пользователя первого по порядку вставки
// намерения с данной суммой. Сопоставление идёт только по сумме: плательщик
// не проверяется, и уже учтённые транзакции не запоминаются, так что два
// пользователя с одинаковой суммой или перевод, увиденный в двух циклах
// опроса, могут подтвердить чужое или уже подтверждённое намерение.
func (s *Storage) FindPendingByAmount(ctx context.Context, amount int64) (int64, bool, error) {
	const op = "storage.FindPendingByAmount"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id FROM payments
			  WHERE amount = $1 AND status = $2
			  ORDER BY id
			  LIMIT 1`
	var userID int64
	err := s.DB.QueryRowContext(ctx, query, amount, models.PaymentStatusPending).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return userID, true, nil
}

// ConfirmForUser переводит в done все pending-намерения пользователя,
// а не только совпавшее — поведение унаследовано от исходной схемы учёта.
func (s *Storage) ConfirmForUser(ctx context.Context, userID int64) error {
	const op = "storage.ConfirmForUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = $1
			  WHERE user_id = $2 AND status = $3`
	_, err := s.DB.ExecContext(ctx, query,
		models.PaymentStatusDone, userID, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountPendingForUser возвращает число необработанных намерений пользователя.
func (s *Storage) CountPendingForUser(ctx context.Context, userID int64) (int, error) {
	const op = "storage.CountPendingForUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM payments WHERE user_id = $1 AND status = $2`
	var count int
	err := s.DB.QueryRowContext(ctx, query, userID, models.PaymentStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
