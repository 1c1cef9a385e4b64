package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

// CreateUser сохраняет нового пользователя с начальным балансом бесплатных
// сообщений. Повторный вызов для существующего user_id ничего не меняет.
func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, username, first_name, last_name, balance)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (user_id) DO NOTHING;`
	_, err := s.DB.ExecContext(ctx, query,
		user.UserID, user.Username, user.FirstName, user.LastName, user.Balance)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его Telegram-идентификатору.
// Для неизвестного пользователя возвращает nil без ошибки.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, username, first_name, last_name, balance,
			      is_active, start_date, end_date, reminder_sent
			  FROM users
			  WHERE user_id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userID)

	var startDate, endDate sql.NullTime
	if err := row.Scan(&u.UserID, &u.Username, &u.FirstName, &u.LastName,
		&u.Balance, &u.IsActive, &startDate, &endDate, &u.ReminderSent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if startDate.Valid {
		u.StartDate = &startDate.Time
	}
	if endDate.Valid {
		u.EndDate = &endDate.Time
	}
	return u, nil
}

// GetBalance возвращает остаток бесплатных сообщений,
// для неизвестного пользователя — 0.
func (s *Storage) GetBalance(ctx context.Context, userID int64) (int, error) {
	const op = "storage.GetBalance"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT balance FROM users WHERE user_id = $1`
	var balance int
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// AdjustBalance прибавляет delta к балансу одним атомарным UPDATE.
// За недопущение ухода в минус отвечает вызывающая сторона.
func (s *Storage) AdjustBalance(ctx context.Context, userID int64, delta int) error {
	const op = "storage.AdjustBalance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET balance = balance + $1 WHERE user_id = $2`
	_, err := s.DB.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SpendFreeMessage списывает одно бесплатное сообщение, если баланс
// положителен. Проверка и списание выполняются одним UPDATE, поэтому
// конкурентные списания не уводят баланс ниже нуля.
// Возвращает остаток после списания и признак успеха.
func (s *Storage) SpendFreeMessage(ctx context.Context, userID int64) (int, bool, error) {
	const op = "storage.SpendFreeMessage"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET balance = balance - 1
			  WHERE user_id = $1 AND balance > 0
			  RETURNING balance`
	var remaining int
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return remaining, true, nil
}

// IsSubscriptionActive проверяет, что подписка пользователя действует сейчас.
// Проверка выводится из end_date, а не только из флага: запись, которую
// фоновая задача ещё не деактивировала, читается как неактивная.
func (s *Storage) IsSubscriptionActive(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.IsSubscriptionActive"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT is_active, end_date FROM users WHERE user_id = $1`
	var isActive bool
	var endDate sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&isActive, &endDate)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !isActive || !endDate.Valid {
		return false, nil
	}
	return !time.Now().After(endDate.Time), nil
}

// ActivateSubscription открывает окно подписки [now, now + 30*months дней],
// поднимает флаг активности и сбрасывает признак отправленного напоминания.
func (s *Storage) ActivateSubscription(ctx context.Context, userID int64, months int) error {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	start := time.Now()
	end := start.AddDate(0, 0, 30*months)
	query := `UPDATE users
			  SET start_date = $1, end_date = $2, is_active = TRUE, reminder_sent = FALSE
			  WHERE user_id = $3`
	_, err := s.DB.ExecContext(ctx, query, start, end, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeactivateUser снимает флаг активности, окно подписки остаётся для истории.
func (s *Storage) DeactivateUser(ctx context.Context, userID int64) error {
	const op = "storage.DeactivateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET is_active = FALSE WHERE user_id = $1`
	_, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkReminderSent отмечает, что напоминание в текущем цикле подписки отправлено.
func (s *Storage) MarkReminderSent(ctx context.Context, userID int64) error {
	const op = "storage.MarkReminderSent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET reminder_sent = TRUE WHERE user_id = $1`
	_, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListActiveUsers возвращает всех пользователей с поднятым флагом активности.
func (s *Storage) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListActiveUsers"
	return s.listUsers(ctx, op, `SELECT user_id, username, first_name, last_name, balance,
			      is_active, start_date, end_date, reminder_sent
			  FROM users
			  WHERE is_active = TRUE`)
}

// ListReminderCandidates возвращает активных пользователей, которым ещё не
// отправлялось напоминание в текущем цикле подписки.
func (s *Storage) ListReminderCandidates(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListReminderCandidates"
	return s.listUsers(ctx, op, `SELECT user_id, username, first_name, last_name, balance,
			      is_active, start_date, end_date, reminder_sent
			  FROM users
			  WHERE is_active = TRUE AND reminder_sent = FALSE AND end_date IS NOT NULL`)
}

func (s *Storage) listUsers(ctx context.Context, op, query string) ([]*models.User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var startDate, endDate sql.NullTime
		if err = rows.Scan(&u.UserID, &u.Username, &u.FirstName, &u.LastName,
			&u.Balance, &u.IsActive, &startDate, &endDate, &u.ReminderSent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if startDate.Valid {
			u.StartDate = &startDate.Time
		}
		if endDate.Valid {
			u.EndDate = &endDate.Time
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
