// Package access реализует шлюз доступа: решение по каждому входящему
// сообщению — пропустить по активной подписке, списать бесплатное сообщение
// или отказать. Записи пользователей читаются через кеш.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/chatbot-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

const userCacheTTL = time.Minute

// UserRepository определяет методы леджера пользователей, нужные шлюзу.
type UserRepository interface {
	// CreateUser идемпотентно сохраняет нового пользователя.
	CreateUser(ctx context.Context, user models.User) error
	// GetUser возвращает пользователя или nil, если он неизвестен.
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	// SpendFreeMessage атомарно списывает одно бесплатное сообщение.
	SpendFreeMessage(ctx context.Context, userID int64) (int, bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Decision — результат шлюза доступа для одного сообщения.
type Decision struct {
	Allowed   bool // Сообщение пропущено к ИИ
	FreeTier  bool // Пропущено за счёт бесплатного баланса
	Remaining int  // Остаток бесплатных сообщений после списания
}

// Service реализует шлюз доступа.
type Service struct {
	repo         UserRepository
	cache        Cache
	freeMessages int
	log          *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo UserRepository, cache Cache, freeMessages int, log *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		cache:        cache,
		freeMessages: freeMessages,
		log:          log,
	}
}

// UserCacheKey — ключ записи пользователя в кеше.
func UserCacheKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Register идемпотентно заводит пользователя с начальным балансом
// бесплатных сообщений и без подписки.
func (s *Service) Register(ctx context.Context, user models.User) error {
	user.Balance = s.freeMessages
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	if err := s.cache.Invalidate(UserCacheKey(user.UserID)); err != nil {
		s.log.Warn("failed to invalidate user cache", slog.Int64("user_id", user.UserID), sl.Err(err))
	}
	return nil
}

// Check принимает решение по сообщению пользователя.
// Порядок: активная подписка — пропустить без списания; положительный
// баланс — списать одно сообщение и пропустить; иначе отказ.
func (s *Service) Check(ctx context.Context, userID int64) (Decision, error) {
	active, err := s.isActive(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if active {
		return Decision{Allowed: true}, nil
	}

	remaining, ok, err := s.repo.SpendFreeMessage(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to spend free message: %w", err)
	}
	if !ok {
		return Decision{}, nil
	}

	if err := s.cache.Invalidate(UserCacheKey(userID)); err != nil {
		s.log.Warn("failed to invalidate user cache", slog.Int64("user_id", userID), sl.Err(err))
	}
	return Decision{Allowed: true, FreeTier: true, Remaining: remaining}, nil
}

// isActive выводит активность подписки из записи пользователя, при этом
// дата окончания перепроверяется независимо от флага is_active.
func (s *Service) isActive(ctx context.Context, userID int64) (bool, error) {
	cacheKey := UserCacheKey(userID)

	var u *models.User
	found, err := s.cache.Get(cacheKey, &u)
	if err != nil {
		s.log.Warn("failed to read user cache", slog.String("key", cacheKey), sl.Err(err))
		found = false
	}
	if !found {
		u, err = s.repo.GetUser(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("failed to get user: %w", err)
		}
		if u == nil {
			return false, nil
		}
		if err := s.cache.Set(cacheKey, u, userCacheTTL); err != nil {
			s.log.Warn("failed to cache user", slog.String("key", cacheKey), sl.Err(err))
		}
	}

	return u.SubscriptionActive(time.Now()), nil
}
