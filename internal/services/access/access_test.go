package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *RepoMock) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) SpendFreeMessage(ctx context.Context, userID int64) (int, bool, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func activeUser(userID int64, daysLeft int) *models.User {
	start := time.Now().AddDate(0, 0, -1)
	end := time.Now().AddDate(0, 0, daysLeft)
	return &models.User{
		UserID:    userID,
		Balance:   0,
		IsActive:  true,
		StartDate: &start,
		EndDate:   &end,
	}
}

func TestService_Check(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
		want       Decision
		wantErr    bool
	}{
		{
			name: "active subscription, no balance change",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Return(false, nil).Once()
				r.On("GetUser", mock.Anything, int64(1)).Return(activeUser(1, 10), nil).Once()
				c.On("Set", "user:1", mock.Anything, mock.Anything).Return(nil).Once()
			},
			want: Decision{Allowed: true},
		},
		{
			name: "expired window reads as inactive even with active flag",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Return(false, nil).Once()
				r.On("GetUser", mock.Anything, int64(1)).Return(activeUser(1, -1), nil).Once()
				c.On("Set", "user:1", mock.Anything, mock.Anything).Return(nil).Once()
				r.On("SpendFreeMessage", mock.Anything, int64(1)).Return(0, false, nil).Once()
			},
			want: Decision{},
		},
		{
			name: "free tier decrements and reports remaining",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Return(false, nil).Once()
				r.On("GetUser", mock.Anything, int64(1)).
					Return(&models.User{UserID: 1, Balance: 10}, nil).Once()
				c.On("Set", "user:1", mock.Anything, mock.Anything).Return(nil).Once()
				r.On("SpendFreeMessage", mock.Anything, int64(1)).Return(9, true, nil).Once()
				c.On("Invalidate", "user:1").Return(nil).Once()
			},
			want: Decision{Allowed: true, FreeTier: true, Remaining: 9},
		},
		{
			name: "denies when balance exhausted",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Return(false, nil).Once()
				r.On("GetUser", mock.Anything, int64(1)).
					Return(&models.User{UserID: 1, Balance: 0}, nil).Once()
				c.On("Set", "user:1", mock.Anything, mock.Anything).Return(nil).Once()
				r.On("SpendFreeMessage", mock.Anything, int64(1)).Return(0, false, nil).Once()
			},
			want: Decision{},
		},
		{
			name: "unknown user is denied without error",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Return(false, nil).Once()
				r.On("GetUser", mock.Anything, int64(1)).Return(nil, nil).Once()
				r.On("SpendFreeMessage", mock.Anything, int64(1)).Return(0, false, nil).Once()
			},
			want: Decision{},
		},
		{
			name: "cache hit skips repository lookup",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Run(func(args mock.Arguments) {
					dst := args.Get(1).(**models.User)
					*dst = activeUser(1, 10)
				}).Return(true, nil).Once()
			},
			want: Decision{Allowed: true},
		},
		{
			name: "cache read error falls back to repository",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Return(false, errors.New("redis down")).Once()
				r.On("GetUser", mock.Anything, int64(1)).Return(activeUser(1, 5), nil).Once()
				c.On("Set", "user:1", mock.Anything, mock.Anything).Return(nil).Once()
			},
			want: Decision{Allowed: true},
		},
		{
			name: "repository error is returned",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "user:1", mock.Anything).Return(false, nil).Once()
				r.On("GetUser", mock.Anything, int64(1)).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cacheMock := new(CacheMock)
			tt.setupMocks(repo, cacheMock)

			svc := New(repo, cacheMock, 10, newNoopLogger())
			got, err := svc.Check(context.Background(), 1)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			repo.AssertExpectations(t)
			cacheMock.AssertExpectations(t)
		})
	}
}

func TestService_Register(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)

	repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.UserID == 42 && u.Balance == 10 && !u.IsActive
	})).Return(nil).Once()
	cacheMock.On("Invalidate", "user:42").Return(nil).Once()

	svc := New(repo, cacheMock, 10, newNoopLogger())
	err := svc.Register(context.Background(), models.User{UserID: 42, Username: "testuser"})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	cacheMock.AssertExpectations(t)
}

func TestService_Check_ElevenMessages(t *testing.T) {
	// Десять бесплатных сообщений проходят, одиннадцатое получает отказ.
	repo := new(RepoMock)
	cacheMock := new(CacheMock)

	cacheMock.On("Get", "user:7", mock.Anything).Return(false, nil)
	cacheMock.On("Set", "user:7", mock.Anything, mock.Anything).Return(nil)
	cacheMock.On("Invalidate", "user:7").Return(nil)
	repo.On("GetUser", mock.Anything, int64(7)).Return(&models.User{UserID: 7, Balance: 10}, nil)
	for left := 9; left >= 0; left-- {
		repo.On("SpendFreeMessage", mock.Anything, int64(7)).Return(left, true, nil).Once()
	}
	repo.On("SpendFreeMessage", mock.Anything, int64(7)).Return(0, false, nil).Once()

	svc := New(repo, cacheMock, 10, newNoopLogger())

	for i := 0; i < 10; i++ {
		got, err := svc.Check(context.Background(), 7)
		assert.NoError(t, err)
		assert.True(t, got.Allowed, "message %d must pass", i+1)
		assert.Equal(t, 9-i, got.Remaining)
	}

	got, err := svc.Check(context.Background(), 7)
	assert.NoError(t, err)
	assert.False(t, got.Allowed, "eleventh message must be denied")
	repo.AssertExpectations(t)
}
