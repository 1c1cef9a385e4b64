package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) ListReminderCandidates(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) DeactivateUser(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *RepoMock) MarkReminderSent(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func userEndingAt(userID int64, end time.Time) *models.User {
	start := end.AddDate(0, 0, -30)
	return &models.User{
		UserID:    userID,
		IsActive:  true,
		StartDate: &start,
		EndDate:   &end,
	}
}

func TestService_Sweep(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	tomorrow := time.Now().AddDate(0, 0, 1)
	nextWeek := time.Now().AddDate(0, 0, 7)

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, p *PublisherMock, c *CacheMock)
	}{
		{
			name: "expired subscription is deactivated and announced",
			setupMocks: func(r *RepoMock, p *PublisherMock, c *CacheMock) {
				r.On("ListActiveUsers", mock.Anything).
					Return([]*models.User{userEndingAt(1, yesterday)}, nil).Once()
				r.On("DeactivateUser", mock.Anything, int64(1)).Return(nil).Once()
				c.On("Invalidate", "user:1").Return(nil).Once()
				p.On("Publish", models.NotificationSubscriptionExpired, mock.MatchedBy(func(n models.Notification) bool {
					return n.UserID == 1 && n.Kind == models.NotificationSubscriptionExpired
				})).Return(nil).Once()
				r.On("ListReminderCandidates", mock.Anything).Return([]*models.User{}, nil).Once()
			},
		},
		{
			name: "subscription still running is untouched",
			setupMocks: func(r *RepoMock, p *PublisherMock, c *CacheMock) {
				r.On("ListActiveUsers", mock.Anything).
					Return([]*models.User{userEndingAt(1, nextWeek)}, nil).Once()
				r.On("ListReminderCandidates", mock.Anything).Return([]*models.User{}, nil).Once()
			},
		},
		{
			name: "reminder fires for subscription ending tomorrow",
			setupMocks: func(r *RepoMock, p *PublisherMock, c *CacheMock) {
				r.On("ListActiveUsers", mock.Anything).Return([]*models.User{}, nil).Once()
				r.On("ListReminderCandidates", mock.Anything).
					Return([]*models.User{userEndingAt(2, tomorrow)}, nil).Once()
				r.On("MarkReminderSent", mock.Anything, int64(2)).Return(nil).Once()
				p.On("Publish", models.NotificationSubscriptionReminder, mock.MatchedBy(func(n models.Notification) bool {
					return n.UserID == 2 && n.Kind == models.NotificationSubscriptionReminder
				})).Return(nil).Once()
			},
		},
		{
			name: "no reminder for subscription ending next week",
			setupMocks: func(r *RepoMock, p *PublisherMock, c *CacheMock) {
				r.On("ListActiveUsers", mock.Anything).Return([]*models.User{}, nil).Once()
				r.On("ListReminderCandidates", mock.Anything).
					Return([]*models.User{userEndingAt(2, nextWeek)}, nil).Once()
			},
		},
		{
			name: "mark failure suppresses the reminder",
			setupMocks: func(r *RepoMock, p *PublisherMock, c *CacheMock) {
				r.On("ListActiveUsers", mock.Anything).Return([]*models.User{}, nil).Once()
				r.On("ListReminderCandidates", mock.Anything).
					Return([]*models.User{userEndingAt(2, tomorrow)}, nil).Once()
				r.On("MarkReminderSent", mock.Anything, int64(2)).
					Return(errors.New("db error")).Once()
			},
		},
		{
			name: "list error does not break the other pass",
			setupMocks: func(r *RepoMock, p *PublisherMock, c *CacheMock) {
				r.On("ListActiveUsers", mock.Anything).
					Return(nil, errors.New("db error")).Once()
				r.On("ListReminderCandidates", mock.Anything).Return([]*models.User{}, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			publisher := new(PublisherMock)
			cacheMock := new(CacheMock)
			tt.setupMocks(repo, publisher, cacheMock)

			svc := New(repo, publisher, cacheMock, newNoopLogger())
			svc.Sweep(context.Background())

			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
			cacheMock.AssertExpectations(t)
		})
	}
}
