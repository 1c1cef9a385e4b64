package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestUser_SubscriptionActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		user *User
		want bool
	}{
		{
			name: "nil user",
			user: nil,
			want: false,
		},
		{
			name: "no subscription",
			user: &User{UserID: 1},
			want: false,
		},
		{
			name: "active flag without end date",
			user: &User{UserID: 1, IsActive: true},
			want: false,
		},
		{
			name: "end date in the future",
			user: &User{UserID: 1, IsActive: true, EndDate: datePtr(now.AddDate(0, 0, 10))},
			want: true,
		},
		{
			name: "end date exactly now",
			user: &User{UserID: 1, IsActive: true, EndDate: datePtr(now)},
			want: true,
		},
		{
			name: "end date in the past despite active flag",
			user: &User{UserID: 1, IsActive: true, EndDate: datePtr(now.AddDate(0, 0, -1))},
			want: false,
		},
		{
			name: "inactive flag with future end date",
			user: &User{UserID: 1, IsActive: false, EndDate: datePtr(now.AddDate(0, 0, 10))},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.SubscriptionActive(now))
		})
	}
}

func TestUser_ExpiresOn(t *testing.T) {
	day := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		user *User
		want bool
	}{
		{
			name: "nil user",
			user: nil,
			want: false,
		},
		{
			name: "no end date",
			user: &User{UserID: 1},
			want: false,
		},
		{
			name: "same calendar day, different time",
			user: &User{UserID: 1, EndDate: datePtr(time.Date(2025, 6, 16, 23, 59, 0, 0, time.UTC))},
			want: true,
		},
		{
			name: "day before",
			user: &User{UserID: 1, EndDate: datePtr(day.AddDate(0, 0, -1))},
			want: false,
		},
		{
			name: "day after",
			user: &User{UserID: 1, EndDate: datePtr(day.AddDate(0, 0, 1))},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.ExpiresOn(day))
		})
	}
}
