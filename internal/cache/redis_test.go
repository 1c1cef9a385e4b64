package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return &Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	end := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	user := &models.User{UserID: 42, Username: "ivan", Balance: 7, IsActive: true, EndDate: &end}

	require.NoError(t, c.Set("user:42", user, time.Minute))

	var got *models.User
	found, err := c.Get("user:42", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, user, got)
}

func TestCache_GetMiss(t *testing.T) {
	c := newTestCache(t)

	var got *models.User
	found, err := c.Get("user:404", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestCache_Invalidate(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("user:42", &models.User{UserID: 42}, time.Minute))
	require.NoError(t, c.Invalidate("user:42"))

	var got *models.User
	found, err := c.Get("user:42", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
