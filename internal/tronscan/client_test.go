package tronscan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/chatbot-subscription/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.Tron{
		WalletAddress: "TTestWallet",
		APIURL:        srv.URL,
		FetchLimit:    20,
		Timeout:       5 * time.Second,
	})
}

func TestClient_RecentTransactions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transaction", r.URL.Path)
		assert.Equal(t, "TTestWallet", r.URL.Query().Get("address"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		_ = json.NewEncoder(w).Encode(transactionList{
			Total: 3,
			Data: []Transaction{
				{Hash: "aaa", ContractRet: "SUCCESS", Amount: 5_000_000},
				{Hash: "bbb", ContractRet: "REVERT", Amount: 1_000_000},
				{Hash: "ccc", Amount: 2_000_000}, // без статуса, отбрасывается валидацией
			},
		})
	})

	got, err := client.RecentTransactions(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "aaa", got[0].Hash)
	assert.True(t, got[0].Settled())
	assert.Equal(t, "bbb", got[1].Hash)
	assert.False(t, got[1].Settled())
}

func TestClient_RecentTransactions_BadStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.RecentTransactions(context.Background())

	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		micros int64
		want   string
	}{
		{5_000_000, "5"},
		{5_500_000, "5.5"},
		{5_123_456, "5.123456"},
		{1, "0.000001"},
		{0, "0"},
		{10_000_000, "10"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.micros))
		})
	}
}
