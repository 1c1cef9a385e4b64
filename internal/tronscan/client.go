// Package tronscan реализует клиент ленты транзакций TronScan:
// чтение последних транзакций по адресу получателя.
package tronscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/chatbot-subscription/internal/config"
)

// Client — HTTP-клиент TronScan.
type Client struct {
	apiURL     string
	address    string
	limit      int
	httpClient *http.Client
	validate   *validator.Validate
}

// NewClient создаёт новый клиент ленты транзакций.
func NewClient(cfg config.Tron) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		address:    cfg.WalletAddress,
		limit:      cfg.FetchLimit,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		validate:   validator.New(),
	}
}

// RecentTransactions возвращает последние транзакции адреса получателя.
// Записи, не прошедшие валидацию структуры, пропускаются.
func (c *Client) RecentTransactions(ctx context.Context) ([]Transaction, error) {
	const op = "tronscan.RecentTransactions"

	q := url.Values{}
	q.Set("address", c.address)
	q.Set("limit", strconv.Itoa(c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/api/transaction?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var list transactionList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]Transaction, 0, len(list.Data))
	for _, tx := range list.Data {
		if err := c.validate.Struct(tx); err != nil {
			continue
		}
		result = append(result, tx)
	}
	return result, nil
}

// FormatAmount печатает сумму в микроединицах как десятичное число,
// без хвостовых нулей: 5000000 -> "5", 5500000 -> "5.5".
func FormatAmount(micros int64) string {
	whole := micros / 1_000_000
	frac := micros % 1_000_000
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	s := fmt.Sprintf("%d.%06d", whole, frac)
	return strings.TrimRight(s, "0")
}
