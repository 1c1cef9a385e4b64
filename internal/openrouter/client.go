// Package openrouter реализует клиент бэкенда чат-комплишенов OpenRouter.
// Запрос уходит основной модели; при ответе с кодом 429 выполняется один
// повтор запасной моделью. Прочие ошибки бэкенда возвращаются как
// UpstreamError с текстом для пользователя.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/chatbot-subscription/internal/config"
	"github.com/magabrotheeeer/chatbot-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/chatbot-subscription/internal/metrics"
)

const systemPersona = "Ты умный, дружелюбный и полезный ассистент, отвечаешь по-русски."

const rateLimitCode = 429

// ErrNoCompletion возвращается, когда в ответе нет ни текста, ни ошибки.
var ErrNoCompletion = errors.New("no completion in response")

// UpstreamError — ошибка, которую бэкенд вернул в теле ответа.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openrouter: upstream error %d: %s", e.Code, e.Message)
}

// Client — HTTP-клиент OpenRouter.
type Client struct {
	apiKey       string
	apiURL       string
	primaryModel string
	backupModel  string
	botUsername  string
	httpClient   *http.Client
	log          *slog.Logger
}

// NewClient создаёт новый клиент OpenRouter.
func NewClient(cfg config.OpenRouter, botUsername string, log *slog.Logger) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		apiURL:       cfg.APIURL,
		primaryModel: cfg.PrimaryModel,
		backupModel:  cfg.BackupModel,
		botUsername:  botUsername,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		log:          log,
	}
}

// Chat отправляет prompt с фиксированной системной репликой и возвращает
// текст ответа модели.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	const op = "openrouter.Chat"

	model := c.primaryModel
	resp, err := c.complete(ctx, model, prompt)
	if err != nil {
		metrics.AIRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.Error != nil && resp.Error.Code == rateLimitCode {
		c.log.Info("primary model rate limited, retrying with backup",
			slog.String("primary", c.primaryModel), slog.String("backup", c.backupModel))
		metrics.AIRequestsTotal.WithLabelValues(model, "rate_limited").Inc()
		model = c.backupModel
		resp, err = c.complete(ctx, model, prompt)
		if err != nil {
			metrics.AIRequestsTotal.WithLabelValues(model, "error").Inc()
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	if resp.Error != nil {
		c.log.Error("upstream returned error", sl.Err(errors.New(resp.Error.Message)))
		metrics.AIRequestsTotal.WithLabelValues(model, "upstream_error").Inc()
		return "", &UpstreamError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if len(resp.Choices) == 0 {
		metrics.AIRequestsTotal.WithLabelValues(model, "empty").Inc()
		return "", ErrNoCompletion
	}

	metrics.AIRequestsTotal.WithLabelValues(model, "ok").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) complete(ctx context.Context, model, prompt string) (*ChatResponse, error) {
	payload := ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemPersona},
			{Role: "user", Content: prompt},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://t.me/"+c.botUsername)
	req.Header.Set("X-Title", "AI Telegram Chatbot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, err
	}
	return &chatResp, nil
}
