// Package chatbot собирает приложение: хранилище, кеш, очередь уведомлений,
// транспорт Telegram, чат-бэкенд, фоновые задачи и служебный HTTP-сервер.
package chatbot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/chatbot-subscription/internal/http/handlers/health"
	"github.com/magabrotheeeer/chatbot-subscription/internal/storage/repository"
)

// RegisterRoutes регистрирует служебные маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
