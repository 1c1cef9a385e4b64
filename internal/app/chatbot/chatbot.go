package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/chatbot-subscription/internal/cache"
	"github.com/magabrotheeeer/chatbot-subscription/internal/config"
	"github.com/magabrotheeeer/chatbot-subscription/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/chatbot-subscription/internal/migrations"
	"github.com/magabrotheeeer/chatbot-subscription/internal/openrouter"
	accessservice "github.com/magabrotheeeer/chatbot-subscription/internal/services/access"
	notifierservice "github.com/magabrotheeeer/chatbot-subscription/internal/services/notifier"
	paymentservice "github.com/magabrotheeeer/chatbot-subscription/internal/services/payment"
	reconcilerservice "github.com/magabrotheeeer/chatbot-subscription/internal/services/reconciler"
	sweeperservice "github.com/magabrotheeeer/chatbot-subscription/internal/services/sweeper"
	"github.com/magabrotheeeer/chatbot-subscription/internal/storage/repository"
	"github.com/magabrotheeeer/chatbot-subscription/internal/telegram"
	"github.com/magabrotheeeer/chatbot-subscription/internal/tronscan"
)

type App struct {
	server     *http.Server
	bot        *telegram.Bot
	notifier   *notifierservice.Service
	reconciler *reconcilerservice.Service
	sweeper    *sweeperservice.Service
	db         *repository.Storage
	amqpConn   *amqp.Connection
	amqpCh     *amqp.Channel
	cfg        *config.Config
	logger     *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	amqpConn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	amqpCh, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.GetNotificationRoutingKeys())
	if err != nil {
		_ = amqpConn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(amqpCh)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	chatClient := openrouter.NewClient(cfg.OpenRouter, cfg.Telegram.BotUsername, logger)
	feedClient := tronscan.NewClient(cfg.Tron)

	accessSvc := accessservice.New(db, cacheRedis, cfg.Subscription.FreeMessages, logger)
	paymentSvc := paymentservice.New(db, cfg.Subscription.PriceUSDT, logger)
	bot := telegram.New(api, accessSvc, chatClient, paymentSvc,
		cfg.Telegram.BotUsername, cfg.Tron.WalletAddress, cfg.Subscription.FreeMessages, logger)

	reconcilerSvc := reconcilerservice.New(feedClient, db, publisher, cacheRedis, logger)
	sweeperSvc := sweeperservice.New(db, publisher, cacheRedis, logger)
	notifierSvc := notifierservice.New(bot, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		bot:        bot,
		notifier:   notifierSvc,
		reconciler: reconcilerSvc,
		sweeper:    sweeperSvc,
		db:         db,
		amqpConn:   amqpConn,
		amqpCh:     amqpCh,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Run запускает все контуры приложения и блокируется до отмены контекста
// или фатальной ошибки одного из контуров.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	go a.reconciler.Run(ctx, a.cfg.Subscription.SweepInterval)
	go a.sweeper.Run(ctx, a.cfg.Subscription.SweepInterval)

	if err := rabbitmq.ConsumerMessage(ctx, a.amqpCh, rabbitmq.OutboundQueue, a.notifier.HandleNotification); err != nil {
		return err
	}

	go func() {
		a.logger.Info("telegram long polling started")
		errCh <- a.bot.Run(ctx)
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.amqpCh.Close(); err != nil {
		a.logger.Error("failed to close amqp channel", slog.Any("err", err))
	}
	if err := a.amqpConn.Close(); err != nil {
		a.logger.Error("failed to close amqp connection", slog.Any("err", err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}
}
