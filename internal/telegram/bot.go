// Package telegram реализует транспорт бота: приём обновлений длинным
// опросом, команду /start, кнопки referral|buy|info и обработку текстовых
// сообщений через шлюз доступа с делегированием в чат-бэкенд.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/chatbot-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/chatbot-subscription/internal/metrics"
	"github.com/magabrotheeeer/chatbot-subscription/internal/models"
	"github.com/magabrotheeeer/chatbot-subscription/internal/openrouter"
	"github.com/magabrotheeeer/chatbot-subscription/internal/services/access"
	"github.com/magabrotheeeer/chatbot-subscription/internal/tronscan"
)

// Полезные нагрузки кнопок.
const (
	callbackReferral = "referral"
	callbackBuy      = "buy"
	callbackInfo     = "info"
)

// BotAPI — нужная часть клиента Telegram Bot API.
// *tgbotapi.BotAPI удовлетворяет интерфейсу.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Gate — шлюз доступа к чат-бэкенду.
type Gate interface {
	Register(ctx context.Context, user models.User) error
	Check(ctx context.Context, userID int64) (access.Decision, error)
}

// Chat — бэкенд чат-комплишенов.
type Chat interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Billing — оформление подписки; возвращает сумму к оплате в микроединицах.
type Billing interface {
	RequestSubscription(ctx context.Context, userID int64) (int64, error)
}

// Bot связывает транспорт Telegram со шлюзом доступа и чат-бэкендом.
type Bot struct {
	api           BotAPI
	gate          Gate
	chat          Chat
	billing       Billing
	botUsername   string
	walletAddress string
	freeMessages  int
	log           *slog.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// New создает новый Bot.
func New(api BotAPI, gate Gate, chat Chat, billing Billing,
	botUsername, walletAddress string, freeMessages int, log *slog.Logger) *Bot {
	return &Bot{
		api:           api,
		gate:          gate,
		chat:          chat,
		billing:       billing,
		botUsername:   botUsername,
		walletAddress: walletAddress,
		freeMessages:  freeMessages,
		log:           log,
		limiters:      make(map[int64]*rate.Limiter),
	}
}

// Run читает обновления до отмены контекста. Каждое обновление
// обрабатывается в своей горутине — обработчики не блокируют друг друга.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// SendText отправляет обычное текстовое сообщение; реализует notifier.Sender.
func (b *Bot) SendText(_ context.Context, chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		if update.Message.Command() == "start" {
			b.handleStart(ctx, update.Message)
		}
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user := msg.From
	if user == nil {
		return
	}

	err := b.gate.Register(ctx, models.User{
		UserID:    user.ID,
		Username:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	if err != nil {
		b.log.Error("failed to register user", slog.Int64("user_id", user.ID), sl.Err(err))
		b.reply(msg.Chat.ID, "😕 Что-то пошло не так, попробуйте позже.")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Моя реферальная ссылка", callbackReferral)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Месячная подписка", callbackBuy)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ О боте", callbackInfo)),
	)

	greeting := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"👋 Привет, %s!\n"+
			"Я бот-собеседник на основе ИИ 🤖.\n\n"+
			"🎁 У вас есть %d бесплатных сообщений, чтобы попробовать.\n"+
			"Дальше — месячная подписка и общение без ограничений 💬.\n\n"+
			"Выберите один из вариантов 👇",
		user.FirstName, b.freeMessages))
	greeting.ReplyMarkup = keyboard

	if _, err := b.api.Send(greeting); err != nil {
		b.log.Error("failed to send greeting", sl.Err(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("failed to answer callback query", sl.Err(err))
	}
	if query.Message == nil || query.From == nil {
		return
	}
	chatID := query.Message.Chat.ID

	switch query.Data {
	case callbackReferral:
		link := fmt.Sprintf("https://t.me/%s?start=%d", b.botUsername, query.From.ID)
		b.reply(chatID, fmt.Sprintf("🔗 Ваша реферальная ссылка:\n%s\nПоделитесь ей с друзьями!", link))

	case callbackBuy:
		amount, err := b.billing.RequestSubscription(ctx, query.From.ID)
		if err != nil {
			b.log.Error("failed to request subscription", slog.Int64("user_id", query.From.ID), sl.Err(err))
			b.reply(chatID, "😕 Не получилось оформить подписку, попробуйте позже.")
			return
		}
		notice := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"💵 Отправьте *%s USDT* на адрес:\n\n`%s`\n\n"+
				"⏳ Перевод будет найден автоматически, подписка включится в течение минуты ✅",
			tronscan.FormatAmount(amount), b.walletAddress))
		notice.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.api.Send(notice); err != nil {
			b.log.Error("failed to send buy notice", sl.Err(err))
		}

	case callbackInfo:
		info := tgbotapi.NewMessage(chatID,
			"🤖 *О боте:*\n\n"+
				"Бот-собеседник на основе GPT.\n"+
				fmt.Sprintf("🎁 %d бесплатных сообщений после регистрации.\n", b.freeMessages)+
				"💳 Дальше — месячная подписка и общение без ограничений.")
		info.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.api.Send(info); err != nil {
			b.log.Error("failed to send info", sl.Err(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user := msg.From
	if user == nil {
		return
	}

	if !b.limiter(user.ID).Allow() {
		b.reply(msg.Chat.ID, "⏳ Слишком много запросов, подождите немного.")
		return
	}

	decision, err := b.gate.Check(ctx, user.ID)
	if err != nil {
		b.log.Error("access check failed", slog.Int64("user_id", user.ID), sl.Err(err))
		metrics.MessagesTotal.WithLabelValues("error").Inc()
		b.reply(msg.Chat.ID, "😕 Что-то пошло не так, попробуйте позже.")
		return
	}
	if !decision.Allowed {
		metrics.MessagesTotal.WithLabelValues("denied").Inc()
		b.reply(msg.Chat.ID,
			"⏳ Бесплатные сообщения закончились или подписка истекла.\n"+
				"💳 Оформите подписку через кнопку в /start.")
		return
	}

	if decision.FreeTier {
		metrics.MessagesTotal.WithLabelValues("free").Inc()
	} else {
		metrics.MessagesTotal.WithLabelValues("subscription").Inc()
	}

	reply, err := b.chat.Chat(ctx, msg.Text)
	if err != nil {
		b.log.Error("chat backend call failed", slog.Int64("user_id", user.ID), sl.Err(err))
		b.reply(msg.Chat.ID, chatErrorText(err))
		return
	}

	if decision.FreeTier {
		reply = fmt.Sprintf("%s\n\n💬 Осталось бесплатных сообщений: %d.", reply, decision.Remaining)
	}
	b.reply(msg.Chat.ID, reply)
}

// chatErrorText переводит ошибку чат-бэкенда в короткий дружелюбный текст.
func chatErrorText(err error) string {
	var upstream *openrouter.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return fmt.Sprintf("⚠️ Ошибка от OpenRouter: %s", upstream.Message)
	case errors.Is(err, openrouter.ErrNoCompletion):
		return "⚠️ Не удалось получить корректный ответ от ИИ."
	default:
		return "❌ Произошла ошибка при обращении к ИИ. Попробуйте позже."
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Error("failed to send message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

// limiter возвращает лимитер пользователя: 1 запрос в секунду, всплеск 3.
func (b *Bot) limiter(userID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[userID]
	if !ok {
		l = rate.NewLimiter(1, 3)
		b.limiters[userID] = l
	}
	return l
}
