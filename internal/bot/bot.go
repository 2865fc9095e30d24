package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/tazhate/gamecal/config"
	"github.com/tazhate/gamecal/internal/service"
)

const webhookPath = "/bot"

type Bot struct {
	api             *tgbotapi.BotAPI
	cfg             *config.Config
	todoService     *service.TodoService
	calendarService *service.CalendarService
	server          *http.Server
}

func New(cfg *config.Config, todoSvc *service.TodoService, calendarSvc *service.CalendarService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Infof("Authorized as @%s", api.Self.UserName)

	bot := &Bot{
		api:             api,
		cfg:             cfg,
		todoService:     todoSvc,
		calendarService: calendarSvc,
	}

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "today", Description: "📅 Today's todos"},
		{Command: "widget", Description: "🏆 Today's progress"},
		{Command: "month", Description: "🗓 Month calendar"},
		{Command: "events", Description: "📆 Calendar events"},
		{Command: "add", Description: "➕ Add a todo"},
		{Command: "score", Description: "⭐ Total score"},
		{Command: "help", Description: "❓ Command help"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.WithError(err).Warn("failed to set commands")
	}
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.WebhookURL + webhookPath

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	_, err = b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		log.Warnf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Infof("Webhook set to: %s", webhookURL)
	return nil
}

// Start serves the HTTP API and consumes updates until ctx is done. Updates
// arrive through the webhook when WEBHOOK_URL is set, otherwise by long
// polling.
func (b *Bot) Start(ctx context.Context) error {
	mux := b.apiHandler()

	var updates tgbotapi.UpdatesChannel
	if b.cfg.WebhookURL != "" {
		if err := b.SetupWebhook(); err != nil {
			return err
		}
		ch := make(chan tgbotapi.Update, b.api.Buffer)
		mux.HandleFunc(webhookPath, b.webhookHandler(ctx, ch))
		updates = ch
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Warn("delete webhook")
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		log.Info("Polling for updates")
	}

	b.server = &http.Server{
		Addr:              ":" + b.cfg.ServerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting HTTP server on :%s", b.cfg.ServerPort)
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if b.cfg.WebhookURL == "" {
				b.api.StopReceivingUpdates()
			}
			return nil
		case update := <-updates:
			go b.handleUpdate(update)
		}
	}
}

// webhookHandler forwards Telegram updates to ch. Once ctx is done nothing
// consumes ch, so late updates are refused.
func (b *Bot) webhookHandler(ctx context.Context, ch chan<- tgbotapi.Update) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			log.WithError(err).Warn("bad webhook update")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		select {
		case ch <- *update:
		case <-ctx.Done():
			w.WriteHeader(http.StatusServiceUnavailable)
		case <-r.Context().Done():
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// editMessage replaces the text and keyboard of a message the bot sent.
func (b *Bot) editMessage(chatID int64, msgID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Debug("edit message")
	}
}
