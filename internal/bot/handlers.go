package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/tazhate/gamecal/internal/datetime"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(userID) {
		log.WithField("user_id", userID).Warn("rejected message from unknown user")
		b.SendMessage(chatID, "⛔ Access denied")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	// Plain text is a todo for today
	b.addTodo(chatID, text)
}

// parseCallback splits "kind:arg" callback data.
func parseCallback(data string) (kind, arg string) {
	kind, arg, _ = strings.Cut(data, ":")
	return kind, arg
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID

	if !b.cfg.IsAllowedUser(userID) {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "⛔ Access denied"))
		return
	}
	if callback.Message == nil {
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}

	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID
	ctx := context.Background()

	kind, arg := parseCallback(callback.Data)
	switch kind {
	case "noop":
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))

	case "day":
		sel, err := datetime.ParseSelection(arg)
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "Invalid day"))
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		b.showDay(ctx, chatID, msgID, sel)

	case "month":
		sel, err := b.parseMonthCallback(arg)
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "Invalid month"))
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		text, kb := b.monthView(ctx, sel)
		b.editMessage(chatID, msgID, text, kb)

	case "done", "undo":
		id, err := parseID(arg)
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "Invalid todo"))
			return
		}
		todo, err := b.todoService.SetCompleted(id, kind == "done")
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, todoErrorText(err)))
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, todoSummaryLine(todo)))
		b.showDay(ctx, chatID, msgID, datetime.SelectionOf(todo.TargetDate.In(b.todoService.Now().Location())))

	case "del":
		id, err := parseID(arg)
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "Invalid todo"))
			return
		}
		todo, err := b.todoService.Get(id)
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, todoErrorText(err)))
			return
		}
		if err := b.todoService.Delete(id); err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, todoErrorText(err)))
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, "🗑 Deleted"))
		b.showDay(ctx, chatID, msgID, datetime.SelectionOf(todo.TargetDate.In(b.todoService.Now().Location())))

	default:
		log.WithField("data", callback.Data).Debug("unknown callback")
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
	}
}

func (b *Bot) showDay(ctx context.Context, chatID int64, msgID int, sel datetime.Selection) {
	text, kb, err := b.dayView(ctx, sel)
	if err != nil {
		log.WithError(err).Error("render day")
		return
	}
	b.editMessage(chatID, msgID, text, kb)
}

// parseMonthCallback accepts "YYYY-MM-DD", which keeps a selected day, or
// "YYYY-MM".
func (b *Bot) parseMonthCallback(arg string) (datetime.Selection, error) {
	if sel, err := datetime.ParseSelection(arg); err == nil {
		return sel, nil
	}
	year, month, err := datetime.ParseMonth(arg)
	if err != nil {
		return datetime.Selection{}, err
	}
	return b.monthSelection(year, month), nil
}
