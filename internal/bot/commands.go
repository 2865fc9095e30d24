package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/domain"
	"github.com/tazhate/gamecal/internal/service"
	"github.com/tazhate/gamecal/internal/widget"
)

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(chatID)
	case "add":
		b.cmdAdd(chatID, args)
	case "today":
		b.cmdDay(chatID, "")
	case "day":
		b.cmdDay(chatID, args)
	case "done":
		b.cmdSetCompleted(chatID, args, true)
	case "undo":
		b.cmdSetCompleted(chatID, args, false)
	case "del":
		b.cmdDelete(chatID, args)
	case "score":
		b.cmdScore(chatID)
	case "widget":
		b.cmdWidget(chatID)
	case "month":
		b.cmdMonth(chatID, args)
	case "events":
		b.cmdEvents(chatID, args)
	default:
		b.SendMessage(chatID, "Unknown command. /help for the list")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := msg.From.FirstName
	if name == "" {
		name = msg.From.UserName
	}
	b.SendMessage(msg.Chat.ID, fmt.Sprintf("👋 Hi, %s!\n\nPlan your day, tick off todos and collect points.\n\n/help for the commands", html.EscapeString(name)))
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

<b>Todos</b>
/add title | description @2024-03-15 +50 — add a todo
/today — today's todos
/day 2024-03-15 — todos of a day
/done ID — complete a todo
/undo ID — reopen a todo
/del ID — delete a todo

<b>Progress</b>
/widget — today's progress
/score — total points

<b>Calendar</b>
/month 2024-03 — month grid
/events 2024-03-15 — calendar events

💡 Send plain text to add a todo for today`

	b.SendMessage(chatID, text)
}

// addRequest is a parsed /add argument string.
type addRequest struct {
	Title       string
	Description *string
	Target      time.Time
	Points      int
}

// parseAddArgs parses "title [| description] [@YYYY-MM-DD] [+points]".
// The date keeps now's time of day; without one the todo is for now.
func parseAddArgs(args string, now time.Time) (addRequest, error) {
	req := addRequest{Target: now}

	var words []string
	for _, w := range strings.Fields(args) {
		switch {
		case strings.HasPrefix(w, "@") && len(w) > 1:
			sel, err := datetime.ParseSelection(w[1:])
			if err != nil {
				return req, fmt.Errorf("invalid date %q, use @YYYY-MM-DD", w[1:])
			}
			req.Target = time.Date(sel.Year, sel.Month, sel.Day, now.Hour(), now.Minute(), 0, 0, now.Location())
		case strings.HasPrefix(w, "+") && len(w) > 1:
			points, err := strconv.Atoi(w[1:])
			if err != nil || points <= 0 {
				return req, fmt.Errorf("invalid points %q", w[1:])
			}
			req.Points = points
		default:
			words = append(words, w)
		}
	}

	text := strings.Join(words, " ")
	title, desc, found := strings.Cut(text, "|")
	req.Title = strings.TrimSpace(title)
	if found {
		if d := strings.TrimSpace(desc); d != "" {
			req.Description = &d
		}
	}
	if req.Title == "" {
		return req, errors.New("title is empty")
	}
	return req, nil
}

func (b *Bot) cmdAdd(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Give the todo a title: /add Morning run | 5k @2024-03-15 +50")
		return
	}
	b.addTodo(chatID, args)
}

func (b *Bot) addTodo(chatID int64, args string) {
	req, err := parseAddArgs(args, b.todoService.Now())
	if err != nil {
		b.SendMessage(chatID, "❌ "+html.EscapeString(err.Error()))
		return
	}

	todo, err := b.todoService.Create(req.Title, req.Description, req.Target, req.Points)
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}

	text := fmt.Sprintf("✅ Todo added\n\n<b>#%d</b> %s\n📅 %s · +%d",
		todo.ID, html.EscapeString(todo.Title), todo.TargetDate.Format("02.01.2006"), todo.RewardPoints)
	sel := datetime.SelectionOf(todo.TargetDate)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Done", fmt.Sprintf("done:%d", todo.ID)),
		tgbotapi.NewInlineKeyboardButtonData("📅 Day", "day:"+sel.String()),
	))
	b.SendMessageWithKeyboard(chatID, text, kb)
}

func (b *Bot) cmdDay(chatID int64, args string) {
	sel := datetime.SelectionOf(b.todoService.Now())
	if args != "" {
		var err error
		sel, err = datetime.ParseSelection(args)
		if err != nil {
			b.SendMessage(chatID, "Use /day YYYY-MM-DD")
			return
		}
	}

	text, kb, err := b.dayView(context.Background(), sel)
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}
	b.SendMessageWithKeyboard(chatID, text, kb)
}

// dayView renders a day's todos and, when a calendar is configured, its
// events.
func (b *Bot) dayView(ctx context.Context, sel datetime.Selection) (string, tgbotapi.InlineKeyboardMarkup, error) {
	day := sel.Date(b.todoService.Now().Location())
	todos, err := b.todoService.ListForDay(day)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}

	text := fmt.Sprintf("📅 <b>%s</b>\n\n", day.Format("Monday, 2 January 2006"))
	if len(todos) == 0 {
		text += "No todos for this day."
	} else {
		percent := widget.Summarize(service.WidgetItems(todos), 0).ProgressPercent
		text += fmt.Sprintf("Progress: %d%%\n\n", percent)
		text += b.todoService.FormatTodoList(todos)
	}

	if b.calendarService != nil && b.calendarService.IsConfigured() {
		view := b.calendarService.EventsForDay(ctx, day)
		text += "\n\n<b>Events</b>\n" + b.calendarService.FormatDay(view)
	}

	return text, dayKeyboard(sel, todos), nil
}

func parseID(args string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args)
	}
	return id, nil
}

func (b *Bot) cmdSetCompleted(chatID int64, args string, done bool) {
	id, err := parseID(args)
	if err != nil {
		b.SendMessage(chatID, "Give the todo ID: /done 5")
		return
	}

	todo, err := b.todoService.SetCompleted(id, done)
	if err != nil {
		b.SendMessage(chatID, "❌ "+todoErrorText(err))
		return
	}

	if done {
		b.SendMessage(chatID, fmt.Sprintf("🎉 Done: %s (+%d)", html.EscapeString(todo.Title), todo.RewardPoints))
	} else {
		b.SendMessage(chatID, fmt.Sprintf("↩️ Reopened: %s (-%d)", html.EscapeString(todo.Title), todo.RewardPoints))
	}
}

func (b *Bot) cmdDelete(chatID int64, args string) {
	id, err := parseID(args)
	if err != nil {
		b.SendMessage(chatID, "Give the todo ID: /del 5")
		return
	}
	if err := b.todoService.Delete(id); err != nil {
		b.SendMessage(chatID, "❌ "+todoErrorText(err))
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("🗑 Todo #%d deleted", id))
}

func todoErrorText(err error) string {
	if errors.Is(err, service.ErrTodoNotFound) {
		return "Todo not found"
	}
	return html.EscapeString(err.Error())
}

func (b *Bot) cmdScore(chatID int64) {
	score, err := b.todoService.Score()
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}
	open, err := b.todoService.OpenCount()
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("⭐ <b>Score: %d</b>\nOpen todos: %d", score, open))
}

func (b *Bot) cmdWidget(chatID int64) {
	summary, err := b.todoService.TodaySummary(b.cfg.WidgetLimit)
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}
	b.SendMessage(chatID, widget.Render(summary))
}

func (b *Bot) cmdMonth(chatID int64, args string) {
	sel := datetime.SelectionOf(b.todoService.Now())
	if args != "" {
		year, month, err := datetime.ParseMonth(args)
		if err != nil {
			b.SendMessage(chatID, "Use /month YYYY-MM")
			return
		}
		sel = b.monthSelection(year, month)
	}

	text, kb := b.monthView(context.Background(), sel)
	b.SendMessageWithKeyboard(chatID, text, kb)
}

// monthSelection highlights today when it falls in the month, and nothing
// otherwise.
func (b *Bot) monthSelection(year int, month time.Month) datetime.Selection {
	today := datetime.SelectionOf(b.todoService.Now())
	if today.Year == year && today.Month == month {
		return today
	}
	return datetime.Selection{Year: year, Month: month}
}

func (b *Bot) monthView(ctx context.Context, sel datetime.Selection) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("🗓 <b>%s %d</b>\nPick a day.", sel.Month, sel.Year)

	markers, err := b.todoService.MonthMarkers(sel.Year, sel.Month)
	if err != nil {
		log.WithError(err).Error("month markers")
	}

	var eventDays map[int]int
	if b.calendarService != nil && b.calendarService.IsConfigured() {
		eventDays, err = b.calendarService.MonthEventDays(ctx, sel.Year, sel.Month)
		if err != nil {
			text += "\n<i>Calendar events are unavailable.</i>"
		}
	}

	return text, monthKeyboard(sel, markers, eventDays)
}

func (b *Bot) cmdEvents(chatID int64, args string) {
	day := b.todoService.Now()
	if args != "" {
		sel, err := datetime.ParseSelection(args)
		if err != nil {
			b.SendMessage(chatID, "Use /events YYYY-MM-DD")
			return
		}
		day = sel.Date(day.Location())
	}

	view := b.calendarService.EventsForDay(context.Background(), day)
	text := fmt.Sprintf("📆 <b>%s</b>\n\n", day.Format("Monday, 2 January 2006")) + b.calendarService.FormatDay(view)
	b.SendMessage(chatID, text)
}

// todoSummaryLine is the compact form used in callback answers.
func todoSummaryLine(t *domain.Todo) string {
	return fmt.Sprintf("%s %s", t.StatusEmoji(), truncate(t.Title, 40))
}
