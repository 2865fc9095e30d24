package bot

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/domain"
)

const noopData = "noop"

var weekdayHeader = [datetime.Columns]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// monthKeyboard renders the 6x7 grid with month navigation. Days with
// todos or events get a dot; the selected day is bracketed. Navigation
// keeps the selected day, clamped to the target month.
func monthKeyboard(sel datetime.Selection, todoMarkers, eventDays map[int]int) tgbotapi.InlineKeyboardMarkup {
	g := sel.Grid()
	selIdx, hasSel := g.IndexOf(sel.Day)
	var rows [][]tgbotapi.InlineKeyboardButton

	prevData, nextData := "month:"+g.Prev().Key(), "month:"+g.Next().Key()
	if hasSel {
		prevData = "month:" + sel.AddMonths(-1).String()
		nextData = "month:" + sel.AddMonths(1).String()
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️", prevData),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", g.Month, g.Year), noopData),
		tgbotapi.NewInlineKeyboardButtonData("▶️", nextData),
	))

	header := make([]tgbotapi.InlineKeyboardButton, 0, datetime.Columns)
	for _, d := range weekdayHeader {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, noopData))
	}
	rows = append(rows, header)

	for r := 0; r < datetime.Rows; r++ {
		row := make([]tgbotapi.InlineKeyboardButton, 0, datetime.Columns)
		for c := 0; c < datetime.Columns; c++ {
			i := r*datetime.Columns + c
			cell, ok := sel.WithCell(i)
			if !ok {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", noopData))
				continue
			}
			label := strconv.Itoa(cell.Day)
			if todoMarkers[cell.Day] > 0 || eventDays[cell.Day] > 0 {
				label += "•"
			}
			if hasSel && i == selIdx {
				label = "[" + label + "]"
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "day:"+cell.String()))
		}
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// dayKeyboard lists the day's todos with toggle and delete buttons, then
// day navigation.
func dayKeyboard(sel datetime.Selection, todos []*domain.Todo) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, t := range todos {
		toggle := tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("✅ %s", truncate(t.Title, 25)),
			fmt.Sprintf("done:%d", t.ID),
		)
		if t.IsCompleted {
			toggle = tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("↩️ %s", truncate(t.Title, 25)),
				fmt.Sprintf("undo:%d", t.ID),
			)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			toggle,
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("del:%d", t.ID)),
		))
		if len(rows) >= 10 {
			break
		}
	}

	prev := sel.Date(time.UTC).AddDate(0, 0, -1)
	next := sel.Date(time.UTC).AddDate(0, 0, 1)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️", "day:"+datetime.SelectionOf(prev).String()),
		tgbotapi.NewInlineKeyboardButtonData("🗓 Month", "month:"+sel.String()),
		tgbotapi.NewInlineKeyboardButtonData("▶️", "day:"+datetime.SelectionOf(next).String()),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
