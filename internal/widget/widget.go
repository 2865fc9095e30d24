package widget

import (
	"fmt"
	"html"
	"strings"
)

// DefaultLimit is how many items fit on the widget.
const DefaultLimit = 6

type Item struct {
	ID          int64
	Title       string
	Description string
	Done        bool
}

// Summary is the today widget's view model. It is recomputed on demand.
type Summary struct {
	ProgressPercent int
	Items           []Item
}

// Summarize computes floor(100*done/total), or 0 for no items, and keeps
// the first limit items in their original order.
func Summarize(items []Item, limit int) Summary {
	done := 0
	for _, it := range items {
		if it.Done {
			done++
		}
	}

	percent := 0
	if len(items) > 0 {
		percent = done * 100 / len(items)
	}

	if limit < 0 {
		limit = 0
	}
	n := len(items)
	if n > limit {
		n = limit
	}

	out := make([]Item, n)
	copy(out, items[:n])

	return Summary{ProgressPercent: percent, Items: out}
}

// Render formats the summary as the text widget sent to chats.
func Render(s Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Today %d%%</b>\n\n", s.ProgressPercent))

	if len(s.Items) == 0 {
		sb.WriteString("Nothing planned for today.")
		return sb.String()
	}

	for _, it := range s.Items {
		mark := "☐"
		if it.Done {
			mark = "☑"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", mark, html.EscapeString(it.Title)))
	}
	return strings.TrimRight(sb.String(), "\n")
}
