package datetime

import (
	"fmt"
	"time"
)

const selectionLayout = "2006-01-02"

// Selection is the day currently picked in a month view.
type Selection struct {
	Year  int
	Month time.Month
	Day   int
}

// SelectionOf selects t's date in t's location.
func SelectionOf(t time.Time) Selection {
	y, m, d := t.Date()
	return Selection{Year: y, Month: m, Day: d}
}

func ParseSelection(s string) (Selection, error) {
	t, err := time.Parse(selectionLayout, s)
	if err != nil {
		return Selection{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return SelectionOf(t), nil
}

func (s Selection) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", s.Year, int(s.Month), s.Day)
}

func (s Selection) Grid() Grid {
	return NewGrid(s.Year, s.Month)
}

func (s Selection) Date(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(s.Year, s.Month, s.Day, 0, 0, 0, 0, loc)
}

func (s Selection) Range(loc *time.Location) Range {
	return DayRange(s.Date(loc))
}

// WithCell moves the selection to cell i of its month grid. Blank cells
// are rejected.
func (s Selection) WithCell(i int) (Selection, bool) {
	day, ok := s.Grid().Day(i)
	if !ok {
		return s, false
	}
	s.Day = day
	return s, true
}

// AddMonths shifts by n months, clamping the day to the target month's
// length (Jan 31 + 1 month is the last day of February).
func (s Selection) AddMonths(n int) Selection {
	first := time.Date(s.Year, s.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	out := Selection{Year: first.Year(), Month: first.Month(), Day: s.Day}
	if last := DaysInMonth(out.Year, out.Month); out.Day > last {
		out.Day = last
	}
	return out
}
