package datetime

import (
	"fmt"
	"time"
)

const (
	Columns = 7
	Rows    = 6
	Cells   = Columns * Rows
)

// Grid is a Sunday-first month layout of 42 cells. A cell holds a day
// number, or 0 when it is blank.
type Grid struct {
	Year          int
	Month         time.Month
	LeadingBlanks int
	DaysInMonth   int
	Cells         [Cells]int
}

// DaysInMonth returns the last day of the given month, leap years included.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NewGrid lays out the month. Out-of-range months normalize the way
// time.Date does, so month 13 of 2023 is January 2024.
func NewGrid(year int, month time.Month) Grid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	g := Grid{
		Year:          first.Year(),
		Month:         first.Month(),
		LeadingBlanks: int(first.Weekday()),
	}
	g.DaysInMonth = DaysInMonth(g.Year, g.Month)

	for i := 0; i < Cells; i++ {
		day := i - g.LeadingBlanks + 1
		if day >= 1 && day <= g.DaysInMonth {
			g.Cells[i] = day
		}
	}
	return g
}

// Day returns the day number at cell i.
func (g Grid) Day(i int) (int, bool) {
	if i < 0 || i >= Cells {
		return 0, false
	}
	d := g.Cells[i]
	return d, d != 0
}

// IndexOf returns the cell that holds day.
func (g Grid) IndexOf(day int) (int, bool) {
	if day < 1 || day > g.DaysInMonth {
		return 0, false
	}
	return day - 1 + g.LeadingBlanks, true
}

func (g Grid) Prev() Grid {
	return NewGrid(g.Year, g.Month-1)
}

func (g Grid) Next() Grid {
	return NewGrid(g.Year, g.Month+1)
}

// Key formats the grid's month as YYYY-MM.
func (g Grid) Key() string {
	return fmt.Sprintf("%04d-%02d", g.Year, int(g.Month))
}

// ParseMonth parses a YYYY-MM key.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse month %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}
