package datetime

import "time"

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// DayRange returns [start of day, start of next day) for t in t's own
// location. The end is one calendar date later, not 24h, so DST days come
// out as 23 or 25 hours long.
func DayRange(t time.Time) Range {
	loc := t.Location()
	y, m, d := t.Date()
	return Range{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d+1, 0, 0, 0, 0, loc),
	}
}

// DayRangeMillis is DayRange over unix milliseconds.
func DayRangeMillis(ms int64, loc *time.Location) (int64, int64) {
	if loc == nil {
		loc = time.Local
	}
	r := DayRange(time.UnixMilli(ms).In(loc))
	return r.Start.UnixMilli(), r.End.UnixMilli()
}

// MonthRange returns [first day 00:00, first day of next month 00:00) in loc.
func MonthRange(year int, month time.Month, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	return Range{
		Start: time.Date(year, month, 1, 0, 0, 0, 0, loc),
		End:   time.Date(year, month+1, 1, 0, 0, 0, 0, loc),
	}
}
