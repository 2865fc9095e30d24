package domain

import "time"

// CalendarEvent is a read-only event from an external calendar. It is
// never stored locally and lives for a single query.
type CalendarEvent struct {
	ID       string
	Title    string
	Begin    time.Time
	End      time.Time
	AllDay   bool
	Location string
	Source   string
}

// FormatTime returns formatted time for display
func (e *CalendarEvent) FormatTime() string {
	if e.AllDay {
		return "All day"
	}
	if e.End.IsZero() {
		return e.Begin.Format("15:04")
	}
	return e.Begin.Format("15:04") + "-" + e.End.Format("15:04")
}

// DisplayTitle falls back to a placeholder for untitled events.
func (e *CalendarEvent) DisplayTitle() string {
	if e.Title == "" {
		return "(untitled)"
	}
	return e.Title
}

// CalendarAccess reports whether calendar data may be read. Message
// carries the reason when access is not granted.
type CalendarAccess struct {
	Granted bool
	// DeniedPermanently means retrying will not help until the
	// credentials or sharing settings are changed.
	DeniedPermanently bool
	Message           string
}
