package caldav

import "time"

// Calendar represents a CalDAV calendar collection
type Calendar struct {
	ID          string // Calendar path
	DisplayName string
	URL         string
}

// Event represents a calendar event
type Event struct {
	UID         string // Unique ID in CalDAV
	Summary     string // Title
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
}
