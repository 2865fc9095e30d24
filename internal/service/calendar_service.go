package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/domain"
)

var (
	// ErrCalendarAccessDenied marks source errors caused by a refused
	// calendar permission.
	ErrCalendarAccessDenied = errors.New("calendar access denied")
	// ErrCalendarNotConfigured marks a source that lacks credentials.
	ErrCalendarNotConfigured = errors.New("calendar not configured")
)

const notConfiguredMessage = "no calendar source is configured"

// EventSource is a read-only calendar backend.
type EventSource interface {
	Name() string
	EventsBetween(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error)
}

// DayEvents is the calendar view of one day. Error is set when the query
// failed for a reason other than access; Events is then empty.
type DayEvents struct {
	Day    datetime.Range
	Access domain.CalendarAccess
	Events []domain.CalendarEvent
	Error  string
}

// CalendarService reads events from the configured sources
type CalendarService struct {
	clock   datetime.Clock
	sources []EventSource

	mu     sync.Mutex
	access domain.CalendarAccess
}

func NewCalendarService(clock datetime.Clock, sources ...EventSource) *CalendarService {
	if clock == nil {
		clock = datetime.SystemClock{}
	}
	s := &CalendarService{clock: clock, sources: sources}
	if len(sources) == 0 {
		s.access = domain.CalendarAccess{Message: notConfiguredMessage}
	} else {
		s.access = domain.CalendarAccess{Granted: true}
	}
	return s
}

// IsConfigured returns true if at least one source is set
func (s *CalendarService) IsConfigured() bool {
	return len(s.sources) > 0
}

// Access returns the permission state seen by the latest query.
func (s *CalendarService) Access() domain.CalendarAccess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *CalendarService) setAccess(a domain.CalendarAccess) {
	s.mu.Lock()
	s.access = a
	s.mu.Unlock()
}

// EventsForDay returns events of t's local day ordered by start.
func (s *CalendarService) EventsForDay(ctx context.Context, t time.Time) DayEvents {
	r := datetime.DayRange(t.In(s.clock.Now().Location()))
	return s.EventsIn(ctx, r)
}

func (s *CalendarService) EventsToday(ctx context.Context) DayEvents {
	return s.EventsForDay(ctx, s.clock.Now())
}

// EventsIn queries every source for [r.Start, r.End). Any failing source
// empties the result.
func (s *CalendarService) EventsIn(ctx context.Context, r datetime.Range) DayEvents {
	out := DayEvents{Day: r, Events: []domain.CalendarEvent{}}

	if len(s.sources) == 0 {
		out.Access = domain.CalendarAccess{Message: notConfiguredMessage}
		return out
	}

	var events []domain.CalendarEvent
	for _, src := range s.sources {
		got, err := src.EventsBetween(ctx, r.Start, r.End)
		if err != nil {
			if errors.Is(err, ErrCalendarNotConfigured) {
				out.Access = domain.CalendarAccess{Message: err.Error()}
				s.setAccess(out.Access)
				log.WithError(err).WithField("source", src.Name()).Warn("calendar source not configured")
				return out
			}
			if errors.Is(err, ErrCalendarAccessDenied) {
				out.Access = domain.CalendarAccess{DeniedPermanently: true, Message: err.Error()}
				s.setAccess(out.Access)
				log.WithError(err).WithField("source", src.Name()).Warn("calendar access denied")
				return out
			}
			out.Access = domain.CalendarAccess{Granted: true}
			out.Error = fmt.Sprintf("%s: %v", src.Name(), err)
			s.setAccess(out.Access)
			log.WithError(err).WithField("source", src.Name()).Error("calendar query failed")
			return out
		}
		events = append(events, got...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Begin.Before(events[j].Begin)
	})

	out.Access = domain.CalendarAccess{Granted: true}
	if events != nil {
		out.Events = events
	}
	s.setAccess(out.Access)
	return out
}

// MonthEventDays counts events per day of the month. Multi-day events
// count on each day they touch.
func (s *CalendarService) MonthEventDays(ctx context.Context, year int, month time.Month) (map[int]int, error) {
	loc := s.clock.Now().Location()
	r := datetime.MonthRange(year, month, loc)

	view := s.EventsIn(ctx, r)
	if !view.Access.Granted {
		return nil, fmt.Errorf("%w: %s", ErrCalendarAccessDenied, view.Access.Message)
	}
	if view.Error != "" {
		return nil, errors.New(view.Error)
	}

	days := make(map[int]int)
	for _, e := range view.Events {
		start := e.Begin.In(loc)
		end := e.End.In(loc)
		if !end.After(start) {
			end = start.Add(time.Nanosecond)
		}
		for d := datetime.DayRange(start); d.Start.Before(end) && d.Start.Before(r.End); d = datetime.DayRange(d.End) {
			if r.Contains(d.Start) {
				days[d.Start.Day()]++
			}
		}
	}
	return days, nil
}

func (s *CalendarService) FormatDay(view DayEvents) string {
	switch {
	case !view.Access.Granted:
		msg := "Calendar access is required to show events."
		if view.Access.DeniedPermanently {
			msg += "\nAccess was refused. Check the calendar credentials in the settings."
		}
		if view.Access.Message != "" {
			msg += "\n<i>" + html.EscapeString(view.Access.Message) + "</i>"
		}
		return msg
	case view.Error != "":
		return "Error: " + view.Error
	case len(view.Events) == 0:
		return "No events on this day."
	}

	var text string
	for _, e := range view.Events {
		text += fmt.Sprintf("🗓 %s %s", e.FormatTime(), html.EscapeString(e.DisplayTitle()))
		if e.Location != "" {
			text += " 📍 " + html.EscapeString(e.Location)
		}
		text += "\n"
	}
	return text
}
