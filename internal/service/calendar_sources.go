package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tazhate/gamecal/internal/clients/caldav"
	"github.com/tazhate/gamecal/internal/clients/icsfeed"
	"github.com/tazhate/gamecal/internal/domain"
)

// CalDAVSource reads one CalDAV calendar.
type CalDAVSource struct {
	client       *caldav.Client
	calendarPath string
	location     *time.Location
}

func NewCalDAVSource(client *caldav.Client, calendarPath string, loc *time.Location) *CalDAVSource {
	if loc == nil {
		loc = time.Local
	}
	return &CalDAVSource{client: client, calendarPath: calendarPath, location: loc}
}

func (s *CalDAVSource) Name() string {
	return "caldav"
}

func (s *CalDAVSource) EventsBetween(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	events, err := s.client.GetEvents(ctx, s.calendarPath, from, to)
	if err != nil {
		switch {
		case errors.Is(err, caldav.ErrNotConfigured):
			return nil, fmt.Errorf("%w: %v", ErrCalendarNotConfigured, err)
		case errors.Is(err, caldav.ErrAccessDenied):
			return nil, fmt.Errorf("%w: %v", ErrCalendarAccessDenied, err)
		}
		return nil, err
	}

	out := make([]domain.CalendarEvent, 0, len(events))
	for _, e := range events {
		begin, end := e.StartTime, e.EndTime
		if e.AllDay {
			// DATE values carry no zone; keep the calendar date in local time.
			begin = time.Date(begin.Year(), begin.Month(), begin.Day(), 0, 0, 0, 0, s.location)
			if !end.IsZero() {
				end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, s.location)
			} else {
				end = begin.AddDate(0, 0, 1)
			}
		} else {
			begin = begin.In(s.location)
			end = end.In(s.location)
		}
		// Servers may match DATE values in UTC, which can pull in a
		// neighbouring day once re-anchored to local midnight.
		if !overlaps(begin, end, from, to) {
			continue
		}
		out = append(out, domain.CalendarEvent{
			ID:       e.UID,
			Title:    e.Summary,
			Begin:    begin,
			End:      end,
			AllDay:   e.AllDay,
			Location: e.Location,
			Source:   s.Name(),
		})
	}
	return out, nil
}

// ICSSource reads an ICS subscription feed.
type ICSSource struct {
	feed *icsfeed.Feed
}

func NewICSSource(feed *icsfeed.Feed) *ICSSource {
	return &ICSSource{feed: feed}
}

func (s *ICSSource) Name() string {
	return "ics"
}

func (s *ICSSource) EventsBetween(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	occ, err := s.feed.EventsBetween(ctx, from, to)
	if err != nil {
		if errors.Is(err, icsfeed.ErrAccessDenied) {
			return nil, fmt.Errorf("%w: %v", ErrCalendarAccessDenied, err)
		}
		return nil, err
	}

	out := make([]domain.CalendarEvent, 0, len(occ))
	for _, o := range occ {
		out = append(out, domain.CalendarEvent{
			ID:       o.UID + "@" + o.Start.Format(time.RFC3339),
			Title:    o.Summary,
			Begin:    o.Start,
			End:      o.End,
			AllDay:   o.AllDay,
			Location: o.Location,
			Source:   s.Name(),
		})
	}
	return out, nil
}

// overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd). A
// zero-length event counts when it starts inside the window.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
