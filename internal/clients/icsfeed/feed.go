package icsfeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

// ErrAccessDenied is returned when the feed answers 401 or 403.
var ErrAccessDenied = errors.New("feed refused access")

const maxOccurrencesPerEvent = 1000

// Occurrence is one concrete instance of a feed event.
type Occurrence struct {
	UID      string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// Feed reads events from an ICS subscription URL.
type Feed struct {
	url      string
	location *time.Location
	client   *http.Client
}

func New(url string, loc *time.Location) *Feed {
	if loc == nil {
		loc = time.Local
	}
	return &Feed{
		url:      url,
		location: loc,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// EventsBetween fetches the feed and returns occurrences overlapping
// [from, to), recurrences expanded, sorted by start.
func (f *Feed) EventsBetween(ctx context.Context, from, to time.Time) ([]Occurrence, error) {
	body, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Expand(body, from, to, f.location)
}

func (f *Feed) fetch(ctx context.Context) ([]byte, error) {
	if f.url == "" {
		return nil, errors.New("feed URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrAccessDenied, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return body, nil
}

// Expand parses an ICS payload and returns occurrences overlapping
// [from, to) in loc.
func Expand(body []byte, from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if !from.Before(to) {
		return nil, errors.New("expand: range end must be after start")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ICS: %w", err)
	}

	out := []Occurrence{}
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			log.WithError(err).Debug("ics: skipping vevent")
			continue
		}
		out = append(out, ev.occurrences(from, to, loc)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

type parsedEvent struct {
	Occurrence
	rrule   string
	exDates []time.Time
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (parsedEvent, error) {
	var ev parsedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}

	// Date-only values have no 'T' and mark all-day events.
	if !strings.Contains(dtStart.Value, "T") {
		ev.AllDay = true
		start, err := time.ParseInLocation("20060102", dtStart.Value, loc)
		if err != nil {
			return ev, fmt.Errorf("parse DTSTART: %w", err)
		}
		ev.Start = start
		ev.End = start.AddDate(0, 0, 1)
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if end, err := time.ParseInLocation("20060102", p.Value, loc); err == nil && end.After(start) {
				ev.End = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return ev, fmt.Errorf("parse DTSTART: %w", err)
		}
		ev.Start = start
		ev.End = start
		if end, err := ve.GetEndAt(); err == nil && end.After(start) {
			ev.End = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(strings.TrimSpace(part), loc); err == nil {
				ev.exDates = append(ev.exDates, t)
			}
		}
	}

	return ev, nil
}

func (ev parsedEvent) occurrences(from, to time.Time, loc *time.Location) []Occurrence {
	if ev.rrule == "" {
		if overlaps(ev.Start, ev.End, from, to) {
			return []Occurrence{ev.at(ev.Start, ev.End, loc)}
		}
		return nil
	}

	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		log.WithError(err).WithField("uid", ev.UID).Warn("ics: bad RRULE")
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	// Widen the lower bound by the duration so occurrences that started
	// before from but are still running are kept.
	starts := set.Between(from.Add(-dur), to, true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}

	var out []Occurrence
	for _, s := range starts {
		e := s.Add(dur)
		if ev.AllDay {
			e = s.AddDate(0, 0, int(dur.Hours()+12)/24)
		}
		if overlaps(s, e, from, to) {
			out = append(out, ev.at(s, e, loc))
		}
	}
	return out
}

func (ev parsedEvent) at(start, end time.Time, loc *time.Location) Occurrence {
	o := ev.Occurrence
	o.Start = start.In(loc)
	o.End = end.In(loc)
	return o
}

// overlaps reports whether [aStart, aEnd) meets [bStart, bEnd). Zero-length
// events count when their instant lies inside b.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Equal(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
