package icsfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

var sampleICS = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//gamecal//test//EN",
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"SUMMARY:Gym",
	"DTSTART:20240205T090000Z",
	"DTEND:20240205T100000Z",
	"RRULE:FREQ=WEEKLY;COUNT=4",
	"EXDATE:20240212T090000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:allday-1",
	"SUMMARY:Holiday",
	"LOCATION:Home",
	"DTSTART;VALUE=DATE:20240214",
	"DTEND;VALUE=DATE:20240215",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:single-1",
	"SUMMARY:Dentist",
	"DTSTART:20240220T140000Z",
	"DTEND:20240220T143000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"SUMMARY:No UID",
	"DTSTART:20240221T140000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:outside",
	"SUMMARY:March",
	"DTSTART:20240310T140000Z",
	"DTEND:20240310T150000Z",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "\r\n")

func summaries(occ []Occurrence) []string {
	out := make([]string, len(occ))
	for i, o := range occ {
		out[i] = o.Start.Format("01-02") + " " + o.Summary
	}
	return out
}

func TestExpandMonth(t *testing.T) {
	from := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	got, err := Expand([]byte(sampleICS), from, to, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"02-05 Gym",
		"02-14 Holiday",
		"02-19 Gym",
		"02-20 Dentist",
		"02-26 Gym",
	}
	if !reflect.DeepEqual(summaries(got), want) {
		t.Fatalf("got %v, want %v", summaries(got), want)
	}
}

func TestExpandSingleDay(t *testing.T) {
	from := time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	got, err := Expand([]byte(sampleICS), from, to, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %v", summaries(got))
	}
	ev := got[0]
	if !ev.AllDay || ev.Location != "Home" || ev.UID != "allday-1" {
		t.Fatalf("unexpected occurrence: %+v", ev)
	}
	if !ev.End.Equal(to) {
		t.Fatalf("end = %v, want %v", ev.End, to)
	}
}

func TestExpandInvalidInput(t *testing.T) {
	now := time.Now()
	if _, err := Expand(nil, now, now.Add(time.Hour), time.UTC); err == nil {
		t.Fatal("expected error for empty body")
	}
	if _, err := Expand([]byte(sampleICS), now, now, time.UTC); err == nil {
		t.Fatal("expected error for empty range")
	}
}

func TestFeedEventsBetween(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := New(srv.URL, time.UTC)
	from := time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)

	got, err := f.EventsBetween(context.Background(), from, from.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Summary != "Dentist" {
		t.Fatalf("got %v", summaries(got))
	}
}

func TestFeedStatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantDenied bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"server error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.UTC).EventsBetween(context.Background(), time.Now(), time.Now().Add(time.Hour))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrAccessDenied) != tt.wantDenied {
				t.Fatalf("err = %v, denied want %v", err, tt.wantDenied)
			}
		})
	}
}
