package bot

import (
	"testing"
	"time"
)

func TestParseAddArgs(t *testing.T) {
	now := time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		args       string
		wantTitle  string
		wantDesc   string
		wantTarget time.Time
		wantPoints int
		wantErr    bool
	}{
		{
			name:       "title only",
			args:       "Buy milk",
			wantTitle:  "Buy milk",
			wantTarget: now,
		},
		{
			name:       "all parts",
			args:       "Morning run | 5k in the park @2024-03-20 +50",
			wantTitle:  "Morning run",
			wantDesc:   "5k in the park",
			wantTarget: time.Date(2024, time.March, 20, 9, 30, 0, 0, time.UTC),
			wantPoints: 50,
		},
		{
			name:       "tokens anywhere",
			args:       "+20 @2024-02-29 Leap day",
			wantTitle:  "Leap day",
			wantTarget: time.Date(2024, time.February, 29, 9, 30, 0, 0, time.UTC),
			wantPoints: 20,
		},
		{
			name:       "empty description",
			args:       "Read |",
			wantTitle:  "Read",
			wantTarget: now,
		},
		{name: "bad date", args: "Read @2024-02-30", wantErr: true},
		{name: "bad points", args: "Read +lots", wantErr: true},
		{name: "zero points", args: "Read +0", wantErr: true},
		{name: "no title", args: "| only description", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAddArgs(tt.args, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Title != tt.wantTitle {
				t.Errorf("title %q, want %q", got.Title, tt.wantTitle)
			}
			desc := ""
			if got.Description != nil {
				desc = *got.Description
			}
			if desc != tt.wantDesc {
				t.Errorf("description %q, want %q", desc, tt.wantDesc)
			}
			if !got.Target.Equal(tt.wantTarget) {
				t.Errorf("target %v, want %v", got.Target, tt.wantTarget)
			}
			if got.Points != tt.wantPoints {
				t.Errorf("points %d, want %d", got.Points, tt.wantPoints)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"5", 5, false},
		{" #12 ", 12, false},
		{"0", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data, kind, arg string
	}{
		{"day:2024-03-15", "day", "2024-03-15"},
		{"month:2024-03", "month", "2024-03"},
		{"done:7", "done", "7"},
		{"noop", "noop", ""},
	}

	for _, tt := range tests {
		kind, arg := parseCallback(tt.data)
		if kind != tt.kind || arg != tt.arg {
			t.Errorf("parseCallback(%q) = %q, %q", tt.data, kind, arg)
		}
	}
}

func TestMonthSelection(t *testing.T) {
	b := newTestBot(t)

	if got := b.monthSelection(2024, time.March); got.Day != 15 {
		t.Errorf("current month should select today, got %+v", got)
	}
	if got := b.monthSelection(2024, time.April); got.Day != 0 {
		t.Errorf("other month should select nothing, got %+v", got)
	}
}

func TestParseMonthCallback(t *testing.T) {
	b := newTestBot(t)

	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{"2024-02-29", "2024-02-29", false},
		{"2024-03", "2024-03-15", false},
		{"2024-04", "2024-04-00", false},
		{"2024-13", "", true},
	}

	for _, tt := range tests {
		got, err := b.parseMonthCallback(tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMonthCallback(%q) error = %v", tt.arg, err)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("parseMonthCallback(%q) = %s, want %s", tt.arg, got, tt.want)
		}
	}
}
