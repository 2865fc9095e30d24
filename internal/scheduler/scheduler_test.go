package scheduler

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tazhate/gamecal/config"
	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/service"
	"github.com/tazhate/gamecal/internal/storage"
)

type recordingSender struct {
	sent map[int64][]string
	fail bool
}

func (r *recordingSender) SendMessage(chatID int64, text string) error {
	if r.fail {
		return errors.New("send failed")
	}
	if r.sent == nil {
		r.sent = make(map[int64][]string)
	}
	r.sent[chatID] = append(r.sent[chatID], text)
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *service.TodoService) {
	t.Helper()
	st, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	now := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)
	clock := datetime.ClockFunc(func() time.Time { return now })
	todos := service.NewTodoService(st, clock)

	cfg := &config.Config{
		OwnerTelegramID:   1,
		PartnerTelegramID: 2,
		Timezone:          time.UTC,
		MorningTime:       "08:00",
		EveningTime:       "21:30",
		WidgetLimit:       6,
	}
	return New(cfg, todos, service.NewCalendarService(clock)), todos
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:00", "00 08 * * *", false},
		{"21:30", "30 21 * * *", false},
		{"0800", "", true},
	}

	for _, tt := range tests {
		got, err := cronSpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("cronSpec(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("cronSpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMorningWidgetBroadcast(t *testing.T) {
	s, todos := newTestScheduler(t)
	sender := &recordingSender{}
	s.SetSender(sender)

	a, _ := todos.Create("Read", nil, time.Time{}, 0)
	todos.Create("Walk", nil, time.Time{}, 0)
	todos.SetCompleted(a.ID, true)

	s.morningWidget()

	for _, id := range []int64{1, 2} {
		msgs := sender.sent[id]
		if len(msgs) != 1 {
			t.Fatalf("chat %d got %d messages", id, len(msgs))
		}
		if !strings.Contains(msgs[0], "Today 50%") || !strings.Contains(msgs[0], "Walk") {
			t.Errorf("unexpected widget %q", msgs[0])
		}
	}
}

func TestEveningText(t *testing.T) {
	s, todos := newTestScheduler(t)

	text, err := s.eveningText()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Nothing left open") {
		t.Errorf("unexpected text %q", text)
	}

	a, _ := todos.Create("Read", nil, time.Time{}, 40)
	todos.Create("Walk", nil, time.Time{}, 0)
	todos.SetCompleted(a.ID, true)

	text, err = s.eveningText()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Today: 50%", "Score: 40 points", "Open todos: 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %q", want, text)
		}
	}
}

func TestNoSenderIsNoop(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.morningWidget()
	s.eveningScore()
}
