package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tazhate/gamecal/config"
	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/service"
	"github.com/tazhate/gamecal/internal/storage"
)

var testNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	st, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	clock := datetime.ClockFunc(func() time.Time { return testNow })
	return &Bot{
		cfg: &config.Config{
			OwnerTelegramID: 1,
			APIUsername:     "admin",
			APIPassword:     "secret",
			WidgetLimit:     6,
			Timezone:        time.UTC,
		},
		todoService:     service.NewTodoService(st, clock),
		calendarService: service.NewCalendarService(clock),
	}
}

type apiResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (int, apiResult) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res apiResult
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode %s %s: %v", method, target, err)
		}
	}
	return rec.Code, res
}

func TestHealth(t *testing.T) {
	b := newTestBot(t)
	rec := httptest.NewRecorder()
	b.apiHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	b := newTestBot(t)
	h := b.apiHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/score", nil)
	req.SetBasicAuth("admin", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
}

func TestAPIDisabledWithoutCredentials(t *testing.T) {
	b := newTestBot(t)
	b.cfg.APIPassword = ""

	code, _ := doRequest(t, b.apiHandler(), http.MethodGet, "/api/score", "")
	if code != http.StatusNotFound {
		t.Errorf("status %d, want 404", code)
	}
}

func TestTodoLifecycle(t *testing.T) {
	b := newTestBot(t)
	h := b.apiHandler()

	code, res := doRequest(t, h, http.MethodPost, "/api/todos",
		`{"title":"Run","description":"5k","date":"2024-03-16","reward_points":50}`)
	if code != http.StatusOK || !res.Success {
		t.Fatalf("create: %d %s", code, res.Error)
	}
	var created TodoResponse
	json.Unmarshal(res.Data, &created)
	if created.TargetDate != "2024-03-16T09:30:00Z" || created.RewardPoints != 50 {
		t.Fatalf("unexpected todo %+v", created)
	}

	_, res = doRequest(t, h, http.MethodGet, "/api/todos?date=2024-03-16", "")
	var list []TodoResponse
	json.Unmarshal(res.Data, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list %+v", list)
	}

	_, res = doRequest(t, h, http.MethodGet, "/api/todos", "")
	list = nil
	json.Unmarshal(res.Data, &list)
	if len(list) != 0 {
		t.Fatalf("today should be empty, got %+v", list)
	}

	id := "/api/todo/" + jsonInt(created.ID)
	code, res = doRequest(t, h, http.MethodPost, id+"/done", "")
	if code != http.StatusOK {
		t.Fatalf("done: %d %s", code, res.Error)
	}

	_, res = doRequest(t, h, http.MethodGet, "/api/score", "")
	var score ScoreResponse
	json.Unmarshal(res.Data, &score)
	if score.Score != 50 || score.Open != 0 {
		t.Errorf("score %+v", score)
	}

	code, res = doRequest(t, h, http.MethodPut, id, `{"title":"Long run","date":"2024-03-15"}`)
	if code != http.StatusOK {
		t.Fatalf("update: %d %s", code, res.Error)
	}
	var updated TodoResponse
	json.Unmarshal(res.Data, &updated)
	if updated.Title != "Long run" || updated.TargetDate != "2024-03-15T09:30:00Z" || !updated.IsCompleted {
		t.Errorf("updated %+v", updated)
	}

	code, _ = doRequest(t, h, http.MethodDelete, id, "")
	if code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	code, _ = doRequest(t, h, http.MethodGet, id, "")
	if code != http.StatusNotFound {
		t.Errorf("get deleted: %d, want 404", code)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCreateTodoValidation(t *testing.T) {
	b := newTestBot(t)
	h := b.apiHandler()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"empty title", `{"title":"  "}`, http.StatusBadRequest},
		{"bad date", `{"title":"x","date":"15.03.2024"}`, http.StatusBadRequest},
		{"negative points", `{"title":"x","reward_points":-5}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := doRequest(t, h, http.MethodPost, "/api/todos", tt.body)
			if code != tt.want || res.Success {
				t.Errorf("status %d, want %d", code, tt.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	b := newTestBot(t)
	h := b.apiHandler()

	for _, title := range []string{"a", "b", "c", "d"} {
		doRequest(t, h, http.MethodPost, "/api/todos", `{"title":"`+title+`"}`)
	}
	doRequest(t, h, http.MethodPost, "/api/todo/1/done", "")

	_, res := doRequest(t, h, http.MethodGet, "/api/summary?limit=2", "")
	var sum SummaryResponse
	json.Unmarshal(res.Data, &sum)
	if sum.ProgressPercent != 25 || len(sum.Items) != 2 {
		t.Errorf("summary %+v", sum)
	}

	code, _ := doRequest(t, h, http.MethodGet, "/api/summary?limit=-1", "")
	if code != http.StatusBadRequest {
		t.Errorf("negative limit: %d", code)
	}
}

func TestCalendarMonth(t *testing.T) {
	b := newTestBot(t)
	h := b.apiHandler()

	doRequest(t, h, http.MethodPost, "/api/todos", `{"title":"x","date":"2024-02-29"}`)

	code, res := doRequest(t, h, http.MethodGet, "/api/calendar/month?month=2024-02", "")
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, res.Error)
	}
	var month CalendarMonthResponse
	json.Unmarshal(res.Data, &month)
	if month.Month != "2024-02" || month.LeadingBlanks != 4 || month.DaysInMonth != 29 {
		t.Errorf("month %+v", month)
	}
	if month.Cells[4] != 1 || month.Cells[32] != 29 || month.Cells[33] != 0 {
		t.Errorf("cells %v", month.Cells)
	}
	if month.TodoMarkers[29] != 1 {
		t.Errorf("markers %v", month.TodoMarkers)
	}
	if month.Access == nil || month.Access.Granted {
		t.Errorf("access %+v", month.Access)
	}

	code, _ = doRequest(t, h, http.MethodGet, "/api/calendar/month?month=2024-13", "")
	if code != http.StatusBadRequest {
		t.Errorf("bad month: %d", code)
	}
}

func TestCalendarDayNotConfigured(t *testing.T) {
	b := newTestBot(t)

	code, res := doRequest(t, b.apiHandler(), http.MethodGet, "/api/calendar/day?date=2024-03-10", "")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var day CalendarDayResponse
	json.Unmarshal(res.Data, &day)
	if day.Date != "2024-03-10" || day.Access.Granted || len(day.Events) != 0 {
		t.Errorf("day %+v", day)
	}
	if day.Start != "2024-03-10T00:00:00Z" || day.End != "2024-03-11T00:00:00Z" {
		t.Errorf("range %s - %s", day.Start, day.End)
	}
}

func TestUpdateZeroPointsUsesDefault(t *testing.T) {
	b := newTestBot(t)
	h := b.apiHandler()

	_, res := doRequest(t, h, http.MethodPost, "/api/todos", `{"title":"Read","reward_points":30}`)
	var created TodoResponse
	json.Unmarshal(res.Data, &created)

	code, res := doRequest(t, h, http.MethodPut, "/api/todo/"+jsonInt(created.ID), `{"reward_points":0}`)
	if code != http.StatusOK {
		t.Fatalf("update: %d %s", code, res.Error)
	}
	var updated TodoResponse
	json.Unmarshal(res.Data, &updated)
	if updated.RewardPoints != 100 {
		t.Errorf("points %d, want 100", updated.RewardPoints)
	}
}
