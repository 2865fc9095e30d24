package bot

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/domain"
	"github.com/tazhate/gamecal/internal/service"
)

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type TodoResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	IsCompleted  bool    `json:"is_completed"`
	TargetDate   string  `json:"target_date"`
	RewardPoints int     `json:"reward_points"`
	CreatedAt    string  `json:"created_at"`
}

type ScoreResponse struct {
	Score int `json:"score"`
	Open  int `json:"open"`
}

type SummaryItemResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Done        bool   `json:"done"`
}

type SummaryResponse struct {
	ProgressPercent int                   `json:"progress_percent"`
	Items           []SummaryItemResponse `json:"items"`
}

type CalendarEventResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Begin    string `json:"begin"`
	End      string `json:"end,omitempty"`
	AllDay   bool   `json:"all_day"`
	Location string `json:"location,omitempty"`
	Source   string `json:"source"`
}

type CalendarAccessResponse struct {
	Granted           bool   `json:"granted"`
	DeniedPermanently bool   `json:"denied_permanently"`
	Message           string `json:"message,omitempty"`
}

type CalendarDayResponse struct {
	Date   string                  `json:"date"`
	Start  string                  `json:"start"`
	End    string                  `json:"end"`
	Access CalendarAccessResponse  `json:"access"`
	Events []CalendarEventResponse `json:"events"`
	Error  string                  `json:"error,omitempty"`
}

type CalendarMonthResponse struct {
	Month         string                  `json:"month"`
	LeadingBlanks int                     `json:"leading_blanks"`
	DaysInMonth   int                     `json:"days_in_month"`
	Cells         [datetime.Cells]int     `json:"cells"`
	TodoMarkers   map[int]int             `json:"todo_markers"`
	EventDays     map[int]int             `json:"event_days,omitempty"`
	Access        *CalendarAccessResponse `json:"access,omitempty"`
	CalendarError string                  `json:"calendar_error,omitempty"`
}

// apiHandler builds the HTTP mux: the health check plus the REST API,
// which is disabled without credentials.
func (b *Bot) apiHandler() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if b.cfg.APIUsername == "" || b.cfg.APIPassword == "" {
		return mux
	}

	// Todos
	mux.HandleFunc("/api/todos", b.basicAuth(b.apiTodos))
	mux.HandleFunc("/api/todo/", b.basicAuth(b.apiTodo))
	mux.HandleFunc("/api/score", b.basicAuth(b.apiScore))
	mux.HandleFunc("/api/summary", b.basicAuth(b.apiSummary))

	// Calendar
	mux.HandleFunc("/api/calendar/day", b.basicAuth(b.apiCalendarDay))
	mux.HandleFunc("/api/calendar/month", b.basicAuth(b.apiCalendarMonth))

	return mux
}

// basicAuth middleware
func (b *Bot) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != b.cfg.APIUsername || password != b.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="gamecal API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *Bot) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (b *Bot) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// todoError maps service errors to HTTP statuses.
func (b *Bot) todoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTodoNotFound):
		b.jsonError(w, "Todo not found", http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidTodo):
		b.jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// dayParam reads ?date=YYYY-MM-DD, defaulting to today.
func (b *Bot) dayParam(r *http.Request) (datetime.Selection, error) {
	if v := r.URL.Query().Get("date"); v != "" {
		return datetime.ParseSelection(v)
	}
	return datetime.SelectionOf(b.todoService.Now()), nil
}

// targetFromDate puts the todo on date at the current time of day.
func (b *Bot) targetFromDate(date string) (time.Time, error) {
	now := b.todoService.Now()
	if date == "" {
		return now, nil
	}
	sel, err := datetime.ParseSelection(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(sel.Year, sel.Month, sel.Day, now.Hour(), now.Minute(), 0, 0, now.Location()), nil
}

// GET /api/todos?date=YYYY-MM-DD - todos of a day
// POST /api/todos - create todo
func (b *Bot) apiTodos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sel, err := b.dayParam(r)
		if err != nil {
			b.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		todos, err := b.todoService.ListForDay(sel.Date(b.todoService.Now().Location()))
		if err != nil {
			b.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		b.jsonResponse(w, b.todosToResponse(todos))

	case http.MethodPost:
		var req struct {
			Title        string  `json:"title"`
			Description  *string `json:"description"`
			Date         string  `json:"date"`
			RewardPoints int     `json:"reward_points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			b.jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		target, err := b.targetFromDate(req.Date)
		if err != nil {
			b.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}

		todo, err := b.todoService.Create(req.Title, req.Description, target, req.RewardPoints)
		if err != nil {
			b.todoError(w, err)
			return
		}
		b.jsonResponse(w, b.todoToResponse(todo))

	default:
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/todo/{id} - get todo
// PUT /api/todo/{id} - update todo
// DELETE /api/todo/{id} - delete todo
// POST /api/todo/{id}/done - complete
// POST /api/todo/{id}/undo - reopen
func (b *Bot) apiTodo(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/todo/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		b.jsonError(w, "Todo ID required", http.StatusBadRequest)
		return
	}

	todoID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		b.jsonError(w, "Invalid todo ID", http.StatusBadRequest)
		return
	}

	if len(parts) > 1 {
		switch parts[1] {
		case "done", "undo":
			if r.Method != http.MethodPost {
				b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			todo, err := b.todoService.SetCompleted(todoID, parts[1] == "done")
			if err != nil {
				b.todoError(w, err)
				return
			}
			b.jsonResponse(w, b.todoToResponse(todo))
		default:
			b.jsonError(w, "Not found", http.StatusNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		todo, err := b.todoService.Get(todoID)
		if err != nil {
			b.todoError(w, err)
			return
		}
		b.jsonResponse(w, b.todoToResponse(todo))

	case http.MethodPut:
		var req struct {
			Title        *string `json:"title"`
			Description  *string `json:"description"`
			Date         *string `json:"date"`
			RewardPoints *int    `json:"reward_points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			b.jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		todo, err := b.todoService.Get(todoID)
		if err != nil {
			b.todoError(w, err)
			return
		}
		if req.Title != nil {
			todo.Title = *req.Title
		}
		if req.Description != nil {
			if d := strings.TrimSpace(*req.Description); d != "" {
				todo.Description = &d
			} else {
				todo.Description = nil
			}
		}
		if req.Date != nil {
			sel, err := datetime.ParseSelection(*req.Date)
			if err != nil {
				b.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
				return
			}
			t := todo.TargetDate.In(b.todoService.Now().Location())
			todo.TargetDate = time.Date(sel.Year, sel.Month, sel.Day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
		}
		if req.RewardPoints != nil {
			todo.RewardPoints = *req.RewardPoints
		}

		if err := b.todoService.Update(todo); err != nil {
			b.todoError(w, err)
			return
		}
		b.jsonResponse(w, b.todoToResponse(todo))

	case http.MethodDelete:
		if err := b.todoService.Delete(todoID); err != nil {
			b.todoError(w, err)
			return
		}
		b.jsonResponse(w, map[string]bool{"deleted": true})

	default:
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/score - total points
func (b *Bot) apiScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	score, err := b.todoService.Score()
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	open, err := b.todoService.OpenCount()
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	b.jsonResponse(w, ScoreResponse{Score: score, Open: open})
}

// GET /api/summary?limit=N - today's widget summary
func (b *Bot) apiSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := b.cfg.WidgetLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			b.jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	summary, err := b.todoService.TodaySummary(limit)
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := SummaryResponse{ProgressPercent: summary.ProgressPercent, Items: []SummaryItemResponse{}}
	for _, it := range summary.Items {
		resp.Items = append(resp.Items, SummaryItemResponse{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Done:        it.Done,
		})
	}
	b.jsonResponse(w, resp)
}

// GET /api/calendar/day?date=YYYY-MM-DD - calendar events of a day
func (b *Bot) apiCalendarDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sel, err := b.dayParam(r)
	if err != nil {
		b.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	view := b.calendarService.EventsIn(r.Context(), sel.Range(b.todoService.Now().Location()))
	resp := CalendarDayResponse{
		Date:   sel.String(),
		Start:  view.Day.Start.Format(time.RFC3339),
		End:    view.Day.End.Format(time.RFC3339),
		Access: accessToResponse(view.Access),
		Events: b.calendarEventsToResponse(view.Events),
		Error:  view.Error,
	}
	b.jsonResponse(w, resp)
}

// GET /api/calendar/month?month=YYYY-MM - month grid with day markers
func (b *Bot) apiCalendarMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := b.todoService.Now()
	year, month := now.Year(), now.Month()
	if v := r.URL.Query().Get("month"); v != "" {
		var err error
		year, month, err = datetime.ParseMonth(v)
		if err != nil {
			b.jsonError(w, "Invalid month format (use YYYY-MM)", http.StatusBadRequest)
			return
		}
	}

	g := datetime.NewGrid(year, month)
	markers, err := b.todoService.MonthMarkers(year, month)
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := CalendarMonthResponse{
		Month:         g.Key(),
		LeadingBlanks: g.LeadingBlanks,
		DaysInMonth:   g.DaysInMonth,
		Cells:         g.Cells,
		TodoMarkers:   markers,
	}

	if b.calendarService.IsConfigured() {
		days, err := b.calendarService.MonthEventDays(r.Context(), year, month)
		if err != nil {
			resp.CalendarError = err.Error()
		}
		resp.EventDays = days
	}
	access := accessToResponse(b.calendarService.Access())
	resp.Access = &access

	b.jsonResponse(w, resp)
}

func accessToResponse(a domain.CalendarAccess) CalendarAccessResponse {
	return CalendarAccessResponse{
		Granted:           a.Granted,
		DeniedPermanently: a.DeniedPermanently,
		Message:           a.Message,
	}
}

func (b *Bot) calendarEventsToResponse(events []domain.CalendarEvent) []CalendarEventResponse {
	result := make([]CalendarEventResponse, 0, len(events))
	for _, e := range events {
		resp := CalendarEventResponse{
			ID:       e.ID,
			Title:    e.DisplayTitle(),
			Begin:    e.Begin.Format(time.RFC3339),
			AllDay:   e.AllDay,
			Location: e.Location,
			Source:   e.Source,
		}
		if !e.End.IsZero() {
			resp.End = e.End.Format(time.RFC3339)
		}
		result = append(result, resp)
	}
	return result
}

func (b *Bot) todosToResponse(todos []*domain.Todo) []TodoResponse {
	result := make([]TodoResponse, 0, len(todos))
	for _, t := range todos {
		result = append(result, b.todoToResponse(t))
	}
	return result
}

func (b *Bot) todoToResponse(t *domain.Todo) TodoResponse {
	loc := b.todoService.Now().Location()
	return TodoResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		IsCompleted:  t.IsCompleted,
		TargetDate:   t.TargetDate.In(loc).Format(time.RFC3339),
		RewardPoints: t.RewardPoints,
		CreatedAt:    t.CreatedAt.In(loc).Format(time.RFC3339),
	}
}
