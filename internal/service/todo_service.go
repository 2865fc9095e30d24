package service

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/domain"
	"github.com/tazhate/gamecal/internal/storage"
	"github.com/tazhate/gamecal/internal/widget"
)

var (
	ErrTodoNotFound = errors.New("todo not found")
	ErrInvalidTodo  = errors.New("invalid todo")
)

type TodoService struct {
	storage *storage.Storage
	clock   datetime.Clock
}

func NewTodoService(s *storage.Storage, clock datetime.Clock) *TodoService {
	if clock == nil {
		clock = datetime.SystemClock{}
	}
	return &TodoService{storage: s, clock: clock}
}

// Now is the service clock's current time.
func (s *TodoService) Now() time.Time {
	return s.clock.Now()
}

func (s *TodoService) location() *time.Location {
	return s.clock.Now().Location()
}

// Create stores a new todo. Zero points mean the default reward.
func (s *TodoService) Create(title string, description *string, target time.Time, points int) (*domain.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidTodo)
	}
	if points < 0 {
		return nil, fmt.Errorf("%w: reward points cannot be negative", ErrInvalidTodo)
	}
	if points == 0 {
		points = domain.DefaultRewardPoints
	}
	if target.IsZero() {
		target = s.clock.Now()
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if d == "" {
			description = nil
		} else {
			description = &d
		}
	}

	todo := &domain.Todo{
		Title:        title,
		Description:  description,
		TargetDate:   target,
		RewardPoints: points,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.storage.SaveTodo(todo); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}

	return todo, nil
}

func (s *TodoService) Get(id int64) (*domain.Todo, error) {
	todo, err := s.storage.GetTodo(id)
	if err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	if todo == nil {
		return nil, ErrTodoNotFound
	}
	return todo, nil
}

// Update saves todo's fields. Zero points mean the default reward, as in
// Create.
func (s *TodoService) Update(todo *domain.Todo) error {
	if _, err := s.Get(todo.ID); err != nil {
		return err
	}
	todo.Title = strings.TrimSpace(todo.Title)
	if todo.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTodo)
	}
	if todo.RewardPoints < 0 {
		return fmt.Errorf("%w: reward points cannot be negative", ErrInvalidTodo)
	}
	if todo.RewardPoints == 0 {
		todo.RewardPoints = domain.DefaultRewardPoints
	}
	if err := s.storage.UpdateTodo(todo); err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return nil
}

// SetCompleted flips the completion flag, which adds or removes the
// todo's points from the score.
func (s *TodoService) SetCompleted(id int64, done bool) (*domain.Todo, error) {
	todo, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.storage.SetTodoCompleted(id, done); err != nil {
		return nil, fmt.Errorf("set completed: %w", err)
	}
	todo.IsCompleted = done
	return todo, nil
}

func (s *TodoService) Delete(id int64) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.storage.DeleteTodo(id)
}

// ListForDay returns the todos of t's local day.
func (s *TodoService) ListForDay(t time.Time) ([]*domain.Todo, error) {
	start, end := datetime.DayRangeMillis(t.UnixMilli(), s.location())
	return s.storage.ListTodosBetween(start, end)
}

func (s *TodoService) ListToday() ([]*domain.Todo, error) {
	return s.ListForDay(s.clock.Now())
}

func (s *TodoService) Score() (int, error) {
	return s.storage.TotalScore()
}

func (s *TodoService) OpenCount() (int, error) {
	return s.storage.CountOpenTodos()
}

// TodaySummary builds the widget view of today's todos.
func (s *TodoService) TodaySummary(limit int) (widget.Summary, error) {
	todos, err := s.ListToday()
	if err != nil {
		return widget.Summary{}, fmt.Errorf("list today: %w", err)
	}
	return widget.Summarize(WidgetItems(todos), limit), nil
}

// MonthMarkers counts todos per day of the month.
func (s *TodoService) MonthMarkers(year int, month time.Month) (map[int]int, error) {
	loc := s.location()
	r := datetime.MonthRange(year, month, loc)
	todos, err := s.storage.ListTodosBetween(r.Start.UnixMilli(), r.End.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list month: %w", err)
	}

	markers := make(map[int]int)
	for _, t := range todos {
		markers[t.TargetDate.In(loc).Day()]++
	}
	return markers, nil
}

func WidgetItems(todos []*domain.Todo) []widget.Item {
	items := make([]widget.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, widget.Item{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.DescriptionText(),
			Done:        t.IsCompleted,
		})
	}
	return items
}

func (s *TodoService) FormatTodoList(todos []*domain.Todo) string {
	if len(todos) == 0 {
		return "No todos"
	}

	loc := s.location()
	var sb strings.Builder
	for _, t := range todos {
		sb.WriteString(fmt.Sprintf("%s #%d %s <i>%s · +%d</i>\n",
			t.StatusEmoji(), t.ID, html.EscapeString(t.Title), t.TargetDate.In(loc).Format("15:04"), t.RewardPoints))
	}
	return sb.String()
}
