package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tazhate/gamecal/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			is_completed INTEGER NOT NULL DEFAULT 0,
			target_date INTEGER NOT NULL,
			reward_points INTEGER NOT NULL DEFAULT 100,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_target_date ON todos(target_date)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(is_completed)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// === Todos ===

const todoColumns = `id, title, description, is_completed, target_date, reward_points, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(r rowScanner) (*domain.Todo, error) {
	t := &domain.Todo{}
	var (
		desc   sql.NullString
		target int64
	)
	if err := r.Scan(&t.ID, &t.Title, &desc, &t.IsCompleted, &target, &t.RewardPoints, &t.CreatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		t.Description = &d
	}
	t.TargetDate = time.UnixMilli(target)
	return t, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// SaveTodo inserts t. A todo that already carries an ID replaces the
// stored row with the same ID.
func (s *Storage) SaveTodo(t *domain.Todo) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	var (
		res sql.Result
		err error
	)
	if t.ID == 0 {
		res, err = s.db.Exec(
			`INSERT INTO todos (title, description, is_completed, target_date, reward_points, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.Title, nullableString(t.Description), t.IsCompleted, t.TargetDate.UnixMilli(), t.RewardPoints, t.CreatedAt,
		)
	} else {
		res, err = s.db.Exec(
			`INSERT OR REPLACE INTO todos (id, title, description, is_completed, target_date, reward_points, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, nullableString(t.Description), t.IsCompleted, t.TargetDate.UnixMilli(), t.RewardPoints, t.CreatedAt,
		)
	}
	if err != nil {
		return err
	}
	if t.ID == 0 {
		id, _ := res.LastInsertId()
		t.ID = id
	}
	return nil
}

func (s *Storage) UpdateTodo(t *domain.Todo) error {
	_, err := s.db.Exec(
		`UPDATE todos SET title = ?, description = ?, is_completed = ?, target_date = ?, reward_points = ? WHERE id = ?`,
		t.Title, nullableString(t.Description), t.IsCompleted, t.TargetDate.UnixMilli(), t.RewardPoints, t.ID,
	)
	return err
}

func (s *Storage) SetTodoCompleted(id int64, done bool) error {
	_, err := s.db.Exec(`UPDATE todos SET is_completed = ? WHERE id = ?`, done, id)
	return err
}

func (s *Storage) DeleteTodo(id int64) error {
	_, err := s.db.Exec(`DELETE FROM todos WHERE id = ?`, id)
	return err
}

func (s *Storage) GetTodo(id int64) (*domain.Todo, error) {
	t, err := scanTodo(s.db.QueryRow(`SELECT `+todoColumns+` FROM todos WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListTodosBetween returns todos with start <= target_date < end, both in
// unix milliseconds, open ones first, later targets first within each group.
func (s *Storage) ListTodosBetween(startMs, endMs int64) ([]*domain.Todo, error) {
	rows, err := s.db.Query(
		`SELECT `+todoColumns+` FROM todos
		 WHERE target_date >= ? AND target_date < ?
		 ORDER BY is_completed ASC, target_date DESC, id ASC`,
		startMs, endMs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []*domain.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// CountOpenTodos counts todos that are not completed yet.
func (s *Storage) CountOpenTodos() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM todos WHERE is_completed = 0`).Scan(&n)
	return n, err
}

// TotalScore sums reward points of completed todos.
func (s *Storage) TotalScore() (int, error) {
	var total int
	err := s.db.QueryRow(`SELECT COALESCE(SUM(reward_points), 0) FROM todos WHERE is_completed = 1`).Scan(&total)
	return total, err
}
