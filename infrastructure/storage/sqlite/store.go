package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
)

// ErrMigrationFailed indicates the schema could not be created.
var ErrMigrationFailed = errors.New("migration failed")

// Store is a SQLite-backed implementation of thought.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store with the given configuration.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Healthy implements the registry health probe.
func (s *Store) Healthy(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the tasks and thoughts tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			parent_task_id TEXT,
			context TEXT,
			outcome TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

		CREATE TABLE IF NOT EXISTS thoughts (
			id TEXT PRIMARY KEY,
			source_task_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			round_number INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			context TEXT,
			ponder_count INTEGER NOT NULL DEFAULT 0,
			ponder_notes TEXT,
			parent_thought_id TEXT,
			final_action TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_thoughts_task ON thoughts(source_task_id);
		CREATE INDEX IF NOT EXISTS idx_thoughts_status ON thoughts(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// AddTask inserts the task.
func (s *Store) AddTask(ctx context.Context, t *thought.Task) error {
	taskCtx, err := json.Marshal(t.Context)
	if err != nil {
		return fmt.Errorf("failed to encode task context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, description, status, priority, parent_task_id, context, outcome, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Description, string(t.Status), t.Priority, nullable(t.ParentTaskID),
		string(taskCtx), t.Outcome, t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTaskByID fetches a task by id.
func (s *Store) GetTaskByID(ctx context.Context, id string) (*thought.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, status, priority, parent_task_id, context, outcome, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	var (
		t         thought.Task
		status    string
		parent    sql.NullString
		ctxJSON   sql.NullString
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&t.ID, &t.Description, &status, &t.Priority, &parent, &ctxJSON, &t.Outcome, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", thought.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	t.Status = thought.TaskStatus(status)
	t.ParentTaskID = parent.String
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	t.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if ctxJSON.Valid && ctxJSON.String != "" {
		if err := json.Unmarshal([]byte(ctxJSON.String), &t.Context); err != nil {
			return nil, fmt.Errorf("failed to decode task context: %w", err)
		}
	}
	return &t, nil
}

// UpdateTaskStatus transitions the task's status.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status thought.TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return requireRow(res, thought.ErrTaskNotFound, id)
}

// UpdateTaskOutcome records the task outcome.
func (s *Store) UpdateTaskOutcome(ctx context.Context, id, outcome string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET outcome = ?, updated_at = ? WHERE id = ?`,
		outcome, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update task outcome: %w", err)
	}
	return requireRow(res, thought.ErrTaskNotFound, id)
}

// AddThought inserts the thought.
func (s *Store) AddThought(ctx context.Context, th *thought.Thought) error {
	thoughtCtx, err := json.Marshal(th.Context)
	if err != nil {
		return fmt.Errorf("failed to encode thought context: %w", err)
	}
	notes, err := json.Marshal(th.PonderNotes)
	if err != nil {
		return fmt.Errorf("failed to encode ponder notes: %w", err)
	}
	finalAction, err := encodeFinalAction(th.FinalAction)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO thoughts (id, source_task_id, kind, status, round_number, content, context,
			ponder_count, ponder_notes, parent_thought_id, final_action, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		th.ID, th.SourceTaskID, string(th.Kind), string(th.Status), th.RoundNumber, th.Content,
		string(thoughtCtx), th.PonderCount, string(notes), nullable(th.ParentThoughtID),
		finalAction, th.CreatedAt.UnixMilli(), th.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert thought: %w", err)
	}
	return nil
}

// GetThoughtByID fetches a thought by id.
func (s *Store) GetThoughtByID(ctx context.Context, id string) (*thought.Thought, error) {
	row := s.db.QueryRowContext(ctx, selectThought+` WHERE id = ?`, id)
	th, err := scanThought(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", thought.ErrThoughtNotFound, id)
	}
	return th, err
}

// GetThoughtsByTaskID fetches all thoughts on the task, ordered by
// creation time.
func (s *Store) GetThoughtsByTaskID(ctx context.Context, taskID string) ([]*thought.Thought, error) {
	rows, err := s.db.QueryContext(ctx, selectThought+` WHERE source_task_id = ? ORDER BY created_at, round_number`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thoughts: %w", err)
	}
	defer rows.Close()

	var out []*thought.Thought
	for rows.Next() {
		th, err := scanThought(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, th)
	}
	return out, rows.Err()
}

// UpdateThoughtStatus records the thought's status and final action.
func (s *Store) UpdateThoughtStatus(ctx context.Context, id string, status thought.Status, final *action.SelectionResult) error {
	finalAction, err := encodeFinalAction(final)
	if err != nil {
		return err
	}

	var res sql.Result
	if finalAction.Valid {
		res, err = s.db.ExecContext(ctx,
			`UPDATE thoughts SET status = ?, final_action = ?, updated_at = ? WHERE id = ?`,
			string(status), finalAction, time.Now().UnixMilli(), id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE thoughts SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), time.Now().UnixMilli(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update thought status: %w", err)
	}
	return requireRow(res, thought.ErrThoughtNotFound, id)
}

// UpdateThoughtPonderState persists ponder count and notes.
func (s *Store) UpdateThoughtPonderState(ctx context.Context, id string, count int, notes []string) error {
	encoded, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("failed to encode ponder notes: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE thoughts SET ponder_count = ?, ponder_notes = ?, updated_at = ? WHERE id = ?`,
		count, string(encoded), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update ponder state: %w", err)
	}
	return requireRow(res, thought.ErrThoughtNotFound, id)
}

const selectThought = `
	SELECT id, source_task_id, kind, status, round_number, content, context,
		ponder_count, ponder_notes, parent_thought_id, final_action, created_at, updated_at
	FROM thoughts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThought(row rowScanner) (*thought.Thought, error) {
	var (
		th          thought.Thought
		kind        string
		status      string
		ctxJSON     sql.NullString
		notesJSON   sql.NullString
		parent      sql.NullString
		finalAction sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&th.ID, &th.SourceTaskID, &kind, &status, &th.RoundNumber, &th.Content,
		&ctxJSON, &th.PonderCount, &notesJSON, &parent, &finalAction, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	th.Kind = thought.Kind(kind)
	th.Status = thought.Status(status)
	th.ParentThoughtID = parent.String
	th.CreatedAt = time.UnixMilli(createdAt).UTC()
	th.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if ctxJSON.Valid && ctxJSON.String != "" {
		if err := json.Unmarshal([]byte(ctxJSON.String), &th.Context); err != nil {
			return nil, fmt.Errorf("failed to decode thought context: %w", err)
		}
	}
	if notesJSON.Valid && notesJSON.String != "" {
		if err := json.Unmarshal([]byte(notesJSON.String), &th.PonderNotes); err != nil {
			return nil, fmt.Errorf("failed to decode ponder notes: %w", err)
		}
	}
	if finalAction.Valid && finalAction.String != "" {
		var fa action.SelectionResult
		if err := json.Unmarshal([]byte(finalAction.String), &fa); err != nil {
			return nil, fmt.Errorf("failed to decode final action: %w", err)
		}
		th.FinalAction = &fa
	}
	return &th, nil
}

func encodeFinalAction(final *action.SelectionResult) (sql.NullString, error) {
	if final == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(final)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode final action: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
