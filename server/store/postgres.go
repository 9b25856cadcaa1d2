package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gate4ai/a2a/schema"
)

const createTasksTableSQL = `
CREATE TABLE IF NOT EXISTS a2a_tasks (
    id         TEXT PRIMARY KEY,
    context_id TEXT NOT NULL,
    state      TEXT NOT NULL,
    status_ts  TIMESTAMPTZ NOT NULL,
    payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS a2a_tasks_context_id_idx ON a2a_tasks (context_id);
CREATE INDEX IF NOT EXISTS a2a_tasks_status_ts_idx ON a2a_tasks (status_ts DESC);
`

// PostgresTaskStore persists tasks in a single a2a_tasks table. The full
// task lives in the payload column; id, context_id, state and status_ts are
// lifted out so List can push filtering, ordering and pagination into SQL.
type PostgresTaskStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ TaskStore = (*PostgresTaskStore)(nil)

func NewPostgresTaskStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresTaskStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTasksTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure a2a_tasks schema: %w", err)
	}
	return &PostgresTaskStore{db: db, logger: logger.Named("store-postgres")}, nil
}

func (s *PostgresTaskStore) Close() error {
	return s.db.Close()
}

func (s *PostgresTaskStore) Create(ctx context.Context, task *schema.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO a2a_tasks (id, context_id, state, status_ts, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET context_id = $2, state = $3, status_ts = $4, payload = $5`,
		task.ID, task.ContextID, string(task.Status.State), task.Status.Timestamp, payload)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}
	return nil
}

func (s *PostgresTaskStore) Get(ctx context.Context, id string) (*schema.Task, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM a2a_tasks WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}
	var task schema.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}
	return &task, nil
}

func (s *PostgresTaskStore) Update(ctx context.Context, id string, update TaskUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRowContext(ctx,
		`SELECT payload FROM a2a_tasks WHERE id = $1 FOR UPDATE`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read task %s for update: %w", id, err)
	}

	var task schema.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}
	applyUpdate(&task, update)

	payload, err = json.Marshal(&task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", id, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE a2a_tasks SET state = $2, status_ts = $3, payload = $4 WHERE id = $1`,
		id, string(task.Status.State), task.Status.Timestamp, payload)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *PostgresTaskStore) List(ctx context.Context, filter ListFilter) ([]*schema.Task, error) {
	var (
		query strings.Builder
		args  []interface{}
	)
	query.WriteString(`SELECT payload FROM a2a_tasks`)
	var conds []string
	if filter.ContextID != nil {
		args = append(args, *filter.ContextID)
		conds = append(conds, `context_id = $`+strconv.Itoa(len(args)))
	}
	if filter.State != nil {
		args = append(args, string(*filter.State))
		conds = append(conds, `state = $`+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}
	query.WriteString(` ORDER BY status_ts DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*schema.Task
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		var task schema.Task
		if err := json.Unmarshal(payload, &task); err != nil {
			s.logger.Warn("Skipping undecodable task row", zap.Error(err))
			continue
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}
	if tasks == nil {
		tasks = []*schema.Task{}
	}
	return tasks, nil
}

func (s *PostgresTaskStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM a2a_tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}
