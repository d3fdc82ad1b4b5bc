package postgres

import (
	"context"
	"fmt"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = 100 * time.Millisecond

type Config struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, cfg Config) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to postgres")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("closed postgres connections")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Query returns the owner's non-deleted tasks, newest first. This is the
// only read the working set is ever rebuilt from.
func (s *Storage) Query(ctx context.Context, ownerID uuid.UUID) ([]task.Task, error) {
	start := time.Now()

	query := `SELECT id, owner_id, title, description, priority, due_date,
				completed, created_at, deleted_at
			FROM tasks
			WHERE owner_id = $1 AND deleted_at IS NULL
			ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	s.warnIfSlow("query", start)
	return tasks, nil
}

func (s *Storage) Insert(ctx context.Context, t *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks (owner_id, title, description, priority, due_date, completed)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, query,
		t.OwnerID,
		t.Title,
		t.Description,
		t.Priority,
		t.DueDate,
		t.Completed,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	s.warnIfSlow("insert", start)
	return nil
}

func (s *Storage) Update(ctx context.Context, id uuid.UUID, fields task.Fields) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				priority = $3,
				due_date = $4,
				completed = $5
			WHERE id = $6 AND deleted_at IS NULL`

	tag, err := s.pool.Exec(ctx, query,
		fields.Title,
		fields.Description,
		fields.Priority,
		fields.DueDate,
		fields.Completed,
		id,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	s.warnIfSlow("update", start)
	return nil
}

func (s *Storage) SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	start := time.Now()

	query := `UPDATE tasks
			SET completed = $1
			WHERE id = $2 AND deleted_at IS NULL`

	tag, err := s.pool.Exec(ctx, query, completed, id)
	if err != nil {
		return fmt.Errorf("updating completion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	s.warnIfSlow("set_completed", start)
	return nil
}

// SoftDelete marks the row removed. The deleted_at guard makes a repeat
// delete a no-op rather than an error, and keeps the original timestamp.
func (s *Storage) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	start := time.Now()

	query := `UPDATE tasks
			SET deleted_at = $1
			WHERE id = $2 AND deleted_at IS NULL`

	tag, err := s.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft-deleting task: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("soft-deleting task: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
	}

	s.warnIfSlow("soft_delete", start)
	return nil
}

func (s *Storage) QueryDueBefore(ctx context.Context, deadline time.Time, limit int) ([]task.Task, error) {
	start := time.Now()

	query := `SELECT id, owner_id, title, description, priority, due_date,
				completed, created_at, deleted_at
			FROM tasks
			WHERE deleted_at IS NULL
				AND completed = FALSE
				AND due_date IS NOT NULL
				AND due_date < $1
			ORDER BY due_date
			LIMIT $2`

	rows, err := s.pool.Query(ctx, query, deadline, limit)
	if err != nil {
		return nil, fmt.Errorf("querying due tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	s.warnIfSlow("query_due_before", start)
	return tasks, nil
}

func scanTasks(rows pgx.Rows) ([]task.Task, error) {
	tasks := []task.Task{}
	for rows.Next() {
		var t task.Task
		err := rows.Scan(
			&t.ID,
			&t.OwnerID,
			&t.Title,
			&t.Description,
			&t.Priority,
			&t.DueDate,
			&t.Completed,
			&t.CreatedAt,
			&t.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return tasks, nil
}

func (s *Storage) warnIfSlow(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("slow query",
			zap.String("op", op),
			zap.Duration("elapsed", elapsed))
	}
}
