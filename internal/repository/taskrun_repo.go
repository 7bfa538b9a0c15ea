package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/kesara/purple/internal/database"
	"github.com/kesara/purple/internal/models"
)

// uniqueViolation is the Postgres error code raised when a constraint
// such as the single-flight partial index rejects a row.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// taskRunRepo is the concrete implementation of TaskRunRepository
type taskRunRepo struct {
	db *database.DB
}

// NewTaskRunRepo creates a new task-run checkpoint repository
func NewTaskRunRepo(db *database.DB) TaskRunRepository {
	return &taskRunRepo{db: db}
}

// TryStart claims the task's running flag in a short check-and-set
// transaction. The row lock serializes concurrent claimants within one
// database; the partial unique index keeps the invariant even across
// independent processes that race on the first-ever insert.
func (r *taskRunRepo) TryStart(ctx context.Context, taskName string, now time.Time) (bool, time.Time, error) {
	var started bool
	var lastRunAt time.Time

	err := r.db.RunInTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT last_run_at, is_running FROM task_runs WHERE task_name = $1 FOR UPDATE`, taskName)

		var isRunning bool
		err := row.Scan(&lastRunAt, &isRunning)
		if err == sql.ErrNoRows {
			// First ever run: create the checkpoint row already claimed
			_, err := tx.ExecContext(ctx,
				`INSERT INTO task_runs (task_name, last_run_at, is_running) VALUES ($1, $2, true)`,
				taskName, now)
			if err != nil {
				if isUniqueViolation(err) {
					// Another process inserted first and holds the claim
					return nil
				}
				return err
			}
			lastRunAt = now
			started = true
			return nil
		}
		if err != nil {
			return err
		}
		if isRunning {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE task_runs SET is_running = true WHERE task_name = $1`, taskName); err != nil {
			return err
		}
		started = true
		return nil
	})
	if err != nil {
		return false, time.Time{}, err
	}
	return started, lastRunAt, nil
}

// Finish releases the running flag; a non-nil advanceTo also moves the
// checkpoint forward.
func (r *taskRunRepo) Finish(ctx context.Context, taskName string, advanceTo *time.Time) error {
	if advanceTo != nil {
		_, err := r.db.ExecContext(ctx,
			`UPDATE task_runs SET is_running = false, last_run_at = $1 WHERE task_name = $2`,
			*advanceTo, taskName)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE task_runs SET is_running = false WHERE task_name = $1`, taskName)
	return err
}

// Get retrieves the checkpoint record for a task
func (r *taskRunRepo) Get(ctx context.Context, taskName string) (*models.TaskRun, error) {
	var t models.TaskRun
	err := r.db.QueryRowContext(ctx,
		`SELECT task_name, last_run_at, is_running FROM task_runs WHERE task_name = $1`, taskName).
		Scan(&t.TaskName, &t.LastRunAt, &t.IsRunning)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
