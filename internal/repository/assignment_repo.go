package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kesara/purple/internal/database"
	"github.com/kesara/purple/internal/models"
)

// assignmentRepo is the concrete implementation of AssignmentRepository
type assignmentRepo struct {
	db *database.DB
}

// NewAssignmentRepo creates a new assignment repository
func NewAssignmentRepo(db *database.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

// Create inserts a new assignment. The partial unique index rejects a
// second active assignment for the same (person, document, role).
func (r *assignmentRepo) Create(ctx context.Context, tx *sql.Tx, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (id, rfc_id, person_id, role_slug, state, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var personID sql.NullInt64
	if a.PersonID != nil {
		personID = sql.NullInt64{Int64: *a.PersonID, Valid: true}
	}
	_, err := pick(r.db, tx).ExecContext(ctx, query,
		a.ID, a.RfcID, personID, a.Role, a.State, a.Comment, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// ListByRfc returns all assignments for the document, newest first
func (r *assignmentRepo) ListByRfc(ctx context.Context, tx *sql.Tx, rfcID int64) ([]*models.Assignment, error) {
	query := `
		SELECT id, rfc_id, person_id, role_slug, state, comment, created_at, updated_at
		FROM assignments WHERE rfc_id = $1
		ORDER BY created_at DESC
	`
	rows, err := pick(r.db, tx).QueryContext(ctx, query, rfcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		var a models.Assignment
		var personID sql.NullInt64
		err := rows.Scan(&a.ID, &a.RfcID, &personID, &a.Role, &a.State, &a.Comment, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if personID.Valid {
			a.PersonID = &personID.Int64
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// SetState transitions an assignment. A non-empty comment replaces the
// stored one; an empty comment leaves it untouched.
func (r *assignmentRepo) SetState(ctx context.Context, tx *sql.Tx, id string, state models.AssignmentState, comment string) error {
	query := `
		UPDATE assignments
		SET state = $1, comment = COALESCE(NULLIF($2, ''), comment), updated_at = $3
		WHERE id = $4
	`
	_, err := pick(r.db, tx).ExecContext(ctx, query, state, comment, time.Now(), id)
	return err
}

// PublisherDoneOrActive reports whether the document's publisher stage
// is done or underway.
func (r *assignmentRepo) PublisherDoneOrActive(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM assignments
			WHERE rfc_id = $1 AND role_slug = $2
			AND state NOT IN ($3, $4)
		)
	`
	var exists bool
	err := pick(r.db, tx).QueryRowContext(ctx, query, rfcID, models.RolePublisher,
		models.AssignmentWithdrawn, models.AssignmentClosedForHold).Scan(&exists)
	return exists, err
}

// CountActiveBlocked returns how many documents currently hold an
// active blocked-role assignment.
func (r *assignmentRepo) CountActiveBlocked(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(DISTINCT rfc_id) FROM assignments
		WHERE role_slug = $1 AND state NOT IN ($2, $3, $4)
	`
	var n int
	err := r.db.QueryRowContext(ctx, query, models.RoleBlocked,
		models.AssignmentDone, models.AssignmentWithdrawn, models.AssignmentClosedForHold).Scan(&n)
	return n, err
}
