package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kesara/purple/internal/database"
	"github.com/kesara/purple/internal/models"
)

// blockingRepo is the concrete implementation of BlockingRepository
type blockingRepo struct {
	db *database.DB
}

// NewBlockingRepo creates a new blocking-reason repository
func NewBlockingRepo(db *database.DB) BlockingRepository {
	return &blockingRepo{db: db}
}

// GetReason looks up a reason in the catalog; unknown slug returns nil
func (r *blockingRepo) GetReason(ctx context.Context, tx *sql.Tx, slug models.BlockingReason) (*models.BlockingReasonRecord, error) {
	query := `SELECT slug, name, description FROM blocking_reasons WHERE slug = $1`
	var rec models.BlockingReasonRecord
	var desc sql.NullString
	err := pick(r.db, tx).QueryRowContext(ctx, query, slug).Scan(&rec.Slug, &rec.Name, &desc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Description = desc.String
	return &rec, nil
}

// GetRole looks up a role in the catalog; unknown slug returns nil
func (r *blockingRepo) GetRole(ctx context.Context, tx *sql.Tx, slug models.Role) (*models.RoleRecord, error) {
	query := `SELECT slug, name, description FROM roles WHERE slug = $1`
	var rec models.RoleRecord
	var desc sql.NullString
	err := pick(r.db, tx).QueryRowContext(ctx, query, slug).Scan(&rec.Slug, &rec.Name, &desc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Description = desc.String
	return &rec, nil
}

// CreateRecord links the document to an active blocking reason. The
// partial unique index rejects a second unresolved record for the same
// (document, reason) pair.
func (r *blockingRepo) CreateRecord(ctx context.Context, tx *sql.Tx, rfcID int64, reason models.BlockingReason, since time.Time) error {
	query := `INSERT INTO rfc_blocking_reasons (rfc_id, reason_slug, since) VALUES ($1, $2, $3)`
	_, err := pick(r.db, tx).ExecContext(ctx, query, rfcID, reason, since)
	return err
}

// ResolveAll timestamps every unresolved reason record for the document
func (r *blockingRepo) ResolveAll(ctx context.Context, tx *sql.Tx, rfcID int64, at time.Time) (int64, error) {
	query := `UPDATE rfc_blocking_reasons SET resolved = $1 WHERE rfc_id = $2 AND resolved IS NULL`
	result, err := pick(r.db, tx).ExecContext(ctx, query, at, rfcID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListUnresolvedByRfc returns the document's active blocking reasons,
// most recent first.
func (r *blockingRepo) ListUnresolvedByRfc(ctx context.Context, rfcID int64) ([]*models.RfcBlockingReason, error) {
	query := `
		SELECT id, rfc_id, reason_slug, since, resolved
		FROM rfc_blocking_reasons
		WHERE rfc_id = $1 AND resolved IS NULL
		ORDER BY since DESC
	`
	rows, err := r.db.QueryContext(ctx, query, rfcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.RfcBlockingReason
	for rows.Next() {
		var rec models.RfcBlockingReason
		var resolved sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.RfcID, &rec.Reason, &rec.Since, &resolved); err != nil {
			return nil, err
		}
		if resolved.Valid {
			rec.Resolved = &resolved.Time
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
