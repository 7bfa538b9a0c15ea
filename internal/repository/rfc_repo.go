package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/kesara/purple/internal/database"
	"github.com/kesara/purple/internal/models"
)

// rfcRepo is the concrete implementation of RfcRepository
type rfcRepo struct {
	db *database.DB
}

// NewRfcRepo creates a new document repository
func NewRfcRepo(db *database.DB) RfcRepository {
	return &rfcRepo{db: db}
}

const rfcColumns = `id, draft_name, rfc_number, title, disposition, published_at, std_level, created_at, updated_at`

func scanRfc(row interface{ Scan(dest ...any) error }) (*models.RfcToBe, error) {
	var rfc models.RfcToBe
	var rfcNumber sql.NullInt64
	var publishedAt sql.NullTime
	var stdLevel sql.NullString

	err := row.Scan(
		&rfc.ID, &rfc.DraftName, &rfcNumber, &rfc.Title, &rfc.Disposition,
		&publishedAt, &stdLevel, &rfc.CreatedAt, &rfc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rfcNumber.Valid {
		n := int(rfcNumber.Int64)
		rfc.RfcNumber = &n
	}
	if publishedAt.Valid {
		rfc.PublishedAt = &publishedAt.Time
	}
	rfc.StdLevel = stdLevel.String
	return &rfc, nil
}

// Create inserts a new document-to-be
func (r *rfcRepo) Create(ctx context.Context, tx *sql.Tx, rfc *models.RfcToBe) error {
	query := `
		INSERT INTO rfcs_to_be (draft_name, rfc_number, title, disposition, published_at, std_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var rfcNumber sql.NullInt64
	if rfc.RfcNumber != nil {
		rfcNumber = sql.NullInt64{Int64: int64(*rfc.RfcNumber), Valid: true}
	}
	return pick(r.db, tx).QueryRowContext(ctx, query,
		rfc.DraftName, rfcNumber, rfc.Title, rfc.Disposition,
		rfc.PublishedAt, nullString(rfc.StdLevel), rfc.CreatedAt, rfc.UpdatedAt,
	).Scan(&rfc.ID)
}

// GetByID retrieves a document by ID with its labels
func (r *rfcRepo) GetByID(ctx context.Context, id int64) (*models.RfcToBe, error) {
	query := `SELECT ` + rfcColumns + ` FROM rfcs_to_be WHERE id = $1`
	rfc, err := scanRfc(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	rfc.Labels, err = r.Labels(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return rfc, nil
}

// LockForUpdate loads the document row under FOR UPDATE. The lock is
// held until the caller's transaction ends, serializing reconciliation
// per document.
func (r *rfcRepo) LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.RfcToBe, error) {
	query := `SELECT ` + rfcColumns + ` FROM rfcs_to_be WHERE id = $1 FOR UPDATE`
	rfc, err := scanRfc(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	rfc.Labels, err = r.Labels(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return rfc, nil
}

// SetDisposition moves the document to a new lifecycle phase
func (r *rfcRepo) SetDisposition(ctx context.Context, tx *sql.Tx, id int64, d models.Disposition) error {
	query := `UPDATE rfcs_to_be SET disposition = $1, updated_at = $2 WHERE id = $3`
	_, err := pick(r.db, tx).ExecContext(ctx, query, d, time.Now(), id)
	return err
}

// ListInProgressIDs returns the ids of all in-progress documents
func (r *rfcRepo) ListInProgressIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM rfcs_to_be WHERE disposition = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, models.DispositionInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FilterInProgress narrows ids to currently in-progress documents
func (r *rfcRepo) FilterInProgress(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM rfcs_to_be WHERE id = ANY($1) AND disposition = $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids), models.DispositionInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Labels returns the document's current label slugs
func (r *rfcRepo) Labels(ctx context.Context, tx *sql.Tx, id int64) ([]string, error) {
	query := `SELECT label_slug FROM rfc_labels WHERE rfc_id = $1 ORDER BY label_slug`
	rows, err := pick(r.db, tx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		labels = append(labels, slug)
	}
	return labels, rows.Err()
}

// AddLabel attaches a label to the document; already-present is a no-op
func (r *rfcRepo) AddLabel(ctx context.Context, tx *sql.Tx, id int64, slug string) error {
	query := `INSERT INTO rfc_labels (rfc_id, label_slug) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := pick(r.db, tx).ExecContext(ctx, query, id, slug)
	return err
}

// RemoveLabel detaches a label from the document
func (r *rfcRepo) RemoveLabel(ctx context.Context, tx *sql.Tx, id int64, slug string) error {
	query := `DELETE FROM rfc_labels WHERE rfc_id = $1 AND label_slug = $2`
	_, err := pick(r.db, tx).ExecContext(ctx, query, id, slug)
	return err
}

// ListPublished returns published documents ordered by RFC number
func (r *rfcRepo) ListPublished(ctx context.Context) ([]*models.RfcToBe, error) {
	query := `SELECT ` + rfcColumns + ` FROM rfcs_to_be WHERE published_at IS NOT NULL ORDER BY rfc_number`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rfcs []*models.RfcToBe
	for rows.Next() {
		rfc, err := scanRfc(rows)
		if err != nil {
			return nil, err
		}
		rfcs = append(rfcs, rfc)
	}
	return rfcs, rows.Err()
}

// ListUnusableNumbers returns RFC numbers that will never be issued
func (r *rfcRepo) ListUnusableNumbers(ctx context.Context) ([]*models.UnusableRfcNumber, error) {
	query := `SELECT number, comment FROM unusable_rfc_numbers ORDER BY number`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nums []*models.UnusableRfcNumber
	for rows.Next() {
		var n models.UnusableRfcNumber
		var comment sql.NullString
		if err := rows.Scan(&n.Number, &comment); err != nil {
			return nil, err
		}
		n.Comment = comment.String
		nums = append(nums, &n)
	}
	return nums, rows.Err()
}

// ListAuthors returns the document's authors in titlepage order
func (r *rfcRepo) ListAuthors(ctx context.Context, rfcID int64) ([]*models.RfcAuthor, error) {
	query := `SELECT id, rfc_id, titlepage_name, author_order FROM rfc_authors WHERE rfc_id = $1 ORDER BY author_order`
	rows, err := r.db.QueryContext(ctx, query, rfcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []*models.RfcAuthor
	for rows.Next() {
		var a models.RfcAuthor
		if err := rows.Scan(&a.ID, &a.RfcID, &a.TitlepageName, &a.Order); err != nil {
			return nil, err
		}
		authors = append(authors, &a)
	}
	return authors, rows.Err()
}

// CountByDisposition returns document counts per lifecycle phase
func (r *rfcRepo) CountByDisposition(ctx context.Context) (map[models.Disposition]int, error) {
	query := `SELECT disposition, COUNT(*) FROM rfcs_to_be GROUP BY disposition`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Disposition]int)
	for rows.Next() {
		var d models.Disposition
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		counts[d] = n
	}
	return counts, rows.Err()
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
