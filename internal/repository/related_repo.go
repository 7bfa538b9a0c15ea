package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/kesara/purple/internal/database"
	"github.com/kesara/purple/internal/models"
)

// relatedRepo is the concrete implementation of RelatedRepository
type relatedRepo struct {
	db *database.DB
}

// NewRelatedRepo creates a new related-document repository
func NewRelatedRepo(db *database.DB) RelatedRepository {
	return &relatedRepo{db: db}
}

// ListBySource returns the document's outgoing typed edges
func (r *relatedRepo) ListBySource(ctx context.Context, tx *sql.Tx, rfcID int64) ([]*models.RelatedDocument, error) {
	query := `
		SELECT id, source_rfc_id, target_rfc_id, target_draft_name, relationship
		FROM related_documents WHERE source_rfc_id = $1
		ORDER BY id
	`
	rows, err := pick(r.db, tx).QueryContext(ctx, query, rfcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []*models.RelatedDocument
	for rows.Next() {
		var rel models.RelatedDocument
		var targetID sql.NullInt64
		var targetDraft sql.NullString
		if err := rows.Scan(&rel.ID, &rel.SourceRfcID, &targetID, &targetDraft, &rel.Relationship); err != nil {
			return nil, err
		}
		if targetID.Valid {
			rel.TargetRfcID = &targetID.Int64
		}
		rel.TargetDraftName = targetDraft.String
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}

// ListByRelationships returns every edge of the given relationship types
func (r *relatedRepo) ListByRelationships(ctx context.Context, rels []models.Relationship) ([]*models.RelatedDocument, error) {
	slugs := make([]string, len(rels))
	for i, rel := range rels {
		slugs[i] = string(rel)
	}
	query := `
		SELECT id, source_rfc_id, target_rfc_id, target_draft_name, relationship
		FROM related_documents WHERE relationship = ANY($1)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(slugs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RelatedDocument
	for rows.Next() {
		var rel models.RelatedDocument
		var targetID sql.NullInt64
		var targetDraft sql.NullString
		if err := rows.Scan(&rel.ID, &rel.SourceRfcID, &targetID, &targetDraft, &rel.Relationship); err != nil {
			return nil, err
		}
		if targetID.Valid {
			rel.TargetRfcID = &targetID.Int64
		}
		rel.TargetDraftName = targetDraft.String
		out = append(out, &rel)
	}
	return out, rows.Err()
}

// Create inserts a new typed edge
func (r *relatedRepo) Create(ctx context.Context, tx *sql.Tx, rel *models.RelatedDocument) error {
	query := `
		INSERT INTO related_documents (source_rfc_id, target_rfc_id, target_draft_name, relationship)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var targetID sql.NullInt64
	if rel.TargetRfcID != nil {
		targetID = sql.NullInt64{Int64: *rel.TargetRfcID, Valid: true}
	}
	return pick(r.db, tx).QueryRowContext(ctx, query,
		rel.SourceRfcID, targetID, nullString(rel.TargetDraftName), rel.Relationship,
	).Scan(&rel.ID)
}

// HasActiveActionHolder reports whether anyone still must act on the document
func (r *relatedRepo) HasActiveActionHolder(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM action_holders WHERE rfc_id = $1 AND completed IS NULL)`
	var exists bool
	err := pick(r.db, tx).QueryRowContext(ctx, query, rfcID).Scan(&exists)
	return exists, err
}

// HasActiveFinalApproval reports whether a publication approval is still pending
func (r *relatedRepo) HasActiveFinalApproval(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM final_approvals WHERE rfc_id = $1 AND approved IS NULL)`
	var exists bool
	err := pick(r.db, tx).QueryRowContext(ctx, query, rfcID).Scan(&exists)
	return exists, err
}
