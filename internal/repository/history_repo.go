package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/kesara/purple/internal/database"
	"github.com/kesara/purple/internal/models"
)

// historyRepo is the concrete implementation of HistoryRepository
type historyRepo struct {
	db *database.DB
}

// NewHistoryRepo creates a new audit-trail repository
func NewHistoryRepo(db *database.DB) HistoryRepository {
	return &historyRepo{db: db}
}

// Append writes one audit entry. Callers mutating tracked entities pass
// their transaction so the entry commits or rolls back with the change.
func (r *historyRepo) Append(ctx context.Context, tx *sql.Tx, entry *models.HistoryEntry) error {
	if entry.HistoryDate.IsZero() {
		entry.HistoryDate = time.Now()
	}
	query := `
		INSERT INTO history (entity_type, entity_id, rfc_id, change_type, state, payload, history_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var rfcID sql.NullInt64
	if entry.RfcID != nil {
		rfcID = sql.NullInt64{Int64: *entry.RfcID, Valid: true}
	}
	var payload any
	if len(entry.Payload) > 0 {
		payload = []byte(entry.Payload)
	}
	_, err := pick(r.db, tx).ExecContext(ctx, query,
		entry.EntityType, entry.EntityID, rfcID, entry.ChangeType,
		nullString(entry.State), payload, entry.HistoryDate,
	)
	return err
}

// LatestDate returns the newest history timestamp for an entity
func (r *historyRepo) LatestDate(ctx context.Context, tx *sql.Tx, entityType models.HistoryEntityType, entityID string) (*time.Time, error) {
	query := `
		SELECT history_date FROM history
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY history_date DESC LIMIT 1
	`
	var ts time.Time
	err := pick(r.db, tx).QueryRowContext(ctx, query, entityType, entityID).Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func trackedTypeSlugs() []string {
	slugs := make([]string, len(models.TrackedEntityTypes))
	for i, t := range models.TrackedEntityTypes {
		slugs[i] = string(t)
	}
	return slugs
}

// AnySince reports whether any tracked stream changed after threshold
func (r *historyRepo) AnySince(ctx context.Context, threshold time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM history
			WHERE entity_type = ANY($1) AND history_date > $2
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, pq.Array(trackedTypeSlugs()), threshold).Scan(&exists)
	return exists, err
}

// RfcIDsSince collects the distinct documents touched by tracked
// history entries newer than since. Cluster-membership entries carry a
// draft name instead of a document id and are resolved at scan time so
// documents that entered the queue after the change still match.
func (r *historyRepo) RfcIDsSince(ctx context.Context, since time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT rfc_id FROM history
		WHERE entity_type = ANY($1) AND history_date > $2 AND rfc_id IS NOT NULL
		UNION
		SELECT r.id FROM history h
		JOIN rfcs_to_be r ON r.draft_name = h.entity_id
		WHERE h.entity_type = $3 AND h.history_date > $2
	`
	rows, err := r.db.QueryContext(ctx, query,
		pq.Array(trackedTypeSlugs()), since, models.HistoryClusterMember)
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
