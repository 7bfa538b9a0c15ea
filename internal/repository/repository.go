package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kesara/purple/internal/database"
	"github.com/kesara/purple/internal/models"
)

// TxRunner runs a function inside a database transaction. Implemented
// by database.DB; mocked in tests.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// RfcRepository defines the interface for document-to-be data operations.
// Methods taking a *sql.Tx participate in a caller-owned transaction;
// passing nil falls back to the pooled connection.
type RfcRepository interface {
	Create(ctx context.Context, tx *sql.Tx, rfc *models.RfcToBe) error
	GetByID(ctx context.Context, id int64) (*models.RfcToBe, error)
	// LockForUpdate loads the document row under an exclusive, blocking
	// row lock. Must be called inside a transaction.
	LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.RfcToBe, error)
	SetDisposition(ctx context.Context, tx *sql.Tx, id int64, d models.Disposition) error
	ListInProgressIDs(ctx context.Context) ([]int64, error)
	// FilterInProgress narrows ids to those whose current disposition
	// is in_progress.
	FilterInProgress(ctx context.Context, ids []int64) ([]int64, error)
	Labels(ctx context.Context, tx *sql.Tx, id int64) ([]string, error)
	AddLabel(ctx context.Context, tx *sql.Tx, id int64, slug string) error
	RemoveLabel(ctx context.Context, tx *sql.Tx, id int64, slug string) error
	ListPublished(ctx context.Context) ([]*models.RfcToBe, error)
	ListUnusableNumbers(ctx context.Context) ([]*models.UnusableRfcNumber, error)
	ListAuthors(ctx context.Context, rfcID int64) ([]*models.RfcAuthor, error)
	CountByDisposition(ctx context.Context) (map[models.Disposition]int, error)
}

// AssignmentRepository defines the interface for assignment data operations
type AssignmentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *models.Assignment) error
	ListByRfc(ctx context.Context, tx *sql.Tx, rfcID int64) ([]*models.Assignment, error)
	SetState(ctx context.Context, tx *sql.Tx, id string, state models.AssignmentState, comment string) error
	// PublisherDoneOrActive reports whether the document has a
	// publisher assignment in an active state or done.
	PublisherDoneOrActive(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error)
	CountActiveBlocked(ctx context.Context) (int, error)
}

// BlockingRepository defines the interface for the blocking-reason
// catalog and per-document blocking-reason records.
type BlockingRepository interface {
	GetReason(ctx context.Context, tx *sql.Tx, slug models.BlockingReason) (*models.BlockingReasonRecord, error)
	GetRole(ctx context.Context, tx *sql.Tx, slug models.Role) (*models.RoleRecord, error)
	CreateRecord(ctx context.Context, tx *sql.Tx, rfcID int64, reason models.BlockingReason, since time.Time) error
	// ResolveAll timestamps every unresolved record for the document
	// and returns how many were resolved.
	ResolveAll(ctx context.Context, tx *sql.Tx, rfcID int64, at time.Time) (int64, error)
	ListUnresolvedByRfc(ctx context.Context, rfcID int64) ([]*models.RfcBlockingReason, error)
}

// RelatedRepository defines the interface for typed document edges and
// the per-document collaborator records the evaluator consumes.
type RelatedRepository interface {
	ListBySource(ctx context.Context, tx *sql.Tx, rfcID int64) ([]*models.RelatedDocument, error)
	// ListByRelationships returns every edge carrying one of the given
	// relationship types, for cross-document views like the text index.
	ListByRelationships(ctx context.Context, rels []models.Relationship) ([]*models.RelatedDocument, error)
	Create(ctx context.Context, tx *sql.Tx, rel *models.RelatedDocument) error
	HasActiveActionHolder(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error)
	HasActiveFinalApproval(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error)
}

// TaskRunRepository defines the single-flight checkpoint operations for
// background tasks.
type TaskRunRepository interface {
	// TryStart atomically claims the task's running flag. It returns
	// started=false when another run already holds it (a guarded
	// no-op, not an error) and otherwise the previous checkpoint.
	TryStart(ctx context.Context, taskName string, now time.Time) (started bool, lastRunAt time.Time, err error)
	// Finish releases the running flag; when advanceTo is non-nil the
	// checkpoint moves forward as well.
	Finish(ctx context.Context, taskName string, advanceTo *time.Time) error
	Get(ctx context.Context, taskName string) (*models.TaskRun, error)
}

// HistoryRepository defines the append-only audit-trail operations
type HistoryRepository interface {
	Append(ctx context.Context, tx *sql.Tx, entry *models.HistoryEntry) error
	// LatestDate returns the most recent history timestamp for an
	// entity, or nil when the entity has no history.
	LatestDate(ctx context.Context, tx *sql.Tx, entityType models.HistoryEntityType, entityID string) (*time.Time, error)
	// AnySince reports whether any tracked history stream has an entry
	// strictly newer than the threshold.
	AnySince(ctx context.Context, threshold time.Time) (bool, error)
	// RfcIDsSince returns the distinct documents affected by tracked
	// history entries strictly newer than since. Cluster-membership
	// entries are resolved through the draft name at scan time.
	RfcIDsSince(ctx context.Context, since time.Time) ([]int64, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Rfc        RfcRepository
	Assignment AssignmentRepository
	Blocking   BlockingRepository
	Related    RelatedRepository
	TaskRun    TaskRunRepository
	History    HistoryRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Rfc:        NewRfcRepo(db),
		Assignment: NewAssignmentRepo(db),
		Blocking:   NewBlockingRepo(db),
		Related:    NewRelatedRepo(db),
		TaskRun:    NewTaskRunRepo(db),
		History:    NewHistoryRepo(db),
	}
}
