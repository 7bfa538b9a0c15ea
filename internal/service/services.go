package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/kesara/purple/internal/config"
	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
	"github.com/rs/zerolog"
)

// ActivityProvider answers which editorial stages a document has not
// finished and which are queued behind the stage currently in play.
type ActivityProvider interface {
	IncompleteActivities(ctx context.Context, tx *sql.Tx, rfcID int64) ([]models.Role, error)
	PendingActivities(ctx context.Context, tx *sql.Tx, rfcID int64) ([]models.Role, error)
}

// Sink delivers one batched change notification to the external
// precompute collaborator.
type Sink interface {
	NotifyChanged(ctx context.Context, rfcIDs []int64) error
}

// BlockingService defines the blocked-state reconciliation operations
type BlockingService interface {
	// Reconcile re-derives the blocked state of one document and
	// reports whether a transition happened.
	Reconcile(ctx context.Context, rfcID int64) (bool, error)
	ReconcileAll(ctx context.Context) error
}

// NotifyService defines the change-notification polling operation
type NotifyService interface {
	PollAndNotify(ctx context.Context) error
}

// DocumentService defines document intake and label operations
type DocumentService interface {
	Intake(ctx context.Context, req *models.IntakeRequest) (*models.RfcToBe, error)
	Get(ctx context.Context, id int64) (*models.DocumentDetail, error)
	AddLabel(ctx context.Context, id int64, slug string) error
	RemoveLabel(ctx context.Context, id int64, slug string) error
	Metrics(ctx context.Context) (*models.PipelineMetrics, error)
}

// IndexService renders the published-document text index
type IndexService interface {
	// Refresh re-renders the index and caches the result
	Refresh(ctx context.Context) error
	// WriteIndex writes the cached index, rendering first when no
	// cache exists yet.
	WriteIndex(ctx context.Context, w io.Writer) error
	GeneratedAt() time.Time
}

// Services holds all service interfaces
type Services struct {
	Blocking BlockingService
	Notify   NotifyService
	Document DocumentService
	Index    IndexService
}

// NewServices creates all services
func NewServices(db repository.TxRunner, repos *repository.Repositories, sink Sink, cfg *config.Config, log zerolog.Logger) *Services {
	activities := NewSequenceActivities(repos.Assignment)
	return &Services{
		Blocking: NewBlockingService(db, repos, activities, log),
		Notify:   NewNotifyService(repos, sink, cfg.Tasks.QuietPeriod, log),
		Document: NewDocumentService(db, repos, log),
		Index:    NewIndexService(repos, cfg.Index.DOIPrefix, log),
	}
}
