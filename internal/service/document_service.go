package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
	"github.com/rs/zerolog"
)

// ErrDocumentNotFound reports a lookup of a document id that does not exist
var ErrDocumentNotFound = errors.New("document not found")

// documentService is the concrete implementation of DocumentService
type documentService struct {
	db    repository.TxRunner
	repos *repository.Repositories
	log   zerolog.Logger
	now   func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(db repository.TxRunner, repos *repository.Repositories, log zerolog.Logger) DocumentService {
	return &documentService{
		db:    db,
		repos: repos,
		log:   log.With().Str("service", "document").Logger(),
		now:   time.Now,
	}
}

// Intake brings a draft into the pipeline as an in-progress document
func (s *documentService) Intake(ctx context.Context, req *models.IntakeRequest) (*models.RfcToBe, error) {
	rfc := &models.RfcToBe{
		DraftName:   req.DraftName,
		Title:       req.Title,
		StdLevel:    req.StdLevel,
		Disposition: models.DispositionInProgress,
	}

	err := s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.repos.Rfc.Create(ctx, tx, rfc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		for _, slug := range req.Labels {
			if err := s.repos.Rfc.AddLabel(ctx, tx, rfc.ID, slug); err != nil {
				return fmt.Errorf("add label %q: %w", slug, err)
			}
		}
		rfc.Labels = req.Labels
		return s.appendRfcHistory(ctx, tx, rfc.ID, models.ChangeCreated, rfc)
	})
	if err != nil {
		return nil, fmt.Errorf("intake %s: %w", req.DraftName, err)
	}

	s.log.Info().Int64("rfc_id", rfc.ID).Str("draft_name", rfc.DraftName).Msg("Draft entered the pipeline")
	return rfc, nil
}

// Get returns the document with its assignment ledger and unresolved
// blocking reasons.
func (s *documentService) Get(ctx context.Context, id int64) (*models.DocumentDetail, error) {
	rfc, err := s.repos.Rfc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	if rfc.Labels, err = s.repos.Rfc.Labels(ctx, nil, id); err != nil {
		return nil, fmt.Errorf("load labels for document %d: %w", id, err)
	}

	assignments, err := s.repos.Assignment.ListByRfc(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("list assignments for document %d: %w", id, err)
	}
	reasons, err := s.repos.Blocking.ListUnresolvedByRfc(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list blocking reasons for document %d: %w", id, err)
	}

	return &models.DocumentDetail{
		Rfc:             rfc,
		Assignments:     assignments,
		BlockingReasons: reasons,
		Blocked:         hasActiveBlocked(assignments),
	}, nil
}

// AddLabel attaches a label and records the change
func (s *documentService) AddLabel(ctx context.Context, id int64, slug string) error {
	return s.mutateLabels(ctx, id, slug, true)
}

// RemoveLabel detaches a label and records the change
func (s *documentService) RemoveLabel(ctx context.Context, id int64, slug string) error {
	return s.mutateLabels(ctx, id, slug, false)
}

func (s *documentService) mutateLabels(ctx context.Context, id int64, slug string, add bool) error {
	err := s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		rfc, err := s.repos.Rfc.LockForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDocumentNotFound
			}
			return fmt.Errorf("lock document: %w", err)
		}
		if rfc.Disposition.Terminal() {
			return fmt.Errorf("document %d is %s and cannot be modified", id, rfc.Disposition)
		}

		if add {
			err = s.repos.Rfc.AddLabel(ctx, tx, id, slug)
		} else {
			err = s.repos.Rfc.RemoveLabel(ctx, tx, id, slug)
		}
		if err != nil {
			return fmt.Errorf("mutate label %q: %w", slug, err)
		}
		return s.appendRfcHistory(ctx, tx, id, models.ChangeUpdated, map[string]any{
			"label": slug,
			"added": add,
		})
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("rfc_id", id).Str("label", slug).Bool("added", add).Msg("Label changed")
	return nil
}

// Metrics summarizes current pipeline state
func (s *documentService) Metrics(ctx context.Context) (*models.PipelineMetrics, error) {
	counts, err := s.repos.Rfc.CountByDisposition(ctx)
	if err != nil {
		return nil, fmt.Errorf("count dispositions: %w", err)
	}
	blocked, err := s.repos.Assignment.CountActiveBlocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("count blocked assignments: %w", err)
	}
	return &models.PipelineMetrics{
		Dispositions:  counts,
		ActiveBlocked: blocked,
		GeneratedAt:   s.now(),
	}, nil
}

func (s *documentService) appendRfcHistory(ctx context.Context, tx *sql.Tx, rfcID int64, change models.ChangeType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal history payload: %w", err)
	}
	entry := &models.HistoryEntry{
		EntityType:  models.HistoryRfc,
		EntityID:    strconv.FormatInt(rfcID, 10),
		RfcID:       &rfcID,
		ChangeType:  change,
		Payload:     raw,
		HistoryDate: s.now(),
	}
	if err := s.repos.History.Append(ctx, tx, entry); err != nil {
		return fmt.Errorf("append document history: %w", err)
	}
	return nil
}
