package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kesara/purple/internal/blocking"
	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
	"github.com/rs/zerolog"
)

// ErrReasonNotFound reports an evaluator slug missing from the
// blocking-reason catalog. This is a data error; the reconciliation
// transaction aborts so no partial state persists.
var ErrReasonNotFound = errors.New("blocking reason not found")

// ErrRoleNotFound reports a role slug missing from the role catalog
var ErrRoleNotFound = errors.New("role not found")

// blockingService is the concrete implementation of BlockingService
type blockingService struct {
	db         repository.TxRunner
	repos      *repository.Repositories
	activities ActivityProvider
	log        zerolog.Logger
	now        func() time.Time
}

// NewBlockingService creates a new BlockingService
func NewBlockingService(db repository.TxRunner, repos *repository.Repositories, activities ActivityProvider, log zerolog.Logger) BlockingService {
	return &blockingService{
		db:         db,
		repos:      repos,
		activities: activities,
		log:        log.With().Str("service", "blocking").Logger(),
		now:        time.Now,
	}
}

// Reconcile re-derives the blocked state of one document under its row
// lock and applies the assignment transitions the new state demands.
// The whole operation is one transaction; any failure rolls back all of
// it.
func (s *blockingService) Reconcile(ctx context.Context, rfcID int64) (bool, error) {
	var transitioned bool
	err := s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		rfc, err := s.repos.Rfc.LockForUpdate(ctx, tx, rfcID)
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}

		facts, err := s.buildFacts(ctx, tx, rfc)
		if err != nil {
			return err
		}
		reasons := blocking.Evaluate(facts)

		assignments, err := s.repos.Assignment.ListByRfc(ctx, tx, rfcID)
		if err != nil {
			return fmt.Errorf("list assignments: %w", err)
		}
		blockedBefore := hasActiveBlocked(assignments)
		blockedNow := !reasons.Empty()

		switch {
		case blockedNow && !blockedBefore:
			if err := s.enterBlocked(ctx, tx, rfc, assignments, reasons); err != nil {
				return err
			}
			transitioned = true
		case !blockedNow && blockedBefore:
			if err := s.leaveBlocked(ctx, tx, rfc, assignments); err != nil {
				return err
			}
			transitioned = true
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("reconcile rfc %d: %w", rfcID, err)
	}
	if transitioned {
		s.log.Info().Int64("rfc_id", rfcID).Msg("Blocked state transition applied")
	}
	return transitioned, nil
}

// ReconcileAll reconciles every in-progress document. One document's
// failure is logged and does not stop the batch.
func (s *blockingService) ReconcileAll(ctx context.Context) error {
	ids, err := s.repos.Rfc.ListInProgressIDs(ctx)
	if err != nil {
		return fmt.Errorf("list in-progress documents: %w", err)
	}

	var failed int
	for _, id := range ids {
		if _, err := s.Reconcile(ctx, id); err != nil {
			failed++
			s.log.Error().Err(err).Int64("rfc_id", id).Msg("Reconciliation failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("reconciliation failed for %d of %d documents", failed, len(ids))
	}
	return nil
}

// buildFacts assembles the evaluator's snapshot of the document. It
// runs inside the document's row lock so the snapshot stays consistent
// with the mutation that follows.
func (s *blockingService) buildFacts(ctx context.Context, tx *sql.Tx, rfc *models.RfcToBe) (*blocking.DocumentFacts, error) {
	labels, err := s.repos.Rfc.Labels(ctx, tx, rfc.ID)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	assignments, err := s.repos.Assignment.ListByRfc(ctx, tx, rfc.ID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	var activeRoles []models.Role
	for _, a := range assignments {
		if a.State.Active() && a.Role != models.RoleBlocked {
			activeRoles = append(activeRoles, a.Role)
		}
	}

	pending, err := s.activities.PendingActivities(ctx, tx, rfc.ID)
	if err != nil {
		return nil, fmt.Errorf("pending activities: %w", err)
	}

	holderActive, err := s.repos.Related.HasActiveActionHolder(ctx, tx, rfc.ID)
	if err != nil {
		return nil, fmt.Errorf("check action holders: %w", err)
	}
	approvalPending, err := s.repos.Related.HasActiveFinalApproval(ctx, tx, rfc.ID)
	if err != nil {
		return nil, fmt.Errorf("check final approvals: %w", err)
	}

	related, err := s.repos.Related.ListBySource(ctx, tx, rfc.ID)
	if err != nil {
		return nil, fmt.Errorf("list related documents: %w", err)
	}
	refs := make([]blocking.Reference, 0, len(related))
	for _, rel := range related {
		ref := blocking.Reference{Relationship: rel.Relationship}
		if rel.Relationship == models.RelRefQueue && rel.TargetRfcID != nil {
			target, err := s.targetFacts(ctx, tx, *rel.TargetRfcID)
			if err != nil {
				return nil, err
			}
			ref.Target = target
		}
		refs = append(refs, ref)
	}

	return &blocking.DocumentFacts{
		ID:                   rfc.ID,
		Labels:               labels,
		ActiveRoles:          activeRoles,
		PendingRoles:         pending,
		ActionHolderActive:   holderActive,
		FinalApprovalPending: approvalPending,
		References:           refs,
	}, nil
}

func (s *blockingService) targetFacts(ctx context.Context, tx *sql.Tx, targetID int64) (*blocking.TargetFacts, error) {
	incomplete, err := s.activities.IncompleteActivities(ctx, tx, targetID)
	if err != nil {
		return nil, fmt.Errorf("incomplete activities for rfc %d: %w", targetID, err)
	}
	publisherReady, err := s.repos.Assignment.PublisherDoneOrActive(ctx, tx, targetID)
	if err != nil {
		return nil, fmt.Errorf("publisher state for rfc %d: %w", targetID, err)
	}
	return &blocking.TargetFacts{
		IncompleteRoles:       incomplete,
		PublisherDoneOrActive: publisherReady,
	}, nil
}

// enterBlocked applies the not-blocked to blocked transition: active
// assignments close for hold, each affected person gets a blocked
// placeholder assignment (one ownerless placeholder when nobody was
// active), and every reason gets a blocking record.
func (s *blockingService) enterBlocked(ctx context.Context, tx *sql.Tx, rfc *models.RfcToBe, assignments []*models.Assignment, reasons blocking.ReasonSet) error {
	now := s.now()

	role, err := s.repos.Blocking.GetRole(ctx, tx, models.RoleBlocked)
	if err != nil {
		return fmt.Errorf("look up role %q: %w", models.RoleBlocked, err)
	}
	if role == nil {
		return fmt.Errorf("role %q: %w", models.RoleBlocked, ErrRoleNotFound)
	}

	comment := fmt.Sprintf("blocked because of blocking condition(s): %s; ",
		strings.Join(reasons.Strings(), ", "))

	// A person may hold several active roles on the document; each gets
	// at most one blocked assignment, matching the one-active-per
	// (person, rfc, role) constraint.
	var closed int
	var displaced []int64
	seen := make(map[int64]bool)
	for _, a := range assignments {
		if !a.State.Active() || a.Role == models.RoleBlocked {
			continue
		}
		if err := s.repos.Assignment.SetState(ctx, tx, a.ID, models.AssignmentClosedForHold, "Closed due to blocked state"); err != nil {
			return fmt.Errorf("close assignment %s: %w", a.ID, err)
		}
		if err := s.appendAssignmentHistory(ctx, tx, a.ID, rfc.ID, models.ChangeUpdated, models.AssignmentClosedForHold, now); err != nil {
			return err
		}
		closed++
		if a.PersonID != nil && !seen[*a.PersonID] {
			seen[*a.PersonID] = true
			displaced = append(displaced, *a.PersonID)
		}
	}

	for _, personID := range displaced {
		personID := personID
		blockedAssignment := &models.Assignment{
			ID:       uuid.New().String(),
			RfcID:    rfc.ID,
			PersonID: &personID,
			Role:     models.RoleBlocked,
			State:    models.AssignmentInProgress,
			Comment:  comment,
		}
		if err := s.repos.Assignment.Create(ctx, tx, blockedAssignment); err != nil {
			return fmt.Errorf("create blocked assignment: %w", err)
		}
		if err := s.appendAssignmentHistory(ctx, tx, blockedAssignment.ID, rfc.ID, models.ChangeCreated, models.AssignmentInProgress, now); err != nil {
			return err
		}
	}

	if len(displaced) == 0 {
		// Nobody was displaced; record the blockage on an ownerless
		// placeholder so the blocked state is still visible in the
		// ledger.
		blockedAssignment := &models.Assignment{
			ID:      uuid.New().String(),
			RfcID:   rfc.ID,
			Role:    models.RoleBlocked,
			State:   models.AssignmentInProgress,
			Comment: comment,
		}
		if err := s.repos.Assignment.Create(ctx, tx, blockedAssignment); err != nil {
			return fmt.Errorf("create blocked assignment: %w", err)
		}
		if err := s.appendAssignmentHistory(ctx, tx, blockedAssignment.ID, rfc.ID, models.ChangeCreated, models.AssignmentInProgress, now); err != nil {
			return err
		}
	}

	for _, reason := range reasons.Slice() {
		record, err := s.repos.Blocking.GetReason(ctx, tx, reason)
		if err != nil {
			return fmt.Errorf("look up reason %q: %w", reason, err)
		}
		if record == nil {
			return fmt.Errorf("reason %q: %w", reason, ErrReasonNotFound)
		}
		if err := s.repos.Blocking.CreateRecord(ctx, tx, rfc.ID, reason, now); err != nil {
			return fmt.Errorf("record reason %q: %w", reason, err)
		}
	}

	s.log.Info().
		Int64("rfc_id", rfc.ID).
		Strs("reasons", reasons.Strings()).
		Int("closed_assignments", closed).
		Msg("Document entered blocked state")
	return nil
}

// leaveBlocked applies the blocked to not-blocked transition: blocked
// placeholders finish, the most recently held assignment per person is
// re-created, and all unresolved reasons resolve.
func (s *blockingService) leaveBlocked(ctx context.Context, tx *sql.Tx, rfc *models.RfcToBe, assignments []*models.Assignment) error {
	now := s.now()

	for _, blocked := range assignments {
		if blocked.Role != models.RoleBlocked || !blocked.State.Active() {
			continue
		}
		if err := s.repos.Assignment.SetState(ctx, tx, blocked.ID, models.AssignmentDone, ""); err != nil {
			return fmt.Errorf("finish blocked assignment %s: %w", blocked.ID, err)
		}
		if err := s.appendAssignmentHistory(ctx, tx, blocked.ID, rfc.ID, models.ChangeUpdated, models.AssignmentDone, now); err != nil {
			return err
		}

		// The ownerless placeholder has nothing to restore
		if blocked.PersonID == nil {
			continue
		}
		latest, err := s.latestHeldAssignment(ctx, tx, assignments, *blocked.PersonID)
		if err != nil {
			return err
		}
		if latest == nil {
			continue
		}

		restored := &models.Assignment{
			ID:       uuid.New().String(),
			RfcID:    rfc.ID,
			PersonID: latest.PersonID,
			Role:     latest.Role,
			State:    models.AssignmentAssigned,
			Comment:  "Re-created after blocked state cleared",
		}
		if err := s.repos.Assignment.Create(ctx, tx, restored); err != nil {
			return fmt.Errorf("re-create assignment: %w", err)
		}
		if err := s.appendAssignmentHistory(ctx, tx, restored.ID, rfc.ID, models.ChangeCreated, models.AssignmentAssigned, now); err != nil {
			return err
		}
	}

	resolved, err := s.repos.Blocking.ResolveAll(ctx, tx, rfc.ID, now)
	if err != nil {
		return fmt.Errorf("resolve blocking reasons: %w", err)
	}

	s.log.Info().
		Int64("rfc_id", rfc.ID).
		Int64("resolved_reasons", resolved).
		Msg("Document left blocked state")
	return nil
}

// latestHeldAssignment picks, among the person's closed_for_hold
// assignments, the one with the most recent history entry.
func (s *blockingService) latestHeldAssignment(ctx context.Context, tx *sql.Tx, assignments []*models.Assignment, personID int64) (*models.Assignment, error) {
	var latest *models.Assignment
	var latestDate *time.Time
	for _, a := range assignments {
		if a.State != models.AssignmentClosedForHold || a.PersonID == nil || *a.PersonID != personID {
			continue
		}
		date, err := s.repos.History.LatestDate(ctx, tx, models.HistoryAssignment, a.ID)
		if err != nil {
			return nil, fmt.Errorf("history for assignment %s: %w", a.ID, err)
		}
		if date == nil {
			continue
		}
		if latestDate == nil || date.After(*latestDate) {
			latest = a
			latestDate = date
		}
	}
	return latest, nil
}

func (s *blockingService) appendAssignmentHistory(ctx context.Context, tx *sql.Tx, assignmentID string, rfcID int64, change models.ChangeType, state models.AssignmentState, at time.Time) error {
	payload, _ := json.Marshal(map[string]string{"state": string(state)})
	entry := &models.HistoryEntry{
		EntityType:  models.HistoryAssignment,
		EntityID:    assignmentID,
		RfcID:       &rfcID,
		ChangeType:  change,
		State:       string(state),
		Payload:     payload,
		HistoryDate: at,
	}
	if err := s.repos.History.Append(ctx, tx, entry); err != nil {
		return fmt.Errorf("append assignment history: %w", err)
	}
	return nil
}

func hasActiveBlocked(assignments []*models.Assignment) bool {
	for _, a := range assignments {
		if a.Role == models.RoleBlocked && a.State.Active() {
			return true
		}
	}
	return false
}
