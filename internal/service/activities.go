package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
)

// sequenceActivities derives activity state from the assignment ledger
// and the fixed editorial stage order. A stage is complete once a done
// assignment exists for its role; pending stages are the incomplete
// ones queued strictly behind the earliest incomplete stage.
type sequenceActivities struct {
	assignments repository.AssignmentRepository
}

// NewSequenceActivities creates the ledger-backed ActivityProvider
func NewSequenceActivities(assignments repository.AssignmentRepository) ActivityProvider {
	return &sequenceActivities{assignments: assignments}
}

func (p *sequenceActivities) IncompleteActivities(ctx context.Context, tx *sql.Tx, rfcID int64) ([]models.Role, error) {
	done, err := p.completedRoles(ctx, tx, rfcID)
	if err != nil {
		return nil, err
	}
	var out []models.Role
	for _, role := range models.EditorialSequence {
		if !done[role] {
			out = append(out, role)
		}
	}
	return out, nil
}

func (p *sequenceActivities) PendingActivities(ctx context.Context, tx *sql.Tx, rfcID int64) ([]models.Role, error) {
	done, err := p.completedRoles(ctx, tx, rfcID)
	if err != nil {
		return nil, err
	}
	// Everything behind the earliest incomplete stage is pending; the
	// earliest incomplete stage itself is current, not pending.
	var out []models.Role
	seenCurrent := false
	for _, role := range models.EditorialSequence {
		if done[role] {
			continue
		}
		if !seenCurrent {
			seenCurrent = true
			continue
		}
		out = append(out, role)
	}
	return out, nil
}

func (p *sequenceActivities) completedRoles(ctx context.Context, tx *sql.Tx, rfcID int64) (map[models.Role]bool, error) {
	assignments, err := p.assignments.ListByRfc(ctx, tx, rfcID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for rfc %d: %w", rfcID, err)
	}
	done := make(map[models.Role]bool)
	for _, a := range assignments {
		if a.State == models.AssignmentDone {
			done[a.Role] = true
		}
	}
	return done, nil
}
