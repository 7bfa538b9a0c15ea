package service_test

import (
	"context"
	"testing"

	"github.com/kesara/purple/internal/mocks"
	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/service"
)

func rolesEqual(got, want []models.Role) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSequenceActivitiesFreshDocument(t *testing.T) {
	repo := mocks.NewMockAssignmentRepository()
	provider := service.NewSequenceActivities(repo)

	incomplete, err := provider.IncompleteActivities(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("IncompleteActivities failed: %v", err)
	}
	if !rolesEqual(incomplete, models.EditorialSequence) {
		t.Errorf("A fresh document has every stage incomplete, got %v", incomplete)
	}

	pending, err := provider.PendingActivities(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("PendingActivities failed: %v", err)
	}
	// The first stage is current, everything behind it is pending
	if !rolesEqual(pending, models.EditorialSequence[1:]) {
		t.Errorf("Expected all stages after the first pending, got %v", pending)
	}
}

func TestSequenceActivitiesMidPipeline(t *testing.T) {
	repo := mocks.NewMockAssignmentRepository()
	person := int64(7)
	for _, role := range []models.Role{models.RoleRefChecker, models.RoleFormatting, models.RoleFirstEditor} {
		repo.Create(context.Background(), nil, &models.Assignment{
			RfcID:    1,
			PersonID: &person,
			Role:     role,
			State:    models.AssignmentDone,
		})
	}
	provider := service.NewSequenceActivities(repo)

	incomplete, err := provider.IncompleteActivities(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("IncompleteActivities failed: %v", err)
	}
	want := []models.Role{models.RoleSecondEditor, models.RoleFinalReviewEditor, models.RolePublisher}
	if !rolesEqual(incomplete, want) {
		t.Errorf("Expected %v incomplete, got %v", want, incomplete)
	}

	pending, err := provider.PendingActivities(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("PendingActivities failed: %v", err)
	}
	// Second edit is current; final review and publication wait behind it
	want = []models.Role{models.RoleFinalReviewEditor, models.RolePublisher}
	if !rolesEqual(pending, want) {
		t.Errorf("Expected %v pending, got %v", want, pending)
	}
}

func TestSequenceActivitiesActiveIsNotComplete(t *testing.T) {
	repo := mocks.NewMockAssignmentRepository()
	person := int64(7)
	repo.Create(context.Background(), nil, &models.Assignment{
		RfcID:    1,
		PersonID: &person,
		Role:     models.RoleRefChecker,
		State:    models.AssignmentInProgress,
	})
	provider := service.NewSequenceActivities(repo)

	incomplete, err := provider.IncompleteActivities(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("IncompleteActivities failed: %v", err)
	}
	if !rolesEqual(incomplete, models.EditorialSequence) {
		t.Errorf("An in-progress stage is still incomplete, got %v", incomplete)
	}
}
