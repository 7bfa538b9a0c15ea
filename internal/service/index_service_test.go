package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kesara/purple/internal/mocks"
	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
	"github.com/kesara/purple/internal/service"
)

func newIndexFixture() (*mocks.MockRfcRepository, *mocks.MockRelatedRepository, service.IndexService) {
	rfcRepo := mocks.NewMockRfcRepository()
	relatedRepo := mocks.NewMockRelatedRepository()
	repos := &repository.Repositories{
		Rfc:        rfcRepo,
		Assignment: mocks.NewMockAssignmentRepository(),
		Blocking:   mocks.NewMockBlockingRepository(),
		Related:    relatedRepo,
		TaskRun:    mocks.NewMockTaskRunRepository(),
		History:    mocks.NewMockHistoryRepository(),
	}
	svc := service.NewIndexService(repos, "10.17487", zerolog.Nop())
	return rfcRepo, relatedRepo, svc
}

func publishedRfc(id int64, number int, title string, published time.Time) *models.RfcToBe {
	return &models.RfcToBe{
		ID:          id,
		RfcNumber:   &number,
		Title:       title,
		Disposition: models.DispositionPublished,
		PublishedAt: &published,
		StdLevel:    "Proposed Standard",
	}
}

func renderIndex(t *testing.T, svc service.IndexService) string {
	t.Helper()
	var b strings.Builder
	if err := svc.WriteIndex(context.Background(), &b); err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}
	return b.String()
}

func TestIndexMergesNotIssuedNumbers(t *testing.T) {
	rfcRepo, _, svc := newIndexFixture()
	march := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	rfcRepo.Rfcs[1] = publishedRfc(1, 9001, "First Document", march)
	rfcRepo.Rfcs[2] = publishedRfc(2, 9003, "Third Document", march)
	rfcRepo.Unusable = []*models.UnusableRfcNumber{{Number: 9002}}
	rfcRepo.Authors[1] = []*models.RfcAuthor{{TitlepageName: "J. Smith"}}
	rfcRepo.Authors[2] = []*models.RfcAuthor{{TitlepageName: "A. Doe"}, {TitlepageName: "B. Roe"}}

	index := renderIndex(t, svc)

	for _, want := range []string{
		"9001 First Document. J. Smith. March 2026.",
		"9002 Not Issued.",
		"9003 Third Document. A. Doe, B. Roe. March 2026.",
		"(Status: PROPOSED STANDARD)",
		"(DOI: 10.17487/RFC9001)",
	} {
		if !strings.Contains(index, want) {
			t.Errorf("Index missing %q:\n%s", want, index)
		}
	}

	// Entries interleave in number order
	if strings.Index(index, "9001") > strings.Index(index, "9002") ||
		strings.Index(index, "9002") > strings.Index(index, "9003") {
		t.Error("Entries must be ordered by number")
	}
}

func TestIndexAprilFirstDate(t *testing.T) {
	rfcRepo, _, svc := newIndexFixture()
	april := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	rfcRepo.Rfcs[1] = publishedRfc(1, 9100, "Avian Carriers Revisited", april)

	index := renderIndex(t, svc)
	if !strings.Contains(index, "1 April 2026") {
		t.Errorf("April-first entries carry a day-precision date:\n%s", index)
	}
}

func TestIndexRelations(t *testing.T) {
	rfcRepo, relatedRepo, svc := newIndexFixture()
	march := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	rfcRepo.Rfcs[1] = publishedRfc(1, 9001, "Old Document", march)
	rfcRepo.Rfcs[2] = publishedRfc(2, 9002, "New Document", march)
	target := int64(1)
	relatedRepo.Related = append(relatedRepo.Related, &models.RelatedDocument{
		SourceRfcID:  2,
		TargetRfcID:  &target,
		Relationship: models.RelObsoletes,
	})

	index := renderIndex(t, svc)
	if !strings.Contains(index, "(Obsoletes RFC9001)") {
		t.Errorf("Obsoleting entry missing relation clause:\n%s", index)
	}
	if !strings.Contains(index, "(Obsoleted by RFC9002)") {
		t.Errorf("Obsoleted entry missing reverse clause:\n%s", index)
	}
}

func TestIndexWrapsLongEntries(t *testing.T) {
	rfcRepo, _, svc := newIndexFixture()
	march := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	rfcRepo.Rfcs[1] = publishedRfc(1, 9001,
		"A Thoroughly Comprehensive Specification of an Extremely Long Protocol Name That Cannot Possibly Fit", march)

	index := renderIndex(t, svc)
	lines := strings.Split(index, "\n")
	var continuation bool
	for _, line := range lines {
		if len(line) > 75 {
			t.Errorf("Line exceeds 75 columns: %q", line)
		}
		if strings.HasPrefix(line, "     ") && strings.TrimSpace(line) != "" {
			continuation = true
		}
	}
	if !continuation {
		t.Error("Expected at least one indented continuation line")
	}
}

func TestIndexRefreshUpdatesCache(t *testing.T) {
	rfcRepo, _, svc := newIndexFixture()
	march := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	rfcRepo.Rfcs[1] = publishedRfc(1, 9001, "First Document", march)

	first := renderIndex(t, svc)
	if !strings.Contains(first, "9001") {
		t.Fatalf("Expected first render to include the document:\n%s", first)
	}

	rfcRepo.Rfcs[2] = publishedRfc(2, 9002, "Second Document", march)
	cached := renderIndex(t, svc)
	if strings.Contains(cached, "9002") {
		t.Error("WriteIndex must serve the cached render until Refresh")
	}

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	refreshed := renderIndex(t, svc)
	if !strings.Contains(refreshed, "9002") {
		t.Error("Refresh must pick up newly published documents")
	}
	if svc.GeneratedAt().IsZero() {
		t.Error("GeneratedAt must be set after rendering")
	}
}
