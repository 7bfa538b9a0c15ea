package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kesara/purple/internal/mocks"
	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
	"github.com/kesara/purple/internal/service"
)

type notifyFixture struct {
	rfc     *mocks.MockRfcRepository
	taskRun *mocks.MockTaskRunRepository
	history *mocks.MockHistoryRepository
	sink    *mocks.MockSink
	svc     service.NotifyService
}

func newNotifyFixture() *notifyFixture {
	f := &notifyFixture{
		rfc:     mocks.NewMockRfcRepository(),
		taskRun: mocks.NewMockTaskRunRepository(),
		history: mocks.NewMockHistoryRepository(),
		sink:    &mocks.MockSink{},
	}
	repos := &repository.Repositories{
		Rfc:        f.rfc,
		Assignment: mocks.NewMockAssignmentRepository(),
		Blocking:   mocks.NewMockBlockingRepository(),
		Related:    mocks.NewMockRelatedRepository(),
		TaskRun:    f.taskRun,
		History:    f.history,
	}
	f.svc = service.NewNotifyService(repos, f.sink, time.Minute, zerolog.Nop())
	return f
}

func (f *notifyFixture) setCheckpoint(lastRunAt time.Time, isRunning bool) {
	f.taskRun.Runs[models.TaskProcessRfcChanges] = &models.TaskRun{
		TaskName:  models.TaskProcessRfcChanges,
		LastRunAt: lastRunAt,
		IsRunning: isRunning,
	}
}

func (f *notifyFixture) addChange(rfcID int64, at time.Time) {
	f.history.Entries = append(f.history.Entries, &models.HistoryEntry{
		EntityType:  models.HistoryAssignment,
		EntityID:    "a1",
		RfcID:       &rfcID,
		ChangeType:  models.ChangeUpdated,
		HistoryDate: at,
	})
}

func TestPollAndNotifySendsBatch(t *testing.T) {
	f := newNotifyFixture()
	oldCheckpoint := time.Now().Add(-time.Hour)
	f.setCheckpoint(oldCheckpoint, false)
	f.rfc.Rfcs[5] = &models.RfcToBe{ID: 5, Disposition: models.DispositionInProgress}
	f.rfc.Rfcs[3] = &models.RfcToBe{ID: 3, Disposition: models.DispositionInProgress}
	f.addChange(5, time.Now().Add(-10*time.Minute))
	f.addChange(3, time.Now().Add(-5*time.Minute))

	if err := f.svc.PollAndNotify(context.Background()); err != nil {
		t.Fatalf("PollAndNotify failed: %v", err)
	}

	if len(f.sink.Batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(f.sink.Batches))
	}
	if got := f.sink.Batches[0]; len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Errorf("Expected batch [3 5], got %v", got)
	}

	run := f.taskRun.Runs[models.TaskProcessRfcChanges]
	if !run.LastRunAt.After(oldCheckpoint) {
		t.Error("Checkpoint must advance after successful delivery")
	}
	if run.IsRunning {
		t.Error("Running flag must clear after the cycle")
	}
}

func TestPollAndNotifySingleFlight(t *testing.T) {
	f := newNotifyFixture()
	oldCheckpoint := time.Now().Add(-time.Hour)
	f.setCheckpoint(oldCheckpoint, true)
	f.rfc.Rfcs[5] = &models.RfcToBe{ID: 5, Disposition: models.DispositionInProgress}
	f.addChange(5, time.Now().Add(-10*time.Minute))

	if err := f.svc.PollAndNotify(context.Background()); err != nil {
		t.Fatalf("Guarded no-op must not error: %v", err)
	}

	if len(f.sink.Batches) != 0 {
		t.Error("A concurrent cycle must not notify")
	}
	run := f.taskRun.Runs[models.TaskProcessRfcChanges]
	if !run.LastRunAt.Equal(oldCheckpoint) {
		t.Error("A concurrent cycle must not touch the checkpoint")
	}
	if f.taskRun.FinishCalls != 0 {
		t.Error("A cycle that never started must not finish the task")
	}
}

func TestPollAndNotifyQuietPeriod(t *testing.T) {
	f := newNotifyFixture()
	oldCheckpoint := time.Now().Add(-time.Hour)
	f.setCheckpoint(oldCheckpoint, false)
	f.rfc.Rfcs[5] = &models.RfcToBe{ID: 5, Disposition: models.DispositionInProgress}
	// 30 seconds old: inside the one-minute quiet period
	f.addChange(5, time.Now().Add(-30*time.Second))

	if err := f.svc.PollAndNotify(context.Background()); err != nil {
		t.Fatalf("Quiet-period deferral must not error: %v", err)
	}

	if len(f.sink.Batches) != 0 {
		t.Error("Changes inside the quiet period must not be notified")
	}
	run := f.taskRun.Runs[models.TaskProcessRfcChanges]
	if !run.LastRunAt.Equal(oldCheckpoint) {
		t.Error("A deferred cycle must not advance the checkpoint")
	}
	if run.IsRunning {
		t.Error("Running flag must clear after a deferred cycle")
	}
}

func TestPollAndNotifyDeliveryFailureKeepsCheckpoint(t *testing.T) {
	f := newNotifyFixture()
	oldCheckpoint := time.Now().Add(-time.Hour)
	f.setCheckpoint(oldCheckpoint, false)
	f.rfc.Rfcs[5] = &models.RfcToBe{ID: 5, Disposition: models.DispositionInProgress}
	f.addChange(5, time.Now().Add(-10*time.Minute))
	f.sink.Err = errors.New("sink unavailable")

	if err := f.svc.PollAndNotify(context.Background()); err == nil {
		t.Fatal("Delivery failure must surface as an error")
	}

	run := f.taskRun.Runs[models.TaskProcessRfcChanges]
	if !run.LastRunAt.Equal(oldCheckpoint) {
		t.Error("Checkpoint must not advance on delivery failure, so changes retry")
	}
	if run.IsRunning {
		t.Error("Running flag must clear even on failure")
	}
}

func TestPollAndNotifyFiltersToInProgress(t *testing.T) {
	f := newNotifyFixture()
	f.setCheckpoint(time.Now().Add(-time.Hour), false)
	f.rfc.Rfcs[5] = &models.RfcToBe{ID: 5, Disposition: models.DispositionPublished}
	f.addChange(5, time.Now().Add(-10*time.Minute))

	if err := f.svc.PollAndNotify(context.Background()); err != nil {
		t.Fatalf("PollAndNotify failed: %v", err)
	}

	if len(f.sink.Batches) != 0 {
		t.Error("A document that left in-progress must not be notified")
	}
	run := f.taskRun.Runs[models.TaskProcessRfcChanges]
	if run.IsRunning {
		t.Error("Running flag must clear")
	}
	if !run.LastRunAt.After(time.Now().Add(-time.Minute)) {
		t.Error("An empty cycle still advances the checkpoint")
	}
}

// cancellingSink cancels the cycle's context before failing, the shape
// of an HTTP-triggered poll whose request is torn down mid-delivery.
type cancellingSink struct {
	cancel context.CancelFunc
}

func (s *cancellingSink) NotifyChanged(ctx context.Context, rfcIDs []int64) error {
	s.cancel()
	return errors.New("sink unavailable")
}

func TestPollAndNotifyReleasesGuardOnCancelledContext(t *testing.T) {
	f := newNotifyFixture()
	oldCheckpoint := time.Now().Add(-time.Hour)
	f.setCheckpoint(oldCheckpoint, false)
	f.rfc.Rfcs[5] = &models.RfcToBe{ID: 5, Disposition: models.DispositionInProgress}
	f.addChange(5, time.Now().Add(-10*time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repos := &repository.Repositories{
		Rfc:        f.rfc,
		Assignment: mocks.NewMockAssignmentRepository(),
		Blocking:   mocks.NewMockBlockingRepository(),
		Related:    mocks.NewMockRelatedRepository(),
		TaskRun:    f.taskRun,
		History:    f.history,
	}
	svc := service.NewNotifyService(repos, &cancellingSink{cancel: cancel}, time.Minute, zerolog.Nop())

	if err := svc.PollAndNotify(ctx); err == nil {
		t.Fatal("Delivery failure must surface as an error")
	}

	run := f.taskRun.Runs[models.TaskProcessRfcChanges]
	if run.IsRunning {
		t.Error("Running flag must clear even when the cycle's context is cancelled")
	}
	if !run.LastRunAt.Equal(oldCheckpoint) {
		t.Error("Checkpoint must not advance on delivery failure")
	}
}

func TestPollAndNotifyClusterMemberResolution(t *testing.T) {
	f := newNotifyFixture()
	f.setCheckpoint(time.Now().Add(-time.Hour), false)
	f.rfc.Rfcs[9] = &models.RfcToBe{
		ID:          9,
		DraftName:   "draft-cluster-member",
		Disposition: models.DispositionInProgress,
	}
	f.history.DraftNameToRfc["draft-cluster-member"] = 9
	f.history.Entries = append(f.history.Entries, &models.HistoryEntry{
		EntityType:  models.HistoryClusterMember,
		EntityID:    "draft-cluster-member",
		ChangeType:  models.ChangeCreated,
		HistoryDate: time.Now().Add(-10 * time.Minute),
	})

	if err := f.svc.PollAndNotify(context.Background()); err != nil {
		t.Fatalf("PollAndNotify failed: %v", err)
	}

	if len(f.sink.Batches) != 1 || len(f.sink.Batches[0]) != 1 || f.sink.Batches[0][0] != 9 {
		t.Errorf("Expected cluster change to resolve to document 9, got %v", f.sink.Batches)
	}
}
