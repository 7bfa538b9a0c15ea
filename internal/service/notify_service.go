package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
	"github.com/rs/zerolog"
)

// notifyService is the concrete implementation of NotifyService
type notifyService struct {
	repos       *repository.Repositories
	sink        Sink
	quietPeriod time.Duration
	log         zerolog.Logger
	now         func() time.Time
}

// NewNotifyService creates a new NotifyService
func NewNotifyService(repos *repository.Repositories, sink Sink, quietPeriod time.Duration, log zerolog.Logger) NotifyService {
	return &notifyService{
		repos:       repos,
		sink:        sink,
		quietPeriod: quietPeriod,
		log:         log.With().Str("service", "notify").Logger(),
		now:         time.Now,
	}
}

// PollAndNotify scans the tracked history streams for changes since the
// last checkpoint and sends one batched notification for the affected
// in-progress documents. The checkpoint advances only on successful
// delivery or when there is nothing to deliver, so a transport failure
// keeps the changes eligible for the next cycle.
func (s *notifyService) PollAndNotify(ctx context.Context) error {
	checkTime := s.now()

	started, lastRunAt, err := s.repos.TaskRun.TryStart(ctx, models.TaskProcessRfcChanges, checkTime)
	if err != nil {
		return fmt.Errorf("claim task %s: %w", models.TaskProcessRfcChanges, err)
	}
	if !started {
		s.log.Debug().Msg("Poll already running, skipping cycle")
		return nil
	}

	// The running flag must clear on every exit path, even when the
	// caller's context was cancelled mid-cycle. The checkpoint moves
	// only when advanceTo is set below.
	var advanceTo *time.Time
	releaseCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := s.repos.TaskRun.Finish(releaseCtx, models.TaskProcessRfcChanges, advanceTo); err != nil {
			s.log.Error().Err(err).Msg("Failed to release poll task")
		}
	}()

	// A change inside the quiet period means an edit burst may still be
	// in flight; notify next cycle instead of mid-edit.
	recent, err := s.repos.History.AnySince(ctx, checkTime.Add(-s.quietPeriod))
	if err != nil {
		return fmt.Errorf("check recent changes: %w", err)
	}
	if recent {
		s.log.Debug().Msg("Changes within quiet period, deferring notification")
		return nil
	}

	changed, err := s.repos.History.RfcIDsSince(ctx, lastRunAt)
	if err != nil {
		return fmt.Errorf("scan changes since checkpoint: %w", err)
	}
	inProgress, err := s.repos.Rfc.FilterInProgress(ctx, changed)
	if err != nil {
		return fmt.Errorf("filter in-progress documents: %w", err)
	}

	if len(inProgress) > 0 {
		if err := s.sink.NotifyChanged(ctx, inProgress); err != nil {
			return fmt.Errorf("notify changed documents: %w", err)
		}
		s.log.Info().Ints64("rfc_ids", inProgress).Msg("Notified sink of changed documents")
	}

	advanceTo = &checkTime
	return nil
}
