package service

import (
	"context"
	"sync"
	"time"

	"github.com/kesara/purple/internal/config"
	"github.com/rs/zerolog"
)

// Scheduler drives the periodic background tasks: blocked-state
// reconciliation, change-notification polling, and index generation.
// Correctness does not depend on this process being the only scheduler;
// the tasks serialize through row locks and the single-flight guard.
type Scheduler struct {
	services *Services
	cfg      config.TaskConfig
	log      zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewScheduler creates a new Scheduler
func NewScheduler(services *Services, cfg config.TaskConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("service", "scheduler").Logger(),
	}
}

// Start launches the ticker loops. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().
		Dur("reconcile_interval", s.cfg.ReconcileInterval).
		Dur("poll_interval", s.cfg.PollInterval).
		Dur("index_interval", s.cfg.IndexInterval).
		Msg("Scheduler started")

	s.loop("reconcile", s.cfg.ReconcileInterval, func(ctx context.Context) error {
		return s.services.Blocking.ReconcileAll(ctx)
	})
	s.loop("notify", s.cfg.PollInterval, func(ctx context.Context) error {
		return s.services.Notify.PollAndNotify(ctx)
	})
	s.loop("index", s.cfg.IndexInterval, func(ctx context.Context) error {
		return s.services.Index.Refresh(ctx)
	})
}

// Stop cancels the loops and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(name, run)
			}
		}
	}()
}

// runOnce isolates a single tick; a panicking task must not take the
// whole scheduler down.
func (s *Scheduler) runOnce(name string, run func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("task", name).Interface("panic", r).Msg("Task panicked")
		}
	}()

	start := time.Now()
	if err := run(s.ctx); err != nil {
		s.log.Error().Err(err).Str("task", name).Msg("Task failed")
		return
	}
	s.log.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("Task completed")
}
