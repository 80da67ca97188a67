package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Scheduler starts due scheduled campaigns in the background.
type Scheduler struct {
	engine       *Engine
	logger       *slog.Logger
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler polling at the given interval.
func NewScheduler(engine *Engine, pollInterval time.Duration, logger *slog.Logger) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		engine:       engine,
		logger:       logger.With("component", "scheduler"),
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the scheduler loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Info("scheduler started", "poll_interval", s.pollInterval)
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue()
		}
	}
}

// dispatchDue sends every scheduled campaign whose send time has
// passed. Each campaign is claimed through the same single-flight
// transition the API uses, so a concurrent manual send is harmless.
func (s *Scheduler) dispatchDue() {
	due, err := s.engine.campaigns.GetDueScheduled(time.Now())
	if err != nil {
		s.logger.Error("failed to load due campaigns", "error", err)
		return
	}

	for _, campaign := range due {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		result, err := s.engine.SendCampaign(s.ctx, campaign.ID, campaign.UserID)
		if err != nil {
			if errors.Is(err, ErrAlreadySent) || errors.Is(err, ErrSendInProgress) {
				continue
			}
			s.logger.Error("scheduled dispatch failed", "campaign_id", campaign.ID, "error", err)
			continue
		}

		s.logger.Info("scheduled campaign dispatched",
			"campaign_id", campaign.ID,
			"sent", result.SentCount,
			"failed", result.FailedCount,
		)
	}
}
