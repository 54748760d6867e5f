package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/quorumsec/trustd/internal/trust/store"
)

// HousekeepingService periodically prunes expired blacklist entries and
// abandoned login sessions so neither store grows without bound.
type HousekeepingService struct {
	Blacklist store.Blacklist
	Sessions  store.Sessions
	Logger    *slog.Logger
	Interval  time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the cleanup worker. If interval is 0 or
// negative, defaults to 15 minutes.
func NewHousekeepingService(
	blacklist store.Blacklist,
	sessions store.Sessions,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &HousekeepingService{
		Blacklist: blacklist,
		Sessions:  sessions,
		Logger:    logger,
		Interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts down the worker, blocking until any in-progress cleanup
// finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run once on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup prunes each store independently; a failure in one never blocks
// the other.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now()

	if n, err := s.Blacklist.CleanupExpired(ctx, now); err != nil {
		s.Logger.Error("failed to prune revoked tokens", "error", err)
	} else if n > 0 {
		s.Logger.Debug("pruned revoked tokens", "count", n)
	}

	if n, err := s.Sessions.CleanupExpired(ctx, now); err != nil {
		s.Logger.Error("failed to prune login sessions", "error", err)
	} else if n > 0 {
		s.Logger.Debug("pruned login sessions", "count", n)
	}
}
