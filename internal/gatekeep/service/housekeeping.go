package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
)

// DefaultChallengeRetention is how long an expired challenge is kept before
// it may be purged.
const DefaultChallengeRetention = time.Hour

// HousekeepingService periodically purges expired challenges. Expiry is
// always judged when a challenge is consumed, so this only bounds storage.
// A challenge stays readable for Retention past its expiry, which keeps a
// late submission reporting ErrChallengeExpired rather than not found.
type HousekeepingService struct {
	Challenges store.Challenges
	Logger     *slog.Logger
	Interval   time.Duration
	Retention  time.Duration
	Now        func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour, a non-positive retention to
// DefaultChallengeRetention.
func NewHousekeepingService(challenges store.Challenges, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultChallengeRetention
	}

	return &HousekeepingService{
		Challenges: challenges,
		Logger:     logger,
		Interval:   interval,
		Retention:  retention,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes every challenge that expired more than Retention ago and
// returns how many were removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	cutoff := nowFrom(s.Now).Add(-orDefault(s.Retention, DefaultChallengeRetention))
	n, err := s.Challenges.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete expired challenges", "error", err)
		return 0
	}
	s.Logger.Debug("housekeeping cleanup completed", "deleted_challenges", n)
	return n
}
