package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultExpirySchedule runs the sweep at the top of every hour
	DefaultExpirySchedule = "@hourly"

	// sweepTimeout bounds a single sweep
	sweepTimeout = 2 * time.Minute
)

// Expirer marks lapsed subscriptions as expired. *service.SubscriptionService implements it.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpirySweeper periodically flips active/cancelled subscriptions past expires_at to expired.
// Entitlement checks read expires_at directly, so the sweep only keeps status tidy.
type ExpirySweeper struct {
	expirer  Expirer
	schedule string
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
}

func NewExpirySweeper(expirer Expirer, schedule string) *ExpirySweeper {
	if schedule == "" {
		schedule = DefaultExpirySchedule
	}
	return &ExpirySweeper{
		expirer:  expirer,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the job and starts the scheduler. ctx bounds every sweep.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid expiry schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.Printf("[ExpirySweeper] Started: schedule=%s", s.schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Printf("[ExpirySweeper] Stopped")
}

// RunOnce performs a single sweep. Overlapping runs are skipped.
func (s *ExpirySweeper) RunOnce(ctx context.Context) int64 {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Printf("[ExpirySweeper] Skipping: previous sweep still running")
		return 0
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	startTime := time.Now()
	expired, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		log.Printf("[ExpirySweeper] Sweep FAILED: err=%v", err)
		return 0
	}
	log.Printf("[ExpirySweeper] Sweep OK: expired=%d duration=%v", expired, time.Since(startTime))
	return expired
}
