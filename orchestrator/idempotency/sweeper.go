// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"vocalbridge/platform/shared/logger"
)

// DefaultSweepSchedule runs the cleanup at minute 17 of every hour.
const DefaultSweepSchedule = "17 * * * *"

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Sweeper periodically deletes expired records.
type Sweeper struct {
	cache   *Cache
	cron    *cron.Cron
	log     *logger.Logger
	timeout time.Duration
}

// NewSweeper schedules cache.CleanupExpired on the given cron expression.
func NewSweeper(cache *Cache, schedule string, log *logger.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if log == nil {
		log = logger.New("idempotency-sweeper")
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s := &Sweeper{
		cache:   cache,
		cron:    cron.New(cron.WithParser(cronParser)),
		log:     log,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Sweep runs one cleanup immediately.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.cache.CleanupExpired(ctx)
	if err != nil {
		s.log.Error("", "", "idempotency sweep failed", map[string]interface{}{"error": err.Error()})
		return 0, err
	}
	s.log.InfoWithDuration("", "", "idempotency sweep completed", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"deleted": n,
	})
	return n, nil
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.Sweep(ctx)
}
