// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
)

// DefaultScheduleInterval is how often the scheduler looks for stale tenants.
const DefaultScheduleInterval = 6 * time.Hour

// Scheduler periodically syncs every connected tenant whose data is stale.
// Tenants are synced one after another to stay inside Poster's rate limits.
type Scheduler struct {
	orch       *Orchestrator
	interval   time.Duration
	staleAfter time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler.
func NewScheduler(orch *Orchestrator, interval, staleAfter time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultScheduleInterval
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Scheduler{orch: orch, interval: interval, staleAfter: staleAfter}
}

// Start launches the schedule loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sync scheduler is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx, s.stopChan)

	logging.Info().Dur("interval", s.interval).Dur("stale_after", s.staleAfter).Msg("sync scheduler started")
	return nil
}

// Stop ends the loop and waits for the current pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("sync scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one pass and returns how many tenants were synced.
// A tenant that is already syncing is skipped without error.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	tenants, err := s.orch.tokens.ListConnected(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("scheduler could not list tenants")
		return 0
	}

	synced := 0
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			break
		}
		stale, err := s.orch.NeedsSync(ctx, tenantID, s.staleAfter)
		if err != nil {
			logging.Warn().Err(err).Str("tenant_id", tenantID).Msg("scheduler could not read sync state")
			continue
		}
		if !stale {
			continue
		}

		_, err = s.orch.Run(ctx, tenantID, AllResources(), models.TriggerScheduled)
		switch {
		case errors.Is(err, models.ErrAlreadyInProgress):
			logging.Debug().Str("tenant_id", tenantID).Msg("scheduled sync skipped, run in progress")
			continue
		case err != nil:
			logging.Warn().Err(err).Str("tenant_id", tenantID).Msg("scheduled sync failed")
		}
		synced++
	}
	if synced > 0 {
		logging.Info().Int("tenants", synced).Msg("scheduled sync pass finished")
	}
	return synced
}
