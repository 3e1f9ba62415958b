// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fudi-pos/fudi/internal/logging"
)

const gcDiscardRatio = 0.5

// RunGC rewrites value log files until badger reports nothing to reclaim.
func (s *DB) RunGC() error {
	if s.inMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// GCService runs RunGC on an interval. It implements suture.Service.
type GCService struct {
	db       *DB
	interval time.Duration
}

// DefaultGCInterval applies when NewGCService gets a non-positive interval.
const DefaultGCInterval = 10 * time.Minute

// NewGCService creates a GC service for db.
func NewGCService(db *DB, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &GCService{db: db, interval: interval}
}

// Serve blocks until ctx is canceled.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.db.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("document store GC failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (g *GCService) String() string {
	return "store-gc"
}
