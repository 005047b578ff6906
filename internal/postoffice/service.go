// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/mirrorgate/internal/logging"
)

// DefaultGCInterval is how often the store service runs value-log GC.
const DefaultGCInterval = 5 * time.Minute

// gcDiscardRatio rewrites a value-log file once half of it is stale.
const gcDiscardRatio = 0.5

// StoreService keeps the durable layer under supervision: it runs badger's
// value-log garbage collection on an interval and surfaces store failures
// to the supervisor instead of letting them escape the tree. It implements
// suture's Service.
type StoreService struct {
	store    *Store
	interval time.Duration
}

// NewStoreService wraps a store. A zero interval uses DefaultGCInterval.
func NewStoreService(store *Store, interval time.Duration) *StoreService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &StoreService{store: store, interval: interval}
}

// Serve runs GC rounds until the context is canceled. One GC call reclaims
// at most one value-log file, so rounds repeat until ErrNoRewrite.
func (s *StoreService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reclaimed := 0
			for {
				err := s.store.RunGC(gcDiscardRatio)
				if errors.Is(err, badger.ErrNoRewrite) {
					break
				}
				if err != nil {
					return err
				}
				reclaimed++
			}
			if reclaimed > 0 {
				logging.Debug().Int("files", reclaimed).Msg("store value-log gc reclaimed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *StoreService) String() string {
	return "store"
}
