// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import "time"

// StorageManager models the broker's persistence pipeline as two ordered
// queues: IO work, and completion hooks that must run only after all IO
// queued ahead of them has finished.
//
// Flush alternates phases: it drains the IO queue, then runs one batch of
// completion hooks, and repeats until both queues are empty. A completion
// hook registered while IO for a later event is still queued therefore runs
// after that IO — which is exactly the window the ack reconciler's stage-1
// retry relies on to let a racing replay materialize its reference.
//
// Only the link's handler task touches the manager, so it carries no locks.
type StorageManager struct {
	io          []func()
	completions []func()

	lastPersist time.Time
}

// NewStorageManager returns an empty manager.
func NewStorageManager() *StorageManager {
	return &StorageManager{}
}

// EnqueueIO schedules persistence work.
func (s *StorageManager) EnqueueIO(fn func()) {
	s.io = append(s.io, fn)
}

// AfterCompleteOperations registers a hook to run after all currently queued
// IO finishes.
func (s *StorageManager) AfterCompleteOperations(fn func()) {
	s.completions = append(s.completions, fn)
}

// ExecuteOnCompletion registers a hook in the current operation context; it
// runs after the pending IO drains. Same ordering as AfterCompleteOperations.
func (s *StorageManager) ExecuteOnCompletion(fn func()) {
	s.completions = append(s.completions, fn)
}

// Pending reports how much work is queued across both phases.
func (s *StorageManager) Pending() int {
	return len(s.io) + len(s.completions)
}

// LastPersist returns the time the most recent IO item finished.
func (s *StorageManager) LastPersist() time.Time {
	return s.lastPersist
}

// Flush runs queued IO and completion hooks to quiescence. Hooks may enqueue
// further work; the stage machine's monotonic transitions bound the loop.
func (s *StorageManager) Flush() {
	for len(s.io) > 0 || len(s.completions) > 0 {
		for len(s.io) > 0 {
			fn := s.io[0]
			s.io = s.io[1:]
			fn()
			s.lastPersist = time.Now()
		}

		batch := s.completions
		s.completions = nil
		for _, fn := range batch {
			fn()
		}
	}
}
