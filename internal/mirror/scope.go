// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import "sync/atomic"

// ControllerScope marks the handler task while a replicated event is being
// applied. The local outbound mirror source must check Active before
// emitting, which is what breaks the replication loop: mutations induced by
// replay are never re-mirrored back to the source.
//
// The scope nests; Enter and Exit are balanced around every dispatch
// regardless of outcome. The counter is atomic only so that storage-flush
// callbacks observing it from completion hooks read a coherent value.
type ControllerScope struct {
	depth atomic.Int32
}

// Enter marks the scope active.
func (s *ControllerScope) Enter() {
	s.depth.Add(1)
}

// Exit unmarks one level of the scope.
func (s *ControllerScope) Exit() {
	if s.depth.Add(-1) < 0 {
		panic("mirror: ControllerScope.Exit without matching Enter")
	}
}

// Active reports whether an event is currently being applied.
func (s *ControllerScope) Active() bool {
	return s.depth.Load() > 0
}
