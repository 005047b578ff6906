// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import "sync/atomic"

// IDGenerator hands out monotonically increasing local message ids.
type IDGenerator struct {
	next atomic.Int64
}

// NewIDGenerator returns a generator starting above the given floor.
// Restoring the floor from the durable store on boot keeps ids monotonic
// across restarts.
func NewIDGenerator(floor int64) *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(floor)
	return g
}

// Next returns the next id. Never returns zero.
func (g *IDGenerator) Next() int64 {
	return g.next.Add(1)
}

// Current returns the last id handed out.
func (g *IDGenerator) Current() int64 {
	return g.next.Load()
}
