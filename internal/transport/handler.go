// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package transport

import (
	"context"
)

// HandlerTask is the link's single-threaded cooperative executor: all event
// handling, reconciler stage transitions, and settlement run on its one
// goroutine. IO-completion callbacks re-enqueue instead of touching mirror
// state from their own threads.
type HandlerTask struct {
	ch chan func()

	// afterEach runs after every executed function; the link wires it to
	// the storage manager's Flush so persistence completions and deferred
	// settles drain between events.
	afterEach func()
}

// NewHandlerTask builds a task with the given queue depth. Sizing it to the
// credit window means enqueues from the subscriber can never outrun credit.
func NewHandlerTask(depth int, afterEach func()) *HandlerTask {
	return &HandlerTask{
		ch:        make(chan func(), depth),
		afterEach: afterEach,
	}
}

// Enqueue schedules fn on the handler goroutine, preserving order.
func (h *HandlerTask) Enqueue(fn func()) {
	h.ch <- fn
}

// Run executes queued functions until the context is canceled.
func (h *HandlerTask) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-h.ch:
			fn()
			if h.afterEach != nil {
				h.afterEach()
			}
		}
	}
}
