// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

// LoadBalancingPolicy selects where routed messages may land.
type LoadBalancingPolicy int

const (
	// LoadBalanceDefault lets the binding choose, including cluster peers.
	LoadBalanceDefault LoadBalancingPolicy = iota

	// LoadBalanceLocalOnly restricts routing to this node. The replication
	// path always routes local-only so the origin's placement decisions are
	// not second-guessed.
	LoadBalanceLocalOnly
)

// RoutingContext carries per-route state. The mirror target reuses one
// context per replayed message as scratch.
type RoutingContext struct {
	// Tx stages queue additions; nil routes apply immediately.
	Tx *Transaction

	// MirrorSource marks the component that caused the route. The local
	// outbound mirror reads it (together with the controller scope) to skip
	// re-mirroring replayed operations.
	MirrorSource any

	// LoadBalancing is fixed to LoadBalanceLocalOnly on the replication path.
	LoadBalancing LoadBalancingPolicy

	// DuplicateDetection toggles the broker's own dedup; the mirror target
	// disables it and runs its own per-origin cache instead.
	DuplicateDetection bool
}

// Reset clears the context for reuse.
func (r *RoutingContext) Reset() {
	r.Tx = nil
	r.MirrorSource = nil
	r.LoadBalancing = LoadBalanceDefault
	r.DuplicateDetection = true
}

// Binding ties a queue to its address.
type Binding struct {
	queue *Queue
}

// QueueName returns the bound queue's name.
func (b *Binding) QueueName() string { return b.queue.name }

// Queue returns the bound queue.
func (b *Binding) Queue() *Queue { return b.queue }

// enqueueOp stages one queue addition on a transaction. Commit adds the
// reference to the intermediate tier and queues the flush IO; rollback
// leaves the queue untouched.
type enqueueOp struct {
	queue *Queue
	ref   *MessageReference
}

func (op *enqueueOp) Commit() {
	op.queue.AddIntermediate(op.ref)
	q := op.queue
	q.storage.EnqueueIO(func() { q.FlushIntermediate() })
}

func (op *enqueueOp) Rollback() {}

// Route delivers a message to this binding. With a transaction on the
// context the addition is staged; otherwise it applies and flushes
// immediately.
func (b *Binding) Route(msg *Message, rctx *RoutingContext) {
	ref := &MessageReference{Message: msg}
	if rctx != nil && rctx.Tx != nil {
		rctx.Tx.Add(&enqueueOp{queue: b.queue, ref: ref})
	} else {
		b.queue.AddIntermediate(ref)
		b.queue.FlushIntermediate()
	}

	if b.queue.emit != nil {
		b.queue.emit(MirrorOp{
			Kind:      MirrorOpRoute,
			Address:   msg.Address,
			Queue:     b.queue.name,
			MessageID: msg.ID,
			Context:   rctx,
		})
	}
}
