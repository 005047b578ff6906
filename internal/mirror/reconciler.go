// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"strconv"

	"github.com/tomtom215/mirrorgate/internal/logging"
	"github.com/tomtom215/mirrorgate/internal/metrics"
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// Stage is a step of the ack reconciliation state machine. Stages advance
// monotonically 0 → 1 → 2 and never loop back, so every ack terminates in
// bounded work.
type Stage int

const (
	// StageDirect scans the queue's visible tier by supplied identity.
	StageDirect Stage = iota

	// StageFlush flushes the intermediate tier, then retries the removal.
	StageFlush

	// StagePaged scans paged storage, unless the reason is Expired.
	StagePaged
)

// String names the stage for logs and metrics.
func (s Stage) String() string {
	return strconv.Itoa(int(s))
}

// ReconcileOutcome reports token ownership after Reconcile returns.
type ReconcileOutcome int

const (
	// AckDeferred means the reconciler owns the token and will settle it
	// when the state machine finishes.
	AckDeferred ReconcileOutcome = iota

	// AckNotApplied means the ack was dropped (missing queue); the caller
	// still owns the token and settles through the after-IO path.
	AckNotApplied
)

// PendingAck is one remote acknowledgement moving through the stages.
type PendingAck struct {
	Origin     string
	InternalID int64
	Queue      string
	Reason     postoffice.AckReason

	// Stage is the current retry stage.
	Stage Stage

	// Visited records the stages entered, in order.
	Visited []Stage

	token *SettleToken
}

// AckReconciler locates the local reference of a remotely-acked message
// across three progressively more expensive tiers and applies the ack.
//
// A miss at stage 0 does not fail the ack: the reference may still be in
// flight through persistence (a replay racing the ack), so the retry is
// scheduled behind the storage layer's pending IO and re-enters the handler
// task through Tasks.
type AckReconciler struct {
	po      *postoffice.PostOffice
	storage *postoffice.StorageManager
	tasks   Tasks
	scope   *ControllerScope
}

// NewAckReconciler builds a reconciler for one link.
func NewAckReconciler(po *postoffice.PostOffice, tasks Tasks, scope *ControllerScope) *AckReconciler {
	return &AckReconciler{po: po, storage: po.Storage(), tasks: tasks, scope: scope}
}

// Reconcile starts the state machine for one ack. On AckDeferred the
// reconciler has taken ownership of the token.
func (r *AckReconciler) Reconcile(ack *PendingAck, tok *SettleToken) ReconcileOutcome {
	q := r.po.Queue(ack.Queue)
	if q == nil {
		logging.Warn().Str("queue", ack.Queue).Str("origin", ack.Origin).Int64("internal_id", ack.InternalID).Msg("ack for missing queue dropped")
		metrics.AcksDroppedTotal.Inc()
		return AckNotApplied
	}

	ack.token = tok
	r.step(ack, q)
	return AckDeferred
}

// step runs one stage transition. It must only ever execute on the handler
// task; retries scheduled from storage completions re-enter through tasks.
// The controller scope is held across each step so acks applied by a retry
// are not re-mirrored.
func (r *AckReconciler) step(ack *PendingAck, q *postoffice.Queue) {
	r.scope.Enter()
	defer r.scope.Exit()

	ack.Visited = append(ack.Visited, ack.Stage)

	switch ack.Stage {
	case StageDirect:
		if ref := q.RemoveWithSuppliedID(r.po.NodeID(), ack.Origin, ack.InternalID); ref != nil {
			metrics.AckStageTotal.WithLabelValues(ack.Stage.String(), "hit").Inc()
			r.apply(ack, q, ref)
			return
		}
		metrics.AckStageTotal.WithLabelValues(ack.Stage.String(), "miss").Inc()

		// Let a racing replay drain through persistence, then retry on the
		// handler task.
		r.storage.AfterCompleteOperations(func() {
			r.tasks.Enqueue(func() {
				ack.Stage = StageFlush
				r.step(ack, q)
			})
		})

	case StageFlush:
		q.FlushIntermediate()
		if ref := q.RemoveWithSuppliedID(r.po.NodeID(), ack.Origin, ack.InternalID); ref != nil {
			metrics.AckStageTotal.WithLabelValues(ack.Stage.String(), "hit").Inc()
			r.apply(ack, q, ref)
			return
		}
		metrics.AckStageTotal.WithLabelValues(ack.Stage.String(), "miss").Inc()
		ack.Stage = StagePaged
		r.step(ack, q)

	case StagePaged:
		if ack.Reason == postoffice.AckExpired {
			// The message will expire again when depaged; settle without
			// scanning.
			r.settle(ack)
			return
		}

		if idx, ok := q.PageScan(r.po.NodeID(), ack.Origin, ack.InternalID); ok {
			metrics.AckStageTotal.WithLabelValues(ack.Stage.String(), "hit").Inc()
			q.AckPaged(idx, ack.Reason)
			r.settle(ack)
			return
		}
		metrics.AckStageTotal.WithLabelValues(ack.Stage.String(), "miss").Inc()
		metrics.AcksDroppedTotal.Inc()
		logging.Debug().Str("queue", ack.Queue).Str("origin", ack.Origin).Int64("internal_id", ack.InternalID).Msg("ack reference not found after all stages; message may have been purged")
		r.settle(ack)
	}
}

// apply applies the located ack with no consumer and defers settlement
// behind its persistence.
func (r *AckReconciler) apply(ack *PendingAck, q *postoffice.Queue, ref *postoffice.MessageReference) {
	if ack.Reason == postoffice.AckExpired {
		q.Expire(ref)
	} else {
		q.Acknowledge(ref, ack.Reason)
	}
	r.settle(ack)
}

// settle arms the token's persistence-completion face in the current
// operation context.
func (r *AckReconciler) settle(ack *PendingAck) {
	ack.token.SettleAfterIO(r.storage)
}
