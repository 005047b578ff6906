// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"sync"

	"github.com/tomtom215/mirrorgate/internal/logging"
)

// AckRecord captures one applied acknowledgement.
type AckRecord struct {
	MessageID int64
	Reason    AckReason
}

// Queue holds message references in three tiers: visible, intermediate
// (added but not yet flushed), and paged.
type Queue struct {
	mu sync.Mutex

	name    string
	address string
	durable bool

	storage *StorageManager
	store   *Store
	emit    func(MirrorOp)

	visible      []*MessageReference
	intermediate []*MessageReference
	paged        []*MessageReference

	acked []AckRecord
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Address returns the address the queue is bound to.
func (q *Queue) Address() string { return q.address }

// AddIntermediate appends a reference to the intermediate tier. The
// reference is not visible until the tier is flushed.
func (q *Queue) AddIntermediate(ref *MessageReference) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ref.QueueName = q.name
	q.intermediate = append(q.intermediate, ref)
}

// FlushIntermediate moves all intermediate references to the visible tier
// in addition order.
func (q *Queue) FlushIntermediate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.intermediate) == 0 {
		return
	}
	q.visible = append(q.visible, q.intermediate...)
	q.intermediate = nil
}

// RemoveWithSuppliedID removes and returns the visible reference whose
// replication identity matches (origin, internalID). References without an
// origin property count as born on localNodeID. Returns nil when no visible
// reference matches.
func (q *Queue) RemoveWithSuppliedID(localNodeID, origin string, internalID int64) *MessageReference {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, ref := range q.visible {
		refOrigin, refID, ok := ref.Identity(localNodeID)
		if !ok {
			continue
		}
		if refOrigin == origin && refID == internalID {
			q.visible = append(q.visible[:i], q.visible[i+1:]...)
			return ref
		}
	}
	return nil
}

// Acknowledge applies an acknowledgement with no consumer attached. The
// durable effect is queued on the storage manager.
func (q *Queue) Acknowledge(ref *MessageReference, reason AckReason) {
	q.mu.Lock()
	q.acked = append(q.acked, AckRecord{MessageID: ref.Message.ID, Reason: reason})
	q.mu.Unlock()

	q.storage.EnqueueIO(func() {})
	if q.emit != nil {
		q.emit(MirrorOp{Kind: MirrorOpAck, Queue: q.name, MessageID: ref.Message.ID})
	}
}

// Expire expires a reference with no consumer attached.
func (q *Queue) Expire(ref *MessageReference) {
	q.mu.Lock()
	q.acked = append(q.acked, AckRecord{MessageID: ref.Message.ID, Reason: AckExpired})
	q.mu.Unlock()

	q.storage.EnqueueIO(func() {})
	if q.emit != nil {
		q.emit(MirrorOp{Kind: MirrorOpExpire, Queue: q.name, MessageID: ref.Message.ID})
	}
}

// Page moves a visible reference to the paged tier, persisting its record.
func (q *Queue) Page(ref *MessageReference) {
	q.mu.Lock()
	for i, r := range q.visible {
		if r == ref {
			q.visible = append(q.visible[:i], q.visible[i+1:]...)
			break
		}
	}
	q.paged = append(q.paged, ref)
	q.mu.Unlock()

	if q.store != nil {
		origin, internalID, _ := ref.Identity("")
		rec := PagedRecord{
			MessageID:  ref.Message.ID,
			Address:    ref.Message.Address,
			Origin:     origin,
			InternalID: internalID,
			Body:       ref.Message.Body,
		}
		if err := q.store.PutPaged(q.name, rec); err != nil {
			logging.Warn().Err(err).Str("queue", q.name).Msg("paged reference not persisted")
		}
	}
}

// PageScan walks the paged tier looking for (origin, internalID) with a
// 3-way comparator: equal origins compare by internal id, differing origins
// advance. Returns the matching index. Internal ids are monotonic per
// origin, so a comparison past the target ends the scan early.
func (q *Queue) PageScan(localNodeID, origin string, internalID int64) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, ref := range q.paged {
		refOrigin, refID, ok := ref.Identity(localNodeID)
		if !ok {
			continue
		}
		c := comparePagedIdentity(refOrigin, refID, origin, internalID)
		switch {
		case c == 0:
			return i, true
		case c > 0:
			return 0, false
		}
	}
	return 0, false
}

// comparePagedIdentity is the scan comparator: equal origins yield the
// signum of refID-targetID, differing origins yield -1 (advance).
func comparePagedIdentity(refOrigin string, refID int64, origin string, internalID int64) int {
	if refOrigin != origin {
		return -1
	}
	switch {
	case refID < internalID:
		return -1
	case refID > internalID:
		return 1
	default:
		return 0
	}
}

// AckPaged acknowledges the paged reference at the given scan index against
// the paging subscription, removing it from the tier and the store.
func (q *Queue) AckPaged(index int, reason AckReason) {
	q.mu.Lock()
	if index < 0 || index >= len(q.paged) {
		q.mu.Unlock()
		return
	}
	ref := q.paged[index]
	q.paged = append(q.paged[:index], q.paged[index+1:]...)
	q.acked = append(q.acked, AckRecord{MessageID: ref.Message.ID, Reason: reason})
	q.mu.Unlock()

	if q.store != nil {
		if err := q.store.DeletePaged(q.name, ref.Message.ID); err != nil {
			logging.Warn().Err(err).Str("queue", q.name).Msg("paged ack not persisted")
		}
	}
	q.storage.EnqueueIO(func() {})
	if q.emit != nil {
		q.emit(MirrorOp{Kind: MirrorOpAck, Queue: q.name, MessageID: ref.Message.ID})
	}
}

// HoldsIdentity reports whether any visible reference matches the identity.
func (q *Queue) HoldsIdentity(localNodeID, origin string, internalID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ref := range q.visible {
		refOrigin, refID, ok := ref.Identity(localNodeID)
		if ok && refOrigin == origin && refID == internalID {
			return true
		}
	}
	return false
}

// VisibleCount returns the size of the visible tier.
func (q *Queue) VisibleCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.visible)
}

// IntermediateCount returns the size of the intermediate tier.
func (q *Queue) IntermediateCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.intermediate)
}

// PagedCount returns the size of the paged tier.
func (q *Queue) PagedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.paged)
}

// Acked returns a copy of the applied acknowledgement records.
func (q *Queue) Acked() []AckRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]AckRecord, len(q.acked))
	copy(out, q.acked)
	return out
}
