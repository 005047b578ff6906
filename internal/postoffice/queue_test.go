// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import "testing"

func newTestQueue() (*Queue, *StorageManager) {
	storage := NewStorageManager()
	return &Queue{name: "q1", address: "a1", storage: storage}, storage
}

func refWithIdentity(origin string, internalID, messageID int64) *MessageReference {
	msg := &Message{ID: messageID, Address: "a1"}
	msg.SetProperty(PropInternalID, internalID)
	msg.SetProperty(PropInternalBrokerID, origin)
	return &MessageReference{Message: msg}
}

func TestQueue_IntermediateNotVisibleUntilFlush(t *testing.T) {
	q, _ := newTestQueue()

	q.AddIntermediate(refWithIdentity("B", 1, 10))
	if q.VisibleCount() != 0 {
		t.Error("intermediate additions must not be visible")
	}
	if q.IntermediateCount() != 1 {
		t.Errorf("intermediate count = %d, want 1", q.IntermediateCount())
	}

	q.FlushIntermediate()
	if q.VisibleCount() != 1 {
		t.Errorf("visible count = %d after flush, want 1", q.VisibleCount())
	}
	if q.IntermediateCount() != 0 {
		t.Error("flush must empty the intermediate tier")
	}
}

func TestQueue_RemoveWithSuppliedID(t *testing.T) {
	q, _ := newTestQueue()
	q.AddIntermediate(refWithIdentity("B", 1, 10))
	q.AddIntermediate(refWithIdentity("B", 2, 11))
	q.FlushIntermediate()

	ref := q.RemoveWithSuppliedID("local", "B", 2)
	if ref == nil || ref.Message.ID != 11 {
		t.Fatalf("removed %+v, want message 11", ref)
	}
	if q.VisibleCount() != 1 {
		t.Errorf("visible count = %d, want 1", q.VisibleCount())
	}

	if q.RemoveWithSuppliedID("local", "B", 2) != nil {
		t.Error("second removal of the same identity must miss")
	}
	if q.RemoveWithSuppliedID("local", "C", 1) != nil {
		t.Error("wrong origin must miss")
	}
}

func TestQueue_LocalNodeSubstitution(t *testing.T) {
	q, _ := newTestQueue()

	// A message without internal_broker_id is born on the local node.
	msg := &Message{ID: 5}
	msg.SetProperty(PropInternalID, int64(9))
	q.AddIntermediate(&MessageReference{Message: msg})
	q.FlushIntermediate()

	if q.RemoveWithSuppliedID("local", "remote", 9) != nil {
		t.Error("local-born reference must not match a remote origin")
	}
	if q.RemoveWithSuppliedID("local", "local", 9) == nil {
		t.Error("local-born reference must match the local node id")
	}
}

func TestQueue_PageScanComparator(t *testing.T) {
	q, _ := newTestQueue()

	for _, ref := range []*MessageReference{
		refWithIdentity("A", 5, 1),
		refWithIdentity("B", 10, 2),
		refWithIdentity("B", 20, 3),
		refWithIdentity("C", 1, 4),
	} {
		q.AddIntermediate(ref)
		q.FlushIntermediate()
		q.Page(ref)
	}

	tests := []struct {
		name       string
		origin     string
		internalID int64
		wantIndex  int
		wantFound  bool
	}{
		{"first of origin", "B", 10, 1, true},
		{"second of origin", "B", 20, 2, true},
		{"foreign origins advance", "C", 1, 3, true},
		{"past the target ends the scan", "B", 15, 0, false},
		{"unknown identity", "B", 99, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, found := q.PageScan("local", tt.origin, tt.internalID)
			if found != tt.wantFound || (found && idx != tt.wantIndex) {
				t.Errorf("PageScan(%s,%d) = (%d,%v), want (%d,%v)",
					tt.origin, tt.internalID, idx, found, tt.wantIndex, tt.wantFound)
			}
		})
	}
}

func TestQueue_AckPagedRemovesEntry(t *testing.T) {
	q, _ := newTestQueue()
	ref := refWithIdentity("B", 10, 2)
	q.AddIntermediate(ref)
	q.FlushIntermediate()
	q.Page(ref)

	idx, found := q.PageScan("local", "B", 10)
	if !found {
		t.Fatal("paged reference not found")
	}
	q.AckPaged(idx, AckNormal)

	if q.PagedCount() != 0 {
		t.Errorf("paged count = %d, want 0", q.PagedCount())
	}
	acked := q.Acked()
	if len(acked) != 1 || acked[0].MessageID != 2 {
		t.Errorf("acked = %+v, want message 2", acked)
	}
}

func TestQueue_ExpireRecordsExpiredReason(t *testing.T) {
	q, _ := newTestQueue()
	ref := refWithIdentity("B", 1, 10)
	q.AddIntermediate(ref)
	q.FlushIntermediate()

	got := q.RemoveWithSuppliedID("local", "B", 1)
	if got == nil {
		t.Fatal("reference not found")
	}
	q.Expire(got)

	acked := q.Acked()
	if len(acked) != 1 || acked[0].Reason != AckExpired {
		t.Errorf("acked = %+v, want one expired record", acked)
	}
}
