// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"errors"
	"testing"
)

func TestPostOffice_CreateQueueImplicitAddress(t *testing.T) {
	po := New("node", NewStorageManager(), nil)

	if err := po.CreateQueue(QueueConfig{Name: "q1", Address: "a1"}); err != nil {
		t.Fatalf("create queue: %v", err)
	}
	if !po.HasAddress("a1") {
		t.Error("creating a queue must register its address")
	}
	if err := po.CreateQueue(QueueConfig{Name: "q1", Address: "a1"}); !errors.Is(err, ErrQueueExists) {
		t.Errorf("duplicate create = %v, want ErrQueueExists", err)
	}
}

func TestPostOffice_RouteFansOutToAllBindings(t *testing.T) {
	storage := NewStorageManager()
	po := New("node", storage, nil)
	for _, q := range []string{"q1", "q2", "q3"} {
		if err := po.CreateQueue(QueueConfig{Name: q, Address: "a1"}); err != nil {
			t.Fatalf("create %s: %v", q, err)
		}
	}

	msg := &Message{ID: 1, Address: "a1"}
	n, err := po.Route(msg, nil)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if n != 3 {
		t.Errorf("routed to %d bindings, want 3", n)
	}
	for _, q := range []string{"q1", "q2", "q3"} {
		if po.Queue(q).VisibleCount() != 1 {
			t.Errorf("%s visible = %d, want 1", q, po.Queue(q).VisibleCount())
		}
	}
}

func TestPostOffice_TransactionalRouteDefersVisibility(t *testing.T) {
	storage := NewStorageManager()
	po := New("node", storage, nil)
	if err := po.CreateQueue(QueueConfig{Name: "q1", Address: "a1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tx := NewTransaction(storage)
	rctx := &RoutingContext{Tx: tx, LoadBalancing: LoadBalanceLocalOnly}
	if _, err := po.Route(&Message{ID: 1, Address: "a1"}, rctx); err != nil {
		t.Fatalf("route: %v", err)
	}
	if po.Queue("q1").VisibleCount() != 0 || po.Queue("q1").IntermediateCount() != 0 {
		t.Error("nothing may land before commit")
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if po.Queue("q1").IntermediateCount() != 1 {
		t.Errorf("intermediate = %d after commit, want 1", po.Queue("q1").IntermediateCount())
	}
	storage.Flush()
	if po.Queue("q1").VisibleCount() != 1 {
		t.Errorf("visible = %d after flush, want 1", po.Queue("q1").VisibleCount())
	}
}

func TestPostOffice_DeleteQueueRemovesBinding(t *testing.T) {
	po := New("node", NewStorageManager(), nil)
	if err := po.CreateQueue(QueueConfig{Name: "q1", Address: "a1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := po.DeleteQueue("a1", "q1", MirrorDeleteQueueOptions()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if po.Queue("q1") != nil {
		t.Error("queue must be gone")
	}
	if len(po.BindingsFor("a1")) != 0 {
		t.Error("binding must be gone")
	}
	// The address survives: mirror deletes never auto-delete addresses.
	if !po.HasAddress("a1") {
		t.Error("address must survive a mirror queue delete")
	}

	if err := po.DeleteQueue("a1", "q1", MirrorDeleteQueueOptions()); !errors.Is(err, ErrQueueNotFound) {
		t.Errorf("second delete = %v, want ErrQueueNotFound", err)
	}
}

func TestPostOffice_DuplicateIDCacheMemoized(t *testing.T) {
	po := New("node", NewStorageManager(), nil)

	c1 := po.GetDuplicateIDCache("$mirror_B", 8)
	c2 := po.GetDuplicateIDCache("$mirror_B", 8)
	if c1 != c2 {
		t.Error("same key must return the same cache instance")
	}
}
