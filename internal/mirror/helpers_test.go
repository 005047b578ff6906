// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"testing"

	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

const (
	testNodeID    = "local-node"
	testRemoteID  = "remote-1"
	testWindow    = 16
	testAddress   = "a1"
	testQueueName = "q1"
)

// inlineTasks runs re-enqueued steps immediately; the tests drive the
// storage manager by hand, so everything stays on the test goroutine.
type inlineTasks struct{}

func (inlineTasks) Enqueue(fn func()) { fn() }

// fakeDelivery counts settlements.
type fakeDelivery struct {
	accepts int
}

func (d *fakeDelivery) Accept() { d.accepts++ }

func newTestTarget(t *testing.T) (*Target, *postoffice.PostOffice, *postoffice.StorageManager) {
	t.Helper()
	storage := postoffice.NewStorageManager()
	po := postoffice.New(testNodeID, storage, nil)
	tgt := NewTarget(po, inlineTasks{}, testRemoteID, testWindow)
	return tgt, po, storage
}

// mustCreateQueue registers a queue directly on the post office.
func mustCreateQueue(t *testing.T, po *postoffice.PostOffice, address, name string) {
	t.Helper()
	if err := po.CreateQueue(postoffice.QueueConfig{Name: name, Address: address, Durable: true}); err != nil {
		t.Fatalf("create queue %s: %v", name, err)
	}
}

// dataEvent builds a data message event as the decoder would.
func dataEvent(origin string, internalID int64, address string, targets []string, body string) (*InboundEvent, *fakeDelivery) {
	d := &fakeDelivery{}
	ev := &InboundEvent{
		Kind: KindDataMessage,
		Annotations: Annotations{
			BrokerID:      origin,
			InternalID:    internalID,
			HasInternalID: true,
			TargetQueues:  targets,
			Address:       address,
		},
		Message:  &postoffice.Message{Address: address, Body: []byte(body)},
		Delivery: d,
	}
	return ev, d
}

// ackEvent builds a PostAck event.
func ackEvent(origin string, internalID int64, queue string, reason postoffice.AckReason) (*InboundEvent, *fakeDelivery) {
	d := &fakeDelivery{}
	ev := &InboundEvent{
		Kind: KindPostAck,
		Annotations: Annotations{
			EventType: "PostAck",
			BrokerID:  origin,
			Queue:     queue,
			AckReason: reason,
		},
		AckID:    internalID,
		Delivery: d,
	}
	return ev, d
}

// adminEvent builds an administrative event with a JSON body.
func adminEvent(kind EventKind, body string) (*InboundEvent, *fakeDelivery) {
	d := &fakeDelivery{}
	ev := &InboundEvent{
		Kind:        kind,
		Annotations: Annotations{EventType: kind.String()},
		Body:        []byte(body),
		Delivery:    d,
	}
	return ev, d
}
