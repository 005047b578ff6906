// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// Annotation keys recognized on inbound events.
const (
	AnnEventType           = "event_type"
	AnnBrokerID            = "broker_id"
	AnnInternalID          = "internal_id"
	AnnInternalDestination = "internal_destination"
	AnnTargetQueues        = "target_queues"
	AnnQueue               = "queue"
	AnnAddress             = "address"
	AnnAckReason           = "ack_reason"
)

// EventKind classifies an inbound event.
type EventKind int

const (
	// KindDataMessage is a routed message delivery; the default when no
	// event_type annotation is present.
	KindDataMessage EventKind = iota
	KindAddAddress
	KindDeleteAddress
	KindCreateQueue
	KindDeleteQueue
	KindPostAck
)

// String returns the wire spelling of the kind.
func (k EventKind) String() string {
	switch k {
	case KindAddAddress:
		return "AddAddress"
	case KindDeleteAddress:
		return "DeleteAddress"
	case KindCreateQueue:
		return "CreateQueue"
	case KindDeleteQueue:
		return "DeleteQueue"
	case KindPostAck:
		return "PostAck"
	default:
		return "DataMessage"
	}
}

// KindFromEventType maps the event_type annotation to a kind. An absent or
// unrecognized annotation means DataMessage.
func KindFromEventType(s string) EventKind {
	switch s {
	case "AddAddress":
		return KindAddAddress
	case "DeleteAddress":
		return KindDeleteAddress
	case "CreateQueue":
		return KindCreateQueue
	case "DeleteQueue":
		return KindDeleteQueue
	case "PostAck":
		return KindPostAck
	default:
		return KindDataMessage
	}
}

// Annotations is the decoded annotation set of one inbound event. The
// transport decoder populates only the fields its event kind carries.
type Annotations struct {
	EventType string

	// BrokerID identifies the origin broker. Empty means the link's remote
	// mirror id applies.
	BrokerID string

	// InternalID is the origin-assigned identifier of a data message.
	InternalID    int64
	HasInternalID bool

	// InternalDestination, when set, rewrites the message's address.
	InternalDestination string

	// TargetQueues names the exact queues the origin fanned out to.
	TargetQueues []string

	Queue     string
	Address   string
	AckReason postoffice.AckReason
}

// InboundEvent is one decoded unit from the replication stream.
type InboundEvent struct {
	Kind        EventKind
	Annotations Annotations

	// Body carries administrative JSON descriptors.
	Body []byte

	// AckID is the PostAck body payload: the acked message's internal id.
	AckID int64

	// Message is the decoded data message; nil for other kinds.
	Message *postoffice.Message

	// Delivery settles the event upstream and returns credit.
	Delivery Delivery
}

// Delivery is the handle used to settle an inbound delivery. Accept disposes
// the delivery with the transport's accepted outcome, settles it, and
// replenishes one unit of credit. It must be idempotent: duplicate-drop and
// error paths may race a late completion onto the same handle.
type Delivery interface {
	Accept()
}

// Tasks re-enters the link's handler task from IO-completion callbacks.
// Every reconciler stage transition goes through here so that mirror state
// is only ever touched from the handler task.
type Tasks interface {
	Enqueue(fn func())
}
