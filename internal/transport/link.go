// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

// Package transport carries the mirror link: settle-mode negotiation,
// credit accounting, the JetStream subscriber, the event decoder, and the
// single handler task that owns all mirror state.
package transport

import (
	"sync"
	"sync/atomic"

	"github.com/tomtom215/mirrorgate/internal/metrics"
)

// SenderSettleMode is the AMQP sender settle mode.
type SenderSettleMode string

// Sender settle modes.
const (
	SenderUnsettled SenderSettleMode = "unsettled"
	SenderSettled   SenderSettleMode = "settled"
	SenderMixed     SenderSettleMode = "mixed"
)

// ReceiverSettleMode is the AMQP receiver settle mode.
type ReceiverSettleMode string

// Receiver settle modes. Mirrorgate only supports first.
const (
	ReceiverFirst  ReceiverSettleMode = "first"
	ReceiverSecond ReceiverSettleMode = "second"
)

// Link is the negotiated state of one inbound mirror link.
type Link struct {
	remoteMirrorID string
	creditWindow   int

	senderSettleMode   SenderSettleMode
	receiverSettleMode ReceiverSettleMode

	issued      atomic.Int64
	consumed    atomic.Int64
	replenished atomic.Int64
}

// NegotiateLink fixes the link's terms: the sender settle mode is matched
// to the remote's, and the receiver settle mode is forced to first —
// second-settle is unsupported.
func NegotiateLink(remoteMirrorID string, creditWindow int, remoteSenderMode SenderSettleMode) *Link {
	if remoteSenderMode == "" {
		remoteSenderMode = SenderUnsettled
	}
	return &Link{
		remoteMirrorID:     remoteMirrorID,
		creditWindow:       creditWindow,
		senderSettleMode:   remoteSenderMode,
		receiverSettleMode: ReceiverFirst,
	}
}

// RemoteMirrorID returns the remote broker's mirror id, substituted as the
// origin when events carry none.
func (l *Link) RemoteMirrorID() string { return l.remoteMirrorID }

// CreditWindow returns the link's credit window.
func (l *Link) CreditWindow() int { return l.creditWindow }

// SenderSettleMode returns the negotiated sender settle mode.
func (l *Link) SenderSettleMode() SenderSettleMode { return l.senderSettleMode }

// ReceiverSettleMode returns the receiver settle mode (always first).
func (l *Link) ReceiverSettleMode() ReceiverSettleMode { return l.receiverSettleMode }

// InitialFlow issues one full credit window and returns the credit issued.
func (l *Link) InitialFlow() int {
	l.issued.Store(int64(l.creditWindow))
	return l.creditWindow
}

// Consume records one unit of credit consumed by an arriving delivery.
func (l *Link) Consume() {
	l.consumed.Add(1)
	metrics.CreditOutstanding.Inc()
}

// Replenish returns n units of credit to the sender.
func (l *Link) Replenish(n int) {
	l.replenished.Add(int64(n))
	metrics.CreditOutstanding.Sub(float64(n))
}

// Outstanding reports credit consumed but not yet replenished.
func (l *Link) Outstanding() int64 {
	return l.consumed.Load() - l.replenished.Load()
}

// Delivery is the transport's delivery handle: Accept disposes the
// delivery with the accepted outcome, settles it upstream, and replenishes
// one unit of credit. Accept is idempotent.
type Delivery struct {
	once sync.Once
	ack  func()
	link *Link
}

// NewDelivery binds a handle to the transport-level settle function.
func NewDelivery(link *Link, ack func()) *Delivery {
	return &Delivery{ack: ack, link: link}
}

// Accept settles the delivery and returns one unit of credit.
func (d *Delivery) Accept() {
	d.once.Do(func() {
		if d.ack != nil {
			d.ack()
		}
		d.link.Replenish(1)
	})
}
