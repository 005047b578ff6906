// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mirrorgate/internal/logging"
	"github.com/tomtom215/mirrorgate/internal/metrics"
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// Target is the mirror replication target for one link: the event
// demultiplexer plus the subsystems it dispatches to.
type Target struct {
	po      *postoffice.PostOffice
	storage *postoffice.StorageManager

	scope  *ControllerScope
	pool   *SettlePool
	admin  *AdminApplier
	replay *ReplayEngine
	recon  *AckReconciler

	remoteMirrorID string
}

// NewTarget wires a target over the local post office. creditWindow sizes
// both the settle pool and the per-origin duplicate-ID caches; it must
// match the credit the link issues.
func NewTarget(po *postoffice.PostOffice, tasks Tasks, remoteMirrorID string, creditWindow int) *Target {
	t := &Target{
		po:             po,
		storage:        po.Storage(),
		scope:          &ControllerScope{},
		pool:           NewSettlePool(creditWindow),
		admin:          NewAdminApplier(po),
		remoteMirrorID: remoteMirrorID,
	}
	registry := NewOriginCacheRegistry(po, creditWindow)
	t.replay = NewReplayEngine(po, registry, remoteMirrorID, t)
	t.recon = NewAckReconciler(po, tasks, t.scope)
	return t
}

// Scope returns the controller scope for this link's handler task.
func (t *Target) Scope() *ControllerScope {
	return t.scope
}

// Pool returns the settle token pool.
func (t *Target) Pool() *SettlePool {
	return t.pool
}

// InstallMirrorGuard installs inner as the post office's outbound mirror
// source, guarded so operations induced by inbound replay are skipped. This
// is the loop-breaking mechanism: while an event is being applied the
// controller scope is set, and routes carry the replay marker on their
// routing context.
func (t *Target) InstallMirrorGuard(inner postoffice.MirrorSourceFunc) {
	t.po.SetMirrorSource(func(op postoffice.MirrorOp) {
		if t.scope.Active() {
			return
		}
		if op.Context != nil && op.Context.MirrorSource != nil {
			return
		}
		if inner != nil {
			inner(op)
		}
	})
}

// Handle demultiplexes one inbound event. Dispatch is by the event_type
// annotation; an absent annotation means a data message.
//
// Token ownership: every path borrows one settle token bound to the
// delivery. A subsystem reporting success-with-deferred-settle takes the
// token with it; on every other outcome — including thrown failures — the
// token is handed to the storage layer's after-complete hook so settlement
// still fires once in-flight IO drains. A token is never dropped.
func (t *Target) Handle(ev *InboundEvent) {
	metrics.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()

	tok := t.pool.Borrow(ev.Delivery)

	t.scope.Enter()
	defer t.scope.Exit()

	deferred, err := t.dispatch(ev, tok)
	if err != nil {
		logging.Warn().Err(err).Str("kind", ev.Kind.String()).Msg("mirror event failed")
	}
	if !deferred && !tok.Armed() {
		tok.SettleAfterIO(t.storage)
	}
}

// dispatch routes the event to its subsystem. It reports whether that
// subsystem took ownership of the token.
func (t *Target) dispatch(ev *InboundEvent, tok *SettleToken) (deferred bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			deferred = false
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	switch ev.Kind {
	case KindAddAddress:
		var info postoffice.AddressInfo
		if err := json.Unmarshal(ev.Body, &info); err != nil {
			return false, fmt.Errorf("parse address descriptor: %w", err)
		}
		t.admin.AddAddress(info)

	case KindDeleteAddress:
		var info postoffice.AddressInfo
		if err := json.Unmarshal(ev.Body, &info); err != nil {
			return false, fmt.Errorf("parse address descriptor: %w", err)
		}
		t.admin.DeleteAddress(info)

	case KindCreateQueue:
		var cfg postoffice.QueueConfig
		if err := json.Unmarshal(ev.Body, &cfg); err != nil {
			return false, fmt.Errorf("parse queue descriptor: %w", err)
		}
		t.admin.CreateQueue(cfg)

	case KindDeleteQueue:
		t.admin.DeleteQueue(ev.Annotations.Address, ev.Annotations.Queue)

	case KindPostAck:
		origin := ev.Annotations.BrokerID
		if origin == "" {
			origin = t.remoteMirrorID
		}
		ack := &PendingAck{
			Origin:     origin,
			InternalID: ev.AckID,
			Queue:      ev.Annotations.Queue,
			Reason:     ev.Annotations.AckReason,
		}
		if t.recon.Reconcile(ack, tok) == AckDeferred {
			return true, nil
		}

	case KindDataMessage:
		outcome, rerr := t.replay.Replay(ev, tok)
		if rerr != nil {
			return false, rerr
		}
		if outcome == ReplayRouted {
			return true, nil
		}
	}

	return false, nil
}
