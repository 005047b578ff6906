// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"fmt"

	"github.com/tomtom215/mirrorgate/internal/logging"
	"github.com/tomtom215/mirrorgate/internal/metrics"
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// ReplayOutcome reports how a data message was handled.
type ReplayOutcome int

const (
	// ReplayRouted means the message was routed in a transaction that now
	// owns the settle token; settlement fires on commit durability.
	ReplayRouted ReplayOutcome = iota

	// ReplayDuplicate means the message is a retransmission and was
	// dropped; the caller settles through the normal after-IO path.
	ReplayDuplicate
)

// ReplayEngine replays data messages into the local post office exactly
// once per (origin, internal id) pair, preserving the origin's fan-out when
// target queues are named.
type ReplayEngine struct {
	po             *postoffice.PostOffice
	registry       *OriginCacheRegistry
	remoteMirrorID string

	// scratch is the routing context reused per replayed message.
	scratch postoffice.RoutingContext

	// controller marks routes caused by replay; the outbound mirror source
	// reads it off the routing context.
	controller any
}

// NewReplayEngine builds an engine for one link.
func NewReplayEngine(po *postoffice.PostOffice, registry *OriginCacheRegistry, remoteMirrorID string, controller any) *ReplayEngine {
	return &ReplayEngine{
		po:             po,
		registry:       registry,
		remoteMirrorID: remoteMirrorID,
		controller:     controller,
	}
}

// Replay routes ev's message locally. On ReplayRouted the transaction owns
// the token; on ReplayDuplicate (or error) the token stays with the caller.
func (e *ReplayEngine) Replay(ev *InboundEvent, tok *SettleToken) (ReplayOutcome, error) {
	msg := ev.Message
	if msg == nil {
		return ReplayDuplicate, fmt.Errorf("data event without message")
	}

	if msg.ID == 0 {
		msg.ID = e.po.IDGenerator().Next()
	}

	origin := ev.Annotations.BrokerID
	if origin == "" {
		origin = e.remoteMirrorID
	}

	if !ev.Annotations.HasInternalID {
		// No origin identity means no dedup is possible; route as-is.
		logging.Debug().Str("address", msg.Address).Msg("data message without internal id")
		return e.route(ev, msg, tok, nil, 0)
	}

	internalID := ev.Annotations.InternalID
	cache := e.registry.Get(origin)
	if cache.Contains(internalID) {
		metrics.DuplicatesTotal.Inc()
		logging.Debug().Str("origin", origin).Int64("internal_id", internalID).Msg("duplicate message dropped")
		return ReplayDuplicate, nil
	}

	// Preserve identity for downstream mirrors.
	msg.SetProperty(postoffice.PropInternalID, internalID)
	msg.SetProperty(postoffice.PropInternalBrokerID, origin)

	return e.route(ev, msg, tok, cache, internalID)
}

// route opens the replay transaction, stages the dedup insert, routes, and
// commits. Commit is the linearization point for "message replicated".
func (e *ReplayEngine) route(ev *InboundEvent, msg *postoffice.Message, tok *SettleToken, cache *postoffice.DuplicateIDCache, internalID int64) (ReplayOutcome, error) {
	if dest := ev.Annotations.InternalDestination; dest != "" {
		msg.Address = dest
	}

	tx := postoffice.NewTransaction(e.po.Storage())
	tok.BindTransaction(tx)
	if cache != nil {
		cache.StageInsert(tx, internalID)
	}

	rctx := &e.scratch
	rctx.Reset()
	rctx.Tx = tx
	rctx.MirrorSource = e.controller
	rctx.LoadBalancing = postoffice.LoadBalanceLocalOnly
	rctx.DuplicateDetection = false

	if targets := ev.Annotations.TargetQueues; len(targets) > 0 {
		e.routeToTargets(msg, rctx, targets)
	} else {
		if _, err := e.po.Route(msg, rctx); err != nil {
			if abortErr := tx.Abort(); abortErr != nil {
				logging.Warn().Err(abortErr).Msg("replay transaction abort failed")
			}
			return ReplayDuplicate, fmt.Errorf("route replayed message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ReplayDuplicate, fmt.Errorf("commit replay transaction: %w", err)
	}

	metrics.ReplayedTotal.Inc()
	return ReplayRouted, nil
}

// routeToTargets invokes the named bindings directly, bypassing
// load-balancing so the fan-out matches the origin's. Missing bindings are
// skipped, and a failure on one target does not stop the rest.
func (e *ReplayEngine) routeToTargets(msg *postoffice.Message, rctx *postoffice.RoutingContext, targets []string) {
	bound := e.po.BindingsFor(msg.Address)
	byName := make(map[string]*postoffice.Binding, len(bound))
	for _, b := range bound {
		byName[b.QueueName()] = b
	}

	for _, name := range targets {
		b, ok := byName[name]
		if !ok {
			logging.Warn().Str("address", msg.Address).Str("queue", name).Msg("target queue binding missing, skipped")
			continue
		}
		e.routeOne(b, msg, rctx)
	}
}

func (e *ReplayEngine) routeOne(b *postoffice.Binding, msg *postoffice.Message, rctx *postoffice.RoutingContext) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn().Interface("panic", r).Str("queue", b.QueueName()).Msg("routing to target queue failed, continuing")
		}
	}()
	b.Route(msg, rctx)
}
