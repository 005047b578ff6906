// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

/*
Package mirror implements the receiving endpoint of a broker-to-broker
replication link.

A source broker multiplexes three kinds of events onto one ordered stream:
administrative events (address and queue lifecycle), routed message
deliveries, and acknowledgement notifications. This package replays them
against the local post office so its state converges with the source's.

# Pieces

  - Demux inspects each inbound event's annotations and dispatches to the
    AdminApplier, the ReplayEngine, or the AckReconciler.
  - ReplayEngine replays data messages exactly once per (origin, internal id)
    pair, using per-origin duplicate-ID caches bound to the replay
    transaction.
  - AckReconciler locates the local reference of a remotely-acked message
    across three tiers: the visible queue, the intermediate tier (after a
    flush), and paged storage.
  - SettlePool recycles the settlement tokens that dispose deliveries and
    return credit once the matching durable effect completes.
  - ControllerScope marks the handler task while an event is being applied,
    so the local outbound mirror does not re-emit replayed operations.

# Threading

Everything here runs on the link's single handler task. IO-completion
callbacks re-enter through the Tasks interface rather than touching mirror
state from storage threads.
*/
package mirror
