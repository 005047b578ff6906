// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

/*
Package postoffice implements the local broker model the mirror target
replays into: addresses, bindings, queues, transactions, and the storage
layer.

# Overview

The post office is deliberately small but real. Queues hold message
references in three tiers:

  - visible: references a consumer (or an ack reconciliation scan) can see
  - intermediate: references added but not yet flushed to the visible tier
  - paged: references moved out of memory into the paged tier

Routing stages message additions on a Transaction; commit applies them to
the intermediate tier and queues a flush through the StorageManager, so a
reference becomes visible only after the storage layer has processed the
addition. After-commit hooks run in the storage layer's completion phase,
which is what gives the mirror target its settle-after-persist ordering.

# Durable layer

Per-origin duplicate-ID caches persist to BadgerDB under the key prefix
"dup/<cache-key>/" and are reloaded when a cache is first requested. Paged
references are likewise written under "page/<queue>/"; Store.LoadPaged
reads them back, but the post office does not reload them into queues on
start.

# Concurrency

Queues and the post office guard their maps with mutexes because the HTTP
surface may read counts concurrently. The duplicate-ID caches and the
StorageManager queues are only ever touched from the link's handler task
and carry no locks of their own.
*/
package postoffice
