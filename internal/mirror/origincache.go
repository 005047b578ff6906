// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// CacheNamespace prefixes the durable keys of per-origin duplicate-ID
// caches so they cannot collide with application-level dedup caches.
const CacheNamespace = "$mirror"

// OriginCacheRegistry maps origin broker ids to their duplicate-ID caches.
//
// The registry keeps a single-slot memo of the most recently used
// (origin, cache) pair: replication streams are typically single-origin, so
// the slot turns the per-message lookup into a string compare. The slot is
// mutated freely — the registry is only touched from the link's handler
// task and is not thread-safe.
type OriginCacheRegistry struct {
	po     *postoffice.PostOffice
	window int

	lastKey   string
	lastCache *postoffice.DuplicateIDCache
}

// NewOriginCacheRegistry builds a registry whose caches are sized to the
// link's credit window.
func NewOriginCacheRegistry(po *postoffice.PostOffice, creditWindow int) *OriginCacheRegistry {
	return &OriginCacheRegistry{po: po, window: creditWindow}
}

// Get returns the duplicate-ID cache for an origin, consulting the durable
// registry on a memo miss.
func (r *OriginCacheRegistry) Get(origin string) *postoffice.DuplicateIDCache {
	if origin == r.lastKey && r.lastCache != nil {
		return r.lastCache
	}
	c := r.po.GetDuplicateIDCache(CacheNamespace+"_"+origin, r.window)
	r.lastKey = origin
	r.lastCache = c
	return c
}
