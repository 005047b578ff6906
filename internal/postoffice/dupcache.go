// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"github.com/tomtom215/mirrorgate/internal/logging"
)

// DuplicateIDCache is a bounded FIFO set of origin-assigned internal ids.
// Capacity equals the link's credit window, so the cache cannot overflow
// within one round of in-flight messages.
//
// Inserts are transactional: StageInsert adds a tentative entry to a
// Transaction, and the id only becomes a member (and persists) when the
// transaction commits. An aborted transaction leaves no trace.
//
// The cache is accessed only from the link's handler task and is not
// thread-safe.
type DuplicateIDCache struct {
	key      string
	capacity int
	ids      map[int64]struct{}
	fifo     []int64
	store    *Store
}

// newDuplicateIDCache builds a cache, loading persisted members from the
// store when one is attached.
func newDuplicateIDCache(key string, capacity int, store *Store) *DuplicateIDCache {
	c := &DuplicateIDCache{
		key:      key,
		capacity: capacity,
		ids:      make(map[int64]struct{}, capacity),
		store:    store,
	}

	if store != nil {
		persisted, err := store.LoadDuplicateIDs(key)
		if err != nil {
			logging.Warn().Err(err).Str("cache", key).Msg("duplicate cache recovery failed, starting empty")
			return c
		}
		for _, id := range persisted {
			c.insert(id)
		}
	}
	return c
}

// Contains reports membership in O(1).
func (c *DuplicateIDCache) Contains(id int64) bool {
	_, ok := c.ids[id]
	return ok
}

// Size returns the current member count.
func (c *DuplicateIDCache) Size() int {
	return len(c.fifo)
}

// Key returns the durable cache key.
func (c *DuplicateIDCache) Key() string {
	return c.key
}

// insert adds an id in memory, evicting FIFO at capacity.
func (c *DuplicateIDCache) insert(id int64) {
	if _, ok := c.ids[id]; ok {
		return
	}
	if len(c.fifo) >= c.capacity {
		oldest := c.fifo[0]
		c.fifo = c.fifo[1:]
		delete(c.ids, oldest)
		if c.store != nil {
			if err := c.store.DeleteDuplicateID(c.key, oldest); err != nil {
				logging.Warn().Err(err).Str("cache", c.key).Int64("id", oldest).Msg("duplicate id eviction not persisted")
			}
		}
	}
	c.ids[id] = struct{}{}
	c.fifo = append(c.fifo, id)
}

// commitInsert makes an id a durable member.
func (c *DuplicateIDCache) commitInsert(id int64) {
	c.insert(id)
	if c.store != nil {
		if err := c.store.PutDuplicateID(c.key, id); err != nil {
			logging.Warn().Err(err).Str("cache", c.key).Int64("id", id).Msg("duplicate id not persisted")
		}
	}
}

// dupInsertOp is the transaction operation staging one insert.
type dupInsertOp struct {
	cache *DuplicateIDCache
	id    int64
}

func (op *dupInsertOp) Commit()   { op.cache.commitInsert(op.id) }
func (op *dupInsertOp) Rollback() {} // tentative insert leaves no trace

// StageInsert stages an insert on tx: commit makes the id a member and
// persists it, abort reverts the tentative add.
func (c *DuplicateIDCache) StageInsert(tx *Transaction, id int64) {
	tx.Add(&dupInsertOp{cache: c, id: id})
}
