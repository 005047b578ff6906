// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mirrorgate/internal/logging"
)

// StoreConfig configures the durable layer.
type StoreConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory runs the store without disk persistence (tests, ephemeral nodes).
	InMemory bool
}

// Store is the BadgerDB-backed durable layer. It persists the per-origin
// duplicate-ID caches under "dup/<cache-key>/" and paged references under
// "page/<queue>/".
type Store struct {
	db       *badger.DB
	inMemory bool
}

// OpenStore opens the durable layer.
func OpenStore(cfg StoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	logging.Debug().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("store opened")
	return &Store{db: db, inMemory: cfg.InMemory}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs one round of value-log garbage collection. Returns
// badger.ErrNoRewrite when there was nothing to reclaim. In-memory stores
// have no value log and report ErrNoRewrite immediately.
func (s *Store) RunGC(discardRatio float64) error {
	if s.inMemory {
		return badger.ErrNoRewrite
	}
	return s.db.RunValueLogGC(discardRatio)
}

func dupKey(cacheKey string, id int64) []byte {
	k := make([]byte, 0, len("dup/")+len(cacheKey)+1+8)
	k = append(k, "dup/"...)
	k = append(k, cacheKey...)
	k = append(k, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return append(k, buf[:]...)
}

func dupPrefix(cacheKey string) []byte {
	return []byte("dup/" + cacheKey + "/")
}

// PutDuplicateID persists one id of a duplicate-ID cache.
func (s *Store) PutDuplicateID(cacheKey string, id int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dupKey(cacheKey, id), nil)
	})
	if err != nil {
		return fmt.Errorf("persist duplicate id %d for %q: %w", id, cacheKey, err)
	}
	return nil
}

// DeleteDuplicateID removes one id, used when the cache evicts FIFO.
func (s *Store) DeleteDuplicateID(cacheKey string, id int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dupKey(cacheKey, id))
	})
	if err != nil {
		return fmt.Errorf("delete duplicate id %d for %q: %w", id, cacheKey, err)
	}
	return nil
}

// LoadDuplicateIDs returns the persisted ids of a cache in ascending order.
// Origin internal ids are monotonic, so ascending order matches insertion
// order for FIFO reconstruction.
func (s *Store) LoadDuplicateIDs(cacheKey string) ([]int64, error) {
	var ids []int64
	prefix := dupPrefix(cacheKey)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) < 8 {
				continue
			}
			ids = append(ids, int64(binary.BigEndian.Uint64(key[len(key)-8:])))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load duplicate ids for %q: %w", cacheKey, err)
	}
	return ids, nil
}

// PagedRecord is the durable form of a paged message reference.
type PagedRecord struct {
	MessageID  int64  `json:"message_id"`
	Address    string `json:"address"`
	Origin     string `json:"origin,omitempty"`
	InternalID int64  `json:"internal_id,omitempty"`
	Body       []byte `json:"body,omitempty"`
}

func pageKey(queue string, messageID int64) []byte {
	k := make([]byte, 0, len("page/")+len(queue)+1+8)
	k = append(k, "page/"...)
	k = append(k, queue...)
	k = append(k, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(messageID))
	return append(k, buf[:]...)
}

// PutPaged persists a paged reference.
func (s *Store) PutPaged(queue string, rec PagedRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode paged record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageKey(queue, rec.MessageID), data)
	})
	if err != nil {
		return fmt.Errorf("persist paged record for %q: %w", queue, err)
	}
	return nil
}

// DeletePaged removes a paged reference after it is acknowledged.
func (s *Store) DeletePaged(queue string, messageID int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(pageKey(queue, messageID))
	})
	if err != nil {
		return fmt.Errorf("delete paged record for %q: %w", queue, err)
	}
	return nil
}

// LoadPaged returns a queue's persisted paged records in message-id order.
func (s *Store) LoadPaged(queue string) ([]PagedRecord, error) {
	var recs []PagedRecord
	prefix := []byte("page/" + queue + "/")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec PagedRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load paged records for %q: %w", queue, err)
	}
	return recs, nil
}
