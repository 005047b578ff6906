// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"bytes"
	"testing"
)

func TestStore_DuplicateIDRoundTrip(t *testing.T) {
	store, err := OpenStore(StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	for _, id := range []int64{3, 1, 2} {
		if err := store.PutDuplicateID("$mirror_B", id); err != nil {
			t.Fatalf("put %d: %v", id, err)
		}
	}
	// A second cache must not see the first cache's ids.
	if err := store.PutDuplicateID("$mirror_C", 9); err != nil {
		t.Fatalf("put: %v", err)
	}

	ids, err := store.LoadDuplicateIDs("$mirror_B")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3] in ascending order", ids)
	}

	if err := store.DeleteDuplicateID("$mirror_B", 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, err = store.LoadDuplicateIDs("$mirror_B")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v after delete, want 2 entries", ids)
	}
}

func TestStore_PagedRoundTrip(t *testing.T) {
	store, err := OpenStore(StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	rec := PagedRecord{
		MessageID:  7,
		Address:    "a1",
		Origin:     "B",
		InternalID: 200,
		Body:       []byte("paged body"),
	}
	if err := store.PutPaged("q1", rec); err != nil {
		t.Fatalf("put paged: %v", err)
	}

	recs, err := store.LoadPaged("q1")
	if err != nil {
		t.Fatalf("load paged: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	got := recs[0]
	if got.MessageID != 7 || got.Origin != "B" || got.InternalID != 200 || !bytes.Equal(got.Body, rec.Body) {
		t.Errorf("record = %+v, want %+v", got, rec)
	}

	if err := store.DeletePaged("q1", 7); err != nil {
		t.Fatalf("delete paged: %v", err)
	}
	recs, err = store.LoadPaged("q1")
	if err != nil {
		t.Fatalf("load paged: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d records after delete, want 0", len(recs))
	}
}

func TestStore_OpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(StoreConfig{Path: dir})
	if err != nil {
		t.Fatalf("open store at %s: %v", dir, err)
	}
	if err := store.PutDuplicateID("$mirror_B", 1); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen and read back.
	store, err = OpenStore(StoreConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	ids, err := store.LoadDuplicateIDs("$mirror_B")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("ids = %v, want [1]", ids)
	}
}
