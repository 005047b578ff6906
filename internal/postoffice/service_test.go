// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func TestStoreService_StopsOnCancel(t *testing.T) {
	store, err := OpenStore(StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	svc := NewStoreService(store, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let at least one GC round run before stopping.
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("store service did not stop on cancel")
	}
}

func TestStoreService_DefaultInterval(t *testing.T) {
	svc := NewStoreService(nil, 0)
	if svc.interval != DefaultGCInterval {
		t.Errorf("interval = %v, want %v", svc.interval, DefaultGCInterval)
	}
}

func TestStore_RunGCInMemoryIsNoRewrite(t *testing.T) {
	store, err := OpenStore(StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if err := store.RunGC(0.5); !errors.Is(err, badger.ErrNoRewrite) {
		t.Errorf("in-memory gc = %v, want ErrNoRewrite", err)
	}
}
