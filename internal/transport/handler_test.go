// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestHandlerTask_RunsInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int
	flushes := 0

	task := NewHandlerTask(8, func() {
		mu.Lock()
		flushes++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- task.Run(ctx) }()

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 1; i <= 3; i++ {
		i := i
		task.Enqueue(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("run returned %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("execution order = %v, want [1 2 3]", got)
	}
	if flushes != 3 {
		t.Errorf("afterEach ran %d times, want once per function", flushes)
	}
}

func TestHandlerTask_StopsOnCancel(t *testing.T) {
	task := NewHandlerTask(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- task.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handler task did not stop on cancel")
	}
}
