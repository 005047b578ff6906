// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"errors"
	"testing"
)

type recordingOp struct {
	committed  bool
	rolledBack bool
	order      *[]string
	name       string
}

func (op *recordingOp) Commit() {
	op.committed = true
	*op.order = append(*op.order, "commit:"+op.name)
}

func (op *recordingOp) Rollback() {
	op.rolledBack = true
	*op.order = append(*op.order, "rollback:"+op.name)
}

func TestTransaction_CommitAppliesInOrder(t *testing.T) {
	storage := NewStorageManager()
	tx := NewTransaction(storage)

	var order []string
	a := &recordingOp{order: &order, name: "a"}
	b := &recordingOp{order: &order, name: "b"}
	tx.Add(a)
	tx.Add(b)
	tx.AfterCommit(func() { order = append(order, "after") })

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !a.committed || !b.committed {
		t.Error("all staged operations must commit")
	}

	// The after-commit hook waits for the completion phase.
	if len(order) != 2 {
		t.Fatalf("order before flush = %v", order)
	}
	storage.Flush()
	if len(order) != 3 || order[2] != "after" {
		t.Errorf("order = %v, want after-commit last", order)
	}
}

func TestTransaction_AbortRollsBackInReverse(t *testing.T) {
	storage := NewStorageManager()
	tx := NewTransaction(storage)

	var order []string
	a := &recordingOp{order: &order, name: "a"}
	b := &recordingOp{order: &order, name: "b"}
	tx.Add(a)
	tx.Add(b)
	tx.AfterCommit(func() { t.Error("after-commit must not run on abort") })

	if err := tx.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	storage.Flush()

	if !a.rolledBack || !b.rolledBack {
		t.Error("all staged operations must roll back")
	}
	if len(order) != 2 || order[0] != "rollback:b" || order[1] != "rollback:a" {
		t.Errorf("order = %v, want reverse rollback", order)
	}
}

func TestTransaction_DoubleCompletionFails(t *testing.T) {
	storage := NewStorageManager()

	tx := NewTransaction(storage)
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTransactionDone) {
		t.Errorf("second commit = %v, want ErrTransactionDone", err)
	}
	if err := tx.Abort(); !errors.Is(err, ErrTransactionDone) {
		t.Errorf("abort after commit = %v, want ErrTransactionDone", err)
	}
}
