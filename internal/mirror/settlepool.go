// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"time"

	"github.com/tomtom215/mirrorgate/internal/metrics"
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// SettlePool recycles settlement tokens. It is sized to the link's credit
// window: at most one token per unit of credit can be in flight, so Borrow
// never blocks in practice. Releases may come from IO-completion callbacks
// while the handler task borrows, hence the channel.
type SettlePool struct {
	tokens chan *SettleToken
}

// NewSettlePool builds a pool holding size tokens.
func NewSettlePool(size int) *SettlePool {
	p := &SettlePool{tokens: make(chan *SettleToken, size)}
	for i := 0; i < size; i++ {
		p.tokens <- &SettleToken{pool: p}
	}
	return p
}

// Borrow takes a reset token bound to the delivery.
func (p *SettlePool) Borrow(d Delivery) *SettleToken {
	t := <-p.tokens
	t.delivery = d
	t.face = faceNone
	t.fired = false
	t.borrowedAt = time.Now()
	return t
}

// release zeroes the token and returns it to the pool.
func (p *SettlePool) release(t *SettleToken) {
	t.delivery = nil
	p.tokens <- t
}

// Available reports how many tokens are currently in the pool.
func (p *SettlePool) Available() int {
	return len(p.tokens)
}

type tokenFace int

const (
	faceNone tokenFace = iota
	faceOperation
	faceTransaction
)

// SettleToken settles one delivery once its durable effect completes. A
// token has two faces and exactly one may be armed at a time:
//
//   - the persistence-completion face (SettleAfterIO), used by the admin,
//     ack, and duplicate paths: the token settles after the pending IO drains
//   - the transaction face (BindTransaction), used by the replay path: the
//     token settles via the transaction's after-commit hook, and a rollback
//     disarms it so the error path can re-arm the other face
type SettleToken struct {
	pool       *SettlePool
	delivery   Delivery
	face       tokenFace
	fired      bool
	borrowedAt time.Time
}

// Armed reports whether either face is armed.
func (t *SettleToken) Armed() bool {
	return t.face != faceNone
}

// SettleAfterIO arms the persistence-completion face: the token settles in
// the storage layer's completion phase, after in-flight IO drains.
func (t *SettleToken) SettleAfterIO(storage *postoffice.StorageManager) {
	if t.face == faceTransaction {
		panic("mirror: settle token already bound to a transaction")
	}
	if t.face == faceOperation {
		return
	}
	t.face = faceOperation
	storage.ExecuteOnCompletion(t.complete)
}

// settleTxOp is the token's staged presence in a replay transaction. Commit
// itself does nothing — the durable effect belongs to the other staged
// operations and settlement rides the after-commit hook. Rollback disarms
// the token so the caller may re-arm the persistence face.
type settleTxOp struct {
	t *SettleToken
}

func (op *settleTxOp) Commit() {}

func (op *settleTxOp) Rollback() {
	op.t.face = faceNone
}

// BindTransaction arms the transaction face on tx.
func (t *SettleToken) BindTransaction(tx *postoffice.Transaction) {
	if t.face != faceNone {
		panic("mirror: settle token face already armed")
	}
	t.face = faceTransaction
	tx.Add(&settleTxOp{t: t})
	tx.AfterCommit(t.complete)
}

// complete settles the delivery and returns the token to the pool. The
// fired guard makes late duplicate completions harmless.
func (t *SettleToken) complete() {
	if t.fired {
		return
	}
	t.fired = true

	if t.delivery != nil {
		t.delivery.Accept()
	}
	metrics.SettledTotal.Inc()
	metrics.SettleLatency.Observe(time.Since(t.borrowedAt).Seconds())
	t.pool.release(t)
}
