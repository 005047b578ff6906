// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import "errors"

// ErrAddressExists is returned when registering an address that is already present.
var ErrAddressExists = errors.New("address already exists")

// ErrAddressNotFound is returned when an address does not exist.
var ErrAddressNotFound = errors.New("address not found")

// ErrQueueExists is returned when creating a queue that is already present.
var ErrQueueExists = errors.New("queue already exists")

// ErrQueueNotFound is returned when a queue does not exist.
var ErrQueueNotFound = errors.New("queue not found")

// ErrTransactionDone is returned when committing or aborting a transaction twice.
var ErrTransactionDone = errors.New("transaction already completed")

// ErrStoreClosed is returned when the durable store has been closed.
var ErrStoreClosed = errors.New("store is closed")
