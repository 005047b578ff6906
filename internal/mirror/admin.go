// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package mirror

import (
	"errors"

	"github.com/tomtom215/mirrorgate/internal/logging"
	"github.com/tomtom215/mirrorgate/internal/metrics"
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// AdminApplier applies administrative events idempotently. The source owns
// address and queue lifecycle; a state the target already reached is
// success, and any other failure is logged and swallowed so the stream
// never stalls on admin events.
type AdminApplier struct {
	po *postoffice.PostOffice
}

// NewAdminApplier builds an applier over the local post office.
func NewAdminApplier(po *postoffice.PostOffice) *AdminApplier {
	return &AdminApplier{po: po}
}

// AddAddress registers an address; already-present succeeds silently.
func (a *AdminApplier) AddAddress(info postoffice.AddressInfo) {
	err := a.po.AddAddress(info)
	switch {
	case err == nil:
		metrics.AdminOperationsTotal.WithLabelValues("add_address", "applied").Inc()
	case errors.Is(err, postoffice.ErrAddressExists):
		metrics.AdminOperationsTotal.WithLabelValues("add_address", "idempotent").Inc()
	default:
		metrics.AdminOperationsTotal.WithLabelValues("add_address", "error").Inc()
		logging.Warn().Err(err).Str("address", info.Name).Msg("mirror add address failed")
	}
}

// DeleteAddress removes an address; not-existent is success.
func (a *AdminApplier) DeleteAddress(info postoffice.AddressInfo) {
	err := a.po.RemoveAddress(info.Name)
	switch {
	case err == nil:
		metrics.AdminOperationsTotal.WithLabelValues("delete_address", "applied").Inc()
	case errors.Is(err, postoffice.ErrAddressNotFound):
		metrics.AdminOperationsTotal.WithLabelValues("delete_address", "idempotent").Inc()
	default:
		metrics.AdminOperationsTotal.WithLabelValues("delete_address", "error").Inc()
		logging.Warn().Err(err).Str("address", info.Name).Msg("mirror delete address failed")
	}
}

// CreateQueue creates a queue; already-exists succeeds silently.
func (a *AdminApplier) CreateQueue(cfg postoffice.QueueConfig) {
	err := a.po.CreateQueue(cfg)
	switch {
	case err == nil:
		metrics.AdminOperationsTotal.WithLabelValues("create_queue", "applied").Inc()
	case errors.Is(err, postoffice.ErrQueueExists):
		metrics.AdminOperationsTotal.WithLabelValues("create_queue", "idempotent").Inc()
		logging.Debug().Str("queue", cfg.Name).Msg("mirror create queue: already exists")
	default:
		metrics.AdminOperationsTotal.WithLabelValues("create_queue", "error").Inc()
		logging.Warn().Err(err).Str("queue", cfg.Name).Msg("mirror create queue failed")
	}
}

// DeleteQueue destroys a queue with the source's administrative intent;
// not-existent is success.
func (a *AdminApplier) DeleteQueue(address, queue string) {
	err := a.po.DeleteQueue(address, queue, postoffice.MirrorDeleteQueueOptions())
	switch {
	case err == nil:
		metrics.AdminOperationsTotal.WithLabelValues("delete_queue", "applied").Inc()
	case errors.Is(err, postoffice.ErrQueueNotFound):
		metrics.AdminOperationsTotal.WithLabelValues("delete_queue", "idempotent").Inc()
	default:
		metrics.AdminOperationsTotal.WithLabelValues("delete_queue", "error").Inc()
		logging.Warn().Err(err).Str("queue", queue).Str("address", address).Msg("mirror delete queue failed")
	}
}
