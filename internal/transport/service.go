// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package transport

import (
	"context"

	"github.com/tomtom215/mirrorgate/internal/logging"
	"github.com/tomtom215/mirrorgate/internal/mirror"
)

// LinkService drives one inbound mirror link: it issues the initial credit
// window, consumes the stream, and feeds decoded events to the target on
// the handler task. It implements suture's Service.
type LinkService struct {
	sub    *Subscriber
	link   *Link
	task   *HandlerTask
	target *mirror.Target
}

// NewLinkService wires the link's moving parts together.
func NewLinkService(sub *Subscriber, link *Link, task *HandlerTask, target *mirror.Target) *LinkService {
	return &LinkService{sub: sub, link: link, task: task, target: target}
}

// Serve runs the link until the context is canceled. A decode failure
// settles the delivery immediately — the stream must not stall on a
// malformed event.
func (s *LinkService) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskErr := make(chan error, 1)
	go func() {
		taskErr <- s.task.Run(ctx)
	}()

	credit := s.link.InitialFlow()
	logging.Info().
		Str("remote_mirror_id", s.link.RemoteMirrorID()).
		Int("credit", credit).
		Str("receiver_settle_mode", string(s.link.ReceiverSettleMode())).
		Msg("mirror link flowing")

	msgs, err := s.sub.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-taskErr:
			return err
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.link.Consume()

			ev, err := Decode(msg)
			if err != nil {
				logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("undecodable mirror event dropped")
				msg.Ack()
				s.link.Replenish(1)
				continue
			}

			m := msg
			ev.Delivery = NewDelivery(s.link, func() { m.Ack() })
			s.task.Enqueue(func() { s.target.Handle(ev) })
		}
	}
}

// String names the service in supervisor logs.
func (s *LinkService) String() string {
	return "mirror-link"
}
