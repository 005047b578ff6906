// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/mirrorgate/internal/mirror"
	"github.com/tomtom215/mirrorgate/internal/postoffice"
)

// Message formats. The two tunneled core formats carry a framed broker
// message and are routed to dedicated readers; every other format uses the
// default reader.
const (
	FormatDefault           uint32 = 0
	FormatTunneledCore      uint32 = 0x468C0001
	FormatTunneledCoreLarge uint32 = 0x468C0002
)

// Metadata keys beyond the mirror annotation set.
const (
	metaFormat  = "format"
	metaDurable = "durable"
)

// ErrTruncatedFrame is returned when a tunneled core frame is shorter than
// its declared lengths.
var ErrTruncatedFrame = errors.New("truncated core message frame")

// Decode maps one transport message to an inbound mirror event. Metadata
// keys carry the annotations; the payload carries the body.
func Decode(msg *message.Message) (*mirror.InboundEvent, error) {
	md := msg.Metadata

	ann := mirror.Annotations{
		EventType:           md.Get(mirror.AnnEventType),
		BrokerID:            md.Get(mirror.AnnBrokerID),
		InternalDestination: md.Get(mirror.AnnInternalDestination),
		Queue:               md.Get(mirror.AnnQueue),
		Address:             md.Get(mirror.AnnAddress),
		AckReason:           postoffice.ParseAckReason(md.Get(mirror.AnnAckReason)),
	}
	if raw := md.Get(mirror.AnnInternalID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse internal_id %q: %w", raw, err)
		}
		ann.InternalID = id
		ann.HasInternalID = true
	}
	if raw := md.Get(mirror.AnnTargetQueues); raw != "" {
		for _, q := range strings.Split(raw, ",") {
			if q = strings.TrimSpace(q); q != "" {
				ann.TargetQueues = append(ann.TargetQueues, q)
			}
		}
	}

	ev := &mirror.InboundEvent{
		Kind:        mirror.KindFromEventType(ann.EventType),
		Annotations: ann,
	}

	switch ev.Kind {
	case mirror.KindAddAddress, mirror.KindDeleteAddress, mirror.KindCreateQueue:
		ev.Body = msg.Payload

	case mirror.KindDeleteQueue:
		// Address and queue ride the annotations; no body.

	case mirror.KindPostAck:
		id, err := strconv.ParseInt(strings.TrimSpace(string(msg.Payload)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ack body: %w", err)
		}
		ev.AckID = id

	case mirror.KindDataMessage:
		format := FormatDefault
		if raw := md.Get(metaFormat); raw != "" {
			f, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("parse format %q: %w", raw, err)
			}
			format = uint32(f)
		}

		m, err := readerForFormat(format).Read(msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("read data message: %w", err)
		}
		if m.Address == "" {
			m.Address = ann.Address
		}
		m.Durable = md.Get(metaDurable) == "true"
		ev.Message = m
	}

	return ev, nil
}

// messageReader decodes a data message payload.
type messageReader interface {
	Read(payload []byte) (*postoffice.Message, error)
}

func readerForFormat(format uint32) messageReader {
	switch format {
	case FormatTunneledCore:
		return coreReader{}
	case FormatTunneledCoreLarge:
		return coreLargeReader{}
	default:
		return defaultReader{}
	}
}

// defaultReader treats the payload as the opaque message body.
type defaultReader struct{}

func (defaultReader) Read(payload []byte) (*postoffice.Message, error) {
	body := make([]byte, len(payload))
	copy(body, payload)
	return &postoffice.Message{Body: body}, nil
}

// coreReader decodes a tunneled core message: a 4-byte big-endian address
// length, the address, then the body.
type coreReader struct{}

func (coreReader) Read(payload []byte) (*postoffice.Message, error) {
	if len(payload) < 4 {
		return nil, ErrTruncatedFrame
	}
	addrLen := int(binary.BigEndian.Uint32(payload))
	if len(payload) < 4+addrLen {
		return nil, ErrTruncatedFrame
	}
	addr := string(payload[4 : 4+addrLen])
	body := make([]byte, len(payload)-4-addrLen)
	copy(body, payload[4+addrLen:])
	return &postoffice.Message{Address: addr, Body: body}, nil
}

// coreLargeReader decodes a tunneled large core message: the core address
// header followed by length-prefixed body chunks.
type coreLargeReader struct{}

func (coreLargeReader) Read(payload []byte) (*postoffice.Message, error) {
	if len(payload) < 4 {
		return nil, ErrTruncatedFrame
	}
	addrLen := int(binary.BigEndian.Uint32(payload))
	if len(payload) < 4+addrLen {
		return nil, ErrTruncatedFrame
	}
	addr := string(payload[4 : 4+addrLen])

	var body []byte
	rest := payload[4+addrLen:]
	for len(rest) > 0 {
		if len(rest) < 4 {
			return nil, ErrTruncatedFrame
		}
		chunkLen := int(binary.BigEndian.Uint32(rest))
		rest = rest[4:]
		if len(rest) < chunkLen {
			return nil, ErrTruncatedFrame
		}
		body = append(body, rest[:chunkLen]...)
		rest = rest[chunkLen:]
	}
	return &postoffice.Message{Address: addr, Body: body}, nil
}
