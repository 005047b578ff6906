// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

// Package config holds all application configuration, loaded with Koanf v2
// in three layers: built-in defaults, an optional YAML config file, and
// environment variable overrides. Config is immutable after Load and safe
// for concurrent reads.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Node    NodeConfig    `koanf:"node"`
	Link    LinkConfig    `koanf:"link"`
	NATS    NATSConfig    `koanf:"nats"`
	Store   StoreConfig   `koanf:"store"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// NodeConfig identifies this broker node.
type NodeConfig struct {
	// ID is this node's broker id. Auto-generated when empty.
	ID string `koanf:"id"`
}

// LinkConfig describes the inbound mirror link.
type LinkConfig struct {
	// RemoteMirrorID identifies the source broker; substituted as the
	// origin for events that carry none.
	RemoteMirrorID string `koanf:"remote_mirror_id" validate:"required"`

	// CreditWindow sizes the link credit, the settle-token pool, and the
	// per-origin duplicate-ID caches.
	CreditWindow int `koanf:"credit_window" validate:"gt=0"`

	// SenderSettleMode is the remote's requested sender settle mode.
	SenderSettleMode string `koanf:"sender_settle_mode" validate:"omitempty,oneof=unsettled settled mixed"`
}

// NATSConfig configures the JetStream leg of the link.
type NATSConfig struct {
	URL            string        `koanf:"url" validate:"required"`
	Topic          string        `koanf:"topic" validate:"required"`
	StreamName     string        `koanf:"stream_name"`
	DurableName    string        `koanf:"durable_name"`
	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout   time.Duration `koanf:"close_timeout"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// StoreConfig configures the durable layer.
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// ServerConfig configures the operational HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration after loading.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store.Path == "" && !c.Store.InMemory {
		return fmt.Errorf("invalid configuration: store.path required unless store.in_memory is set")
	}
	return nil
}
