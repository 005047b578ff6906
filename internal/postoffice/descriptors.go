// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

// AddressInfo describes an address as carried in administrative event bodies.
type AddressInfo struct {
	Name         string   `json:"name"`
	RoutingTypes []string `json:"routingTypes,omitempty"`
	Internal     bool     `json:"internal,omitempty"`
}

// QueueConfig describes a queue as carried in administrative event bodies.
type QueueConfig struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	RoutingType string `json:"routingType,omitempty"`
	Durable     bool   `json:"durable,omitempty"`
	Filter      string `json:"filter,omitempty"`
}

// DeleteQueueOptions controls queue destruction. The mirror target always
// destroys with the source's administrative intent: the source owns the
// queue's lifecycle, so consumers are not removed here and the local
// consumer count is not consulted.
type DeleteQueueOptions struct {
	RemoveConsumers    bool
	Force              bool
	AutoDeleteAddress  bool
	CheckConsumerCount bool
}

// MirrorDeleteQueueOptions returns the options the replication path uses.
func MirrorDeleteQueueOptions() DeleteQueueOptions {
	return DeleteQueueOptions{
		RemoveConsumers:    false,
		Force:              true,
		AutoDeleteAddress:  false,
		CheckConsumerCount: false,
	}
}
