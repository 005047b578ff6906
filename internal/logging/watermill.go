// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillAdapter bridges Watermill's LoggerAdapter interface to zerolog so
// transport-layer logs share the global logger's output and level.
type WatermillAdapter struct {
	logger zerolog.Logger
}

// NewWatermillAdapter returns an adapter writing through the global logger.
func NewWatermillAdapter() *WatermillAdapter {
	return &WatermillAdapter{logger: Logger()}
}

func fieldsToEvent(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// Error logs an error message.
func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Error().Err(err), fields).Msg(msg)
}

// Info logs an informational message.
func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Info(), fields).Msg(msg)
}

// Debug logs a debug message.
func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Debug(), fields).Msg(msg)
}

// Trace logs a trace message.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	fieldsToEvent(a.logger.Trace(), fields).Msg(msg)
}

// With returns a logger with the given fields attached to every message.
func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := a.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &WatermillAdapter{logger: ctx.Logger()}
}
