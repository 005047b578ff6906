// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

// Command mirrord runs the mirror replication target: it consumes the
// replication stream from the source broker and replays it into the local
// post office.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/tomtom215/mirrorgate/internal/api"
	"github.com/tomtom215/mirrorgate/internal/config"
	"github.com/tomtom215/mirrorgate/internal/logging"
	"github.com/tomtom215/mirrorgate/internal/mirror"
	"github.com/tomtom215/mirrorgate/internal/postoffice"
	"github.com/tomtom215/mirrorgate/internal/supervisor"
	"github.com/tomtom215/mirrorgate/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration load failed")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	nodeID := cfg.Node.ID
	if nodeID == "" {
		nodeID = uuid.New().String()
		logging.Info().Str("node_id", nodeID).Msg("node id auto-generated")
	}

	store, err := postoffice.OpenStore(postoffice.StoreConfig{
		Path:     cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("durable store open failed")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("store close failed")
		}
	}()

	storage := postoffice.NewStorageManager()
	po := postoffice.New(nodeID, storage, store)

	link := transport.NegotiateLink(
		cfg.Link.RemoteMirrorID,
		cfg.Link.CreditWindow,
		transport.SenderSettleMode(cfg.Link.SenderSettleMode),
	)

	task := transport.NewHandlerTask(cfg.Link.CreditWindow, storage.Flush)
	target := mirror.NewTarget(po, task, link.RemoteMirrorID(), cfg.Link.CreditWindow)

	// No outbound mirror is configured on this node; the guard is installed
	// anyway so a later outbound link cannot loop replayed operations.
	target.InstallMirrorGuard(func(op postoffice.MirrorOp) {
		logging.Trace().Str("kind", op.Kind).Str("queue", op.Queue).Msg("local mutation observed")
	})

	sub, err := transport.NewSubscriber(transport.SubscriberConfig{
		URL:            cfg.NATS.URL,
		Topic:          cfg.NATS.Topic,
		StreamName:     cfg.NATS.StreamName,
		DurableName:    cfg.NATS.DurableName,
		CreditWindow:   cfg.Link.CreditWindow,
		AckWaitTimeout: cfg.NATS.AckWaitTimeout,
		CloseTimeout:   cfg.NATS.CloseTimeout,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
	}, logging.NewWatermillAdapter())
	if err != nil {
		logging.Fatal().Err(err).Msg("link subscriber setup failed")
	}
	defer func() {
		if err := sub.Close(); err != nil {
			logging.Error().Err(err).Msg("subscriber close failed")
		}
	}()

	// Bridge zerolog to slog so suture's supervision events honor the
	// configured level, format, and sink.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(postoffice.NewStoreService(store, postoffice.DefaultGCInterval))
	tree.AddMessagingService(transport.NewLinkService(sub, link, task, target))
	tree.AddAPIService(api.New(cfg.Server, func() bool { return true }))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("node_id", nodeID).
		Str("remote_mirror_id", cfg.Link.RemoteMirrorID).
		Int("credit_window", cfg.Link.CreditWindow).
		Msg("mirrorgate starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor stopped")
		os.Exit(1)
	}
}
