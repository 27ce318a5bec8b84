// recorder connects to a stream endpoint and archives every raw payload to
// the PostgreSQL messages table.
//
// Usage: go run ./cmd/recorder --config configs/recorder.example.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkarlsen/streamsock/internal/auth"
	"github.com/mkarlsen/streamsock/internal/config"
	"github.com/mkarlsen/streamsock/internal/connection"
	"github.com/mkarlsen/streamsock/internal/database"
	"github.com/mkarlsen/streamsock/internal/recorder"
	"github.com/mkarlsen/streamsock/internal/router"
	"github.com/mkarlsen/streamsock/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/recorder.example.yaml", "path to config file")
	subscribe := flag.String("subscribe", "", "comma-separated subscription keys")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"url", cfg.Client.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Archive.Host,
		"port", cfg.Database.Archive.Port,
		"database", cfg.Database.Archive.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Archive)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Load credentials when configured
	var creds *auth.Credentials
	if cfg.Client.APIKey != "" {
		creds, err = auth.LoadCredentials(cfg.Client.APIKey, cfg.Client.PrivateKeyPath)
		if err != nil {
			logger.Error("failed to load credentials", "error", err)
			os.Exit(1)
		}
		logger.Info("using API credentials", "key_id", creds.KeyID)
	}

	// Build the stream client
	connCfg := connection.Config{
		URL:                  cfg.Client.URL,
		AutoReconnect:        cfg.Client.AutoReconnectEnabled(),
		MaxReconnectAttempts: cfg.Client.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.Client.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Client.ReconnectMaxDelay,
		HeartbeatInterval:    cfg.Client.HeartbeatInterval,
		ConnectionTimeout:    cfg.Client.ConnectionTimeout,
	}

	transport := connection.NewWebsocketTransport(connection.WebsocketOptions{
		HandshakeTimeout: connCfg.ConnectionTimeout,
		Credentials:      creds,
		Logger:           logger,
	})

	client := connection.NewClient(connCfg,
		connection.WithTransport(transport),
		connection.WithLogger(logger),
	)

	// Archive pipeline: every raw payload lands in the queue, the
	// recorder batches it into the messages table.
	queue := router.NewQueue[recorder.Raw](cfg.Recorder.BufferSize)
	rec := recorder.New(recorder.Config{
		BatchSize:     cfg.Recorder.BatchSize,
		FlushInterval: cfg.Recorder.FlushInterval,
	}, queue, pool, logger)

	client.On(connection.EventRawMessage, func(payload any) {
		e := payload.(connection.RawMessageEvent)
		queue.Push(recorder.Raw{
			SessionID:  client.SessionID(),
			ReceivedAt: time.Now().UTC(),
			Payload:    e.Data,
		})
	})

	// Register subscriptions before connecting; they ride the replay.
	for _, key := range strings.Split(*subscribe, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if err := client.Subscribe(key, nil); err != nil {
			logger.Error("subscribe failed", "key", key, "error", err)
			os.Exit(1)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rec.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		if err := client.Connect(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	// Stats printer
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				stats := rec.Stats()
				queueStats := queue.Stats()
				logger.Info("stats",
					"state", client.State(),
					"subscriptions", client.Subscriptions(),
					"queue_depth", queueStats.Count,
					"inserts", stats.Inserts,
					"conflicts", stats.Conflicts,
					"errors", stats.Errors,
					"flushes", stats.Flushes,
				)
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("recorder failed", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	client.Disconnect()
	queue.Close()
	rec.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}
