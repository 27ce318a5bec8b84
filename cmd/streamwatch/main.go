// streamwatch connects to a stream endpoint and prints inbound messages to
// the console. Useful for eyeballing a feed and exercising the reconnect
// machinery against a real server.
//
// Usage: go run ./cmd/streamwatch --url wss://stream.example.com/v1 --subscribe trades.BTC-USD
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mkarlsen/streamsock/internal/auth"
	"github.com/mkarlsen/streamsock/internal/connection"
	"github.com/mkarlsen/streamsock/internal/router"
	"github.com/mkarlsen/streamsock/internal/version"
)

func main() {
	url := flag.String("url", "", "stream endpoint (ws:// or wss://)")
	subscribe := flag.String("subscribe", "", "comma-separated subscription keys")
	apiKey := flag.String("api-key", os.Getenv("STREAMSOCK_API_KEY"), "API key ID for signed handshakes")
	keyPath := flag.String("private-key", os.Getenv("STREAMSOCK_PRIVATE_KEY_PATH"), "path to RSA private key PEM file")
	verbose := flag.Bool("verbose", false, "print every raw payload")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if *url == "" {
		logger.Error("--url is required")
		os.Exit(1)
	}

	logger.Info("starting streamwatch",
		"version", version.Version,
		"commit", version.Commit,
		"url", *url,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Load credentials when provided
	var creds *auth.Credentials
	if *apiKey != "" || *keyPath != "" {
		var err error
		creds, err = auth.LoadCredentials(*apiKey, *keyPath)
		if err != nil {
			logger.Error("failed to load credentials", "error", err)
			os.Exit(1)
		}
		logger.Info("using API credentials", "key_id", creds.KeyID)
	}

	cfg := connection.DefaultConfig(*url)

	transport := connection.NewWebsocketTransport(connection.WebsocketOptions{
		HandshakeTimeout: cfg.ConnectionTimeout,
		Credentials:      creds,
		Logger:           logger,
	})

	rtr := router.New(nil, logger)
	adapter := connection.NewRouterAdapter(rtr, nil)

	client := connection.NewClient(cfg,
		connection.WithTransport(transport),
		connection.WithAdapter(adapter),
		connection.WithLogger(logger),
	)

	// Console event taps
	client.On(connection.EventConnected, func(any) {
		fmt.Println("[CONNECTED]")
	})
	client.On(connection.EventDisconnected, func(payload any) {
		e := payload.(connection.DisconnectedEvent)
		fmt.Printf("[DISCONNECTED] code=%d reason=%q\n", e.Code, e.Reason)
	})
	client.On(connection.EventReconnecting, func(payload any) {
		e := payload.(connection.ReconnectingEvent)
		fmt.Printf("[RECONNECTING] attempt=%d\n", e.Attempt)
	})
	client.On(connection.EventError, func(payload any) {
		e := payload.(connection.ErrorEvent)
		fmt.Printf("[ERROR] %s\n", e.Message)
	})
	if *verbose {
		client.On(connection.EventRawMessage, func(payload any) {
			e := payload.(connection.RawMessageEvent)
			fmt.Printf("[RAW] %s\n", e.Data)
		})
	}

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

	if err := client.Connect(ctx); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := rtr.Stats()
				logger.Info("stats",
					"state", client.State(),
					"subscriptions", client.Subscriptions(),
					"router_received", stats.Received,
					"router_routed", stats.Routed,
					"raw_fallback", stats.RawFallback,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	<-ctx.Done()

	logger.Info("shutting down...")
	client.Disconnect()
	logger.Info("shutdown complete")
}
