// Command statsigd runs a minimal reference host for the core SDK: it
// loads StatsigOptions from config, initializes a Statsig instance, logs
// one sample gate evaluation for a sample user on a fixed interval, and
// shuts down cleanly on SIGINT/SIGTERM.
//
// Required environment variables:
//
//	STATSIG_SDK_KEY     - server secret key
//
// Optional environment variables:
//
//	STATSIG_CONFIG           - path to a statsig.toml config file
//	STATSIG_LOG_LEVEL        - debug, info, warn, error (default: info)
//	STATSIG_DISABLE_NETWORK  - "1"/"true" to skip the network specs source;
//	                           this host sets no bootstrap values, so
//	                           Initialize then fails with no specs source
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/statsig-io/go-core"
	"github.com/statsig-io/go-core/internal/config"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "statsigd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("STATSIG_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	logger.Info("starting statsigd", "version", Version, "environment", cfg.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []statsig.Option{
		statsig.WithSpecsURL(cfg.Network.SpecsURL),
		statsig.WithLogEventURL(cfg.Network.LogEventURL),
		statsig.WithSpecsSyncInterval(time.Duration(cfg.Network.SpecsSyncIntervalMs) * time.Millisecond),
		statsig.WithEventLoggingMaxQueueSize(cfg.Events.MaxQueueSize),
		statsig.WithEventLoggingFlushInterval(time.Duration(cfg.Events.FlushIntervalMs) * time.Millisecond),
		statsig.WithInitTimeout(time.Duration(cfg.Init.TimeoutMs) * time.Millisecond),
	}
	if cfg.Environment != "" {
		opts = append(opts, statsig.WithEnvironment(cfg.Environment))
	}
	if cfg.DisableAllLogging {
		opts = append(opts, statsig.WithDisableAllLogging())
	}
	if cfg.DisableNetwork {
		opts = append(opts, statsig.WithDisableNetwork())
	}

	client := statsig.New(cfg.SDKKey, opts...)
	if err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing statsig: %w", err)
	}
	logger.Info("statsig initialized")

	user := &statsig.User{UserID: "sample-user"}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

runLoop:
	for {
		select {
		case <-ticker.C:
			gate := client.GetFeatureGate(user, "sample_gate")
			logger.Info("evaluated gate",
				"name", gate.Name, "value", gate.Value, "rule_id", gate.RuleID,
				"reason", gate.Details.Reason)
		case <-ctx.Done():
			break runLoop
		}
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := client.ShutdownWithTimeout(shutdownCtx, 5*time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
