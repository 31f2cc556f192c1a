// Package main is the entry point for the looma-agent CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ronitrai27/looma-agent/internal/agent"
	"github.com/ronitrai27/looma-agent/internal/config"
	"github.com/ronitrai27/looma-agent/internal/cron"
	"github.com/ronitrai27/looma-agent/internal/gateway"
	"github.com/ronitrai27/looma-agent/internal/provider"
	"github.com/ronitrai27/looma-agent/internal/provider/gemini"
	"github.com/ronitrai27/looma-agent/internal/store"
	storesqlite "github.com/ronitrai27/looma-agent/internal/store/sqlite"
	"github.com/ronitrai27/looma-agent/internal/telemetry"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "looma-agent",
		Short:         "AI teammate service for Looma project chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("looma-agent %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the agent service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := resolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			return run(cfg)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Configuration OK (store: %s, gateway: %s)\n", cfg.Store.Driver, cfg.Gateway.Bind)
			return nil
		},
	})
	return cmd
}

func run(cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, logger)
	if err != nil {
		return err
	}

	// Stores.
	var (
		messages   store.MessageStore
		configs    store.ConfigStore
		identities store.IdentityStore
	)
	switch cfg.Store.Driver {
	case config.DriverMemory:
		messages = store.NewMemMessageStore()
		configs = store.NewMemConfigStore()
		identities = store.NewMemIdentityStore()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := storesqlite.Open(cfg.Store.Path, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		messages = db.Messages()
		configs = db.Configs()
		identities = db.Identities()
	}

	// Generation backend.
	var generator provider.Generator
	generator, err = gemini.NewClient(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, logger)
	if err != nil {
		return err
	}
	if cfg.Gemini.APIKey == "" {
		logger.Warn("gemini.api_key is empty, the agent will score but never respond")
	}

	// Pipeline.
	metrics := gateway.NewMetrics()
	hub := gateway.NewHub(logger)
	responder := agent.NewResponder(agent.Options{
		Messages:   messages,
		Configs:    configs,
		Identities: identities,
		Generator:  generator,
		Logger:     logger,
		Events:     hub,
		Metrics:    metrics,
	})

	// HTTP surface.
	gw := gateway.New(gateway.Config{
		Bind:          cfg.Gateway.Bind,
		WebhookSecret: cfg.Gateway.WebhookSecret,
	}, gateway.Deps{
		Responder: responder,
		Configs:   configs,
		Messages:  messages,
		Metrics:   metrics,
		Hub:       hub,
		Logger:    logger,
	})
	if err := gw.Start(); err != nil {
		return err
	}

	// Background maintenance.
	scheduler := cron.NewScheduler(logger)
	if err := scheduler.RegisterJob(&cron.DailyResetJob{
		Configs:      configs,
		Logger:       logger,
		ScheduleExpr: cfg.Cron.DailyResetSchedule,
	}); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}

	logger.Info("looma-agent started",
		"version", version,
		"model", generator.ModelName(),
		"store", cfg.Store.Driver,
	)

	// Block until a shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	if err := gw.Stop(ctx); err != nil {
		logger.Error("gateway shutdown failed", "error", err)
	}
	if err := scheduler.Stop(ctx); err != nil {
		logger.Error("scheduler shutdown failed", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("trace export shutdown failed", "error", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/looma-agent/config.yaml → ./looma-agent.yaml
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "looma-agent", "config.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "looma-agent", "config.yaml"))
	}

	candidates = append(candidates, "looma-agent.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
