package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"script-translator/internal/config"
	"script-translator/internal/memory"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "script-translator",
		Short: "Extract and re-inject translatable text in visual-novel and game scripts",
		Long: `Extracts dialogue and UI strings from game script formats (Artemis .ast,
KiriKiri .ks, Musica .sc, Diesel .nut string tables, Lua, INI, TXT/TSV) into a
session file for translators, and writes translations back while preserving
every byte outside the translated text.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(injectCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(memoryCmd())
	rootCmd.AddCommand(formatsCmd())

	return rootCmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadConfig reads and validates the environment and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

// run wires the shared dependencies of a command.
func run(fn func(ctx context.Context, cfg *config.Config) error) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return fn(ctx, cfg)
}

// openMemory opens the configured translation memory and preloads it.
func openMemory(ctx context.Context, cfg *config.Config) (*memory.Memory, error) {
	mem, err := memory.Open(ctx, cfg.MemoryDSN)
	if err != nil {
		return nil, fmt.Errorf("open translation memory: %w", err)
	}
	if err := mem.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload translation memory")
	}
	return mem, nil
}
