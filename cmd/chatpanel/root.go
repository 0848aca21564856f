// Package main provides the CLI entrypoint for chatpanel.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatpanel/internal/config"
	"github.com/jmylchreest/chatpanel/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global options and state
var (
	globalOpts struct {
		verbose    bool
		configPath string
		timeout    time.Duration
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatpanel",
	Short: "Control the chatpanel sidebar",
	Long: `chatpanel controls a running chatpaneld, the auto-hiding AI chat
sidebar docked to the right edge of the screen.

Bind "chatpanel toggle" to a key in your compositor if the built-in
hotkey is unavailable, and use "chatpanel status" as a Waybar module.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/chatpanel/chatpanel.toml)")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", 5*time.Second,
		"How long to wait for the running instance")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// configPath returns the --config value or the default path.
func configPath() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.Path()
}

// withClient connects to the session bus and runs fn with a deadline.
func withClient(fn func(ctx context.Context, c *dbus.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
	defer cancel()

	client, err := dbus.NewClient()
	if err != nil {
		return err
	}
	return fn(ctx, client)
}

func main() {
	Execute()
}
