// Package main is the entry point for the chatpaneld sidebar daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmylchreest/chatpanel/internal/config"
	"github.com/jmylchreest/chatpanel/internal/dbus"
)

const (
	appID   = "io.github.jmylchreest.chatpaneld"
	appName = "chatpaneld"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file (default $XDG_CONFIG_HOME/chatpanel/chatpanel.toml)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [callback-url]\n", appName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	args := flag.Args()
	if u, ok := callbackArg(args, cfg.Callback.Scheme); ok {
		os.Exit(forwardCallback(u, logger))
	}
	if len(args) > 0 {
		logger.Warn("ignoring unrecognised arguments", "args", args)
	}

	os.Exit(run(cfg, *configPath, logger))
}

// run starts the panel, or asks the running instance to show itself.
func run(cfg *config.Config, configPath string, logger *slog.Logger) int {
	logger.Info("starting chatpaneld", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newDaemon(cfg, configPath, logger)

	if err := d.startServer(); err != nil {
		if errors.Is(err, dbus.ErrAlreadyRunning) {
			logger.Info("chatpaneld already running, showing existing panel")
			return forward(logger, func(ctx context.Context, c *dbus.Client) error {
				return c.Show(ctx)
			})
		}
		logger.Error("failed to start D-Bus server", "error", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		d.quit()
	}()

	status := d.run(ctx)
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}
	logger.Info("chatpaneld stopped")
	return 0
}

// forwardCallback hands an auth callback URL to the running instance and
// brings it to the foreground. It never starts a panel of its own.
func forwardCallback(u string, logger *slog.Logger) int {
	return forward(logger, func(ctx context.Context, c *dbus.Client) error {
		if err := c.AuthCallback(ctx, u); err != nil {
			return err
		}
		return c.Present(ctx)
	})
}

// newClient connects to the running instance. Tests point it at a private bus.
var newClient = dbus.NewClient

func forward(logger *slog.Logger, fn func(context.Context, *dbus.Client) error) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := newClient()
	if err != nil {
		logger.Error("failed to connect to session bus", "error", err)
		return 1
	}

	if err := fn(ctx, client); err != nil {
		if errors.Is(err, dbus.ErrNotRunning) {
			logger.Error("no running chatpaneld instance")
		} else {
			logger.Error("request to running instance failed", "error", err)
		}
		return 1
	}
	return 0
}
