package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatpanel/internal/config"
	"github.com/jmylchreest/chatpanel/internal/dbus"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Show(ctx)
		})
	},
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide the panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Hide(ctx)
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Show the panel if hidden, hide it if shown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Toggle(ctx)
		})
	},
}

var callbackCmd = &cobra.Command{
	Use:   "callback <url>",
	Short: "Deliver a sign-in callback URL to the running panel",
	Long: `Deliver a sign-in callback URL (for example chatpanel://auth?...) to the
running panel. Every open sign-in popup is closed and the panel is brought
to the front. Nothing is started if no panel is running.`,
	Args: cobra.ExactArgs(1),
	RunE: runCallback,
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(hideCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(callbackCmd)
}

func runCallback(cmd *cobra.Command, args []string) error {
	scheme := config.DefaultScheme
	if cfg, err := config.Load(configPath()); err != nil {
		logger.Warn("failed to load config, assuming default callback scheme", "error", err)
	} else {
		scheme = cfg.Callback.Scheme
	}

	if err := checkCallbackURL(args[0], scheme); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, c *dbus.Client) error {
		if err := c.AuthCallback(ctx, args[0]); err != nil {
			return err
		}
		return c.Present(ctx)
	})
}

// checkCallbackURL rejects anything that is not a scheme:// URI.
func checkCallbackURL(raw, scheme string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid callback URL: %w", err)
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return fmt.Errorf("callback URL must use the %s:// scheme, got %q", scheme, raw)
	}
	return nil
}
