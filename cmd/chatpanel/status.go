package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/chatpanel/internal/dbus"
)

// Output formats accepted by --format.
const (
	formatWaybar = "waybar"
	formatPlain  = "plain"
	formatJSON   = "json"
	formatYAML   = "yaml"
)

var statusOpts struct {
	format string
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// panelStatus is the status as reported by the CLI, including whether an
// instance is running at all.
type panelStatus struct {
	Running     bool `json:"running" yaml:"running"`
	dbus.Status `yaml:",inline"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the panel status",
	Long: `Show whether the panel is visible, where it is docked and how wide it is.

The waybar format is designed for Waybar's custom module:

  "custom/chatpanel": {
    "exec": "chatpanel status",
    "interval": 2,
    "return-type": "json",
    "on-click": "chatpanel toggle"
  }

A stopped daemon is not an error for the waybar format; the module is
given the "stopped" class instead. A daemon that does not answer in time
gets the "error" class.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", formatWaybar,
		"Output format (waybar, plain, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	var st panelStatus
	err := withClient(func(ctx context.Context, c *dbus.Client) error {
		s, err := c.Status(ctx)
		if err != nil {
			return err
		}
		st = panelStatus{Running: true, Status: s}
		return nil
	})
	if err != nil && !errors.Is(err, dbus.ErrNotRunning) {
		if statusOpts.format == formatWaybar {
			logger.Warn("failed to query status", "error", err)
			return json.NewEncoder(os.Stdout).Encode(waybarError(err))
		}
		return err
	}
	return writeStatus(os.Stdout, statusOpts.format, st, time.Now())
}

// writeStatus renders st in format.
func writeStatus(w io.Writer, format string, st panelStatus, now time.Time) error {
	switch format {
	case formatWaybar:
		return json.NewEncoder(w).Encode(waybarStatus(st, now))
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	case formatPlain:
		_, err := io.WriteString(w, renderPlain(st, now))
		return err
	default:
		return fmt.Errorf("unknown format %q (want waybar, plain, json or yaml)", format)
	}
}

// waybarStatus maps the panel state to a Waybar module. The class is one
// of visible, hidden or stopped.
func waybarStatus(st panelStatus, now time.Time) WaybarStatus {
	if !st.Running {
		return WaybarStatus{
			Text:    "",
			Alt:     "stopped",
			Tooltip: "chatpaneld is not running",
			Class:   "stopped",
		}
	}

	state := "hidden"
	if st.Visible {
		state = "visible"
	}

	var lines []string
	if st.Visible {
		lines = append(lines, fmt.Sprintf("Visible on %s, %d px", displayName(st.Display), st.Width))
		if !st.ShownAt.IsZero() {
			lines = append(lines, "Shown "+humanize.RelTime(st.ShownAt, now, "ago", "from now"))
		}
	} else {
		lines = append(lines, "Hidden")
	}
	if st.Popups > 0 {
		lines = append(lines, fmt.Sprintf("Sign-in popups: %d", st.Popups))
	}

	text := ""
	if st.Popups > 0 {
		text = fmt.Sprintf("%d", st.Popups)
	}

	return WaybarStatus{
		Text:    text,
		Alt:     state,
		Tooltip: strings.Join(lines, "\n"),
		Class:   state,
	}
}

// waybarError reports a daemon that exists but did not answer, which is
// distinct from a stopped one.
func waybarError(err error) WaybarStatus {
	return WaybarStatus{
		Text:    "!",
		Alt:     "error",
		Tooltip: "chatpaneld did not answer: " + err.Error(),
		Class:   "error",
	}
}

// renderPlain renders an aligned, human readable summary.
func renderPlain(st panelStatus, now time.Time) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Width(10)
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))
	stateStyle := lipgloss.NewStyle().Bold(true)

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	if !st.Running {
		b.WriteString(row("panel", stateStyle.Foreground(lipgloss.Color("9")).Render("not running")))
		return b.String()
	}

	if st.Visible {
		b.WriteString(row("panel", stateStyle.Foreground(lipgloss.Color("10")).Render("visible")))
		b.WriteString(row("display", displayName(st.Display)))
		b.WriteString(row("width", fmt.Sprintf("%d px", st.Width)))
		if !st.ShownAt.IsZero() {
			b.WriteString(row("shown", humanize.RelTime(st.ShownAt, now, "ago", "from now")))
		}
	} else {
		b.WriteString(row("panel", stateStyle.Render("hidden")))
	}
	b.WriteString(row("popups", fmt.Sprintf("%d", st.Popups)))
	b.WriteString(row("resizing", yesNo(st.Resizing)))
	return b.String()
}

func displayName(id string) string {
	if id == "" {
		return "unknown display"
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
