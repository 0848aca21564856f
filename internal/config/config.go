// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/chatpanel/internal/autohide"
	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/hotkey"
	"github.com/jmylchreest/chatpanel/internal/panel"
	"github.com/jmylchreest/chatpanel/internal/screen"
)

// Default configuration values.
const (
	DefaultURL             = "https://claude.ai/"
	DefaultChord           = "Ctrl+Shift+F"
	DefaultScheme          = "chatpanel"
	DefaultDefaultFraction = 0.55
	DefaultMinFraction     = 0.2
	DefaultMaxFraction     = 0.8
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError reports one invalid setting.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Config is the chatpanel configuration.
// Loaded from ~/.config/chatpanel/chatpanel.toml
type Config struct {
	Panel       PanelConfig       `toml:"panel"`
	AutoHide    AutoHideConfig    `toml:"autohide"`
	EdgeTrigger EdgeTriggerConfig `toml:"edge_trigger"`
	Hotkey      HotkeyConfig      `toml:"hotkey"`
	Content     ContentConfig     `toml:"content"`
	Callback    CallbackConfig    `toml:"callback"`

	Appearance    AppearanceConfig    `toml:"appearance"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// PanelConfig contains sizing and placement settings.
type PanelConfig struct {
	Dock            string       `toml:"dock"`             // "rightmost", "cursor" or "primary"
	DefaultFraction float64      `toml:"default_fraction"` // Width on show without a manual width
	MinFraction     float64      `toml:"min_fraction"`     // Lower bound for manual widths
	MaxFraction     float64      `toml:"max_fraction"`     // Upper bound for manual widths
	FocusDelay      Duration     `toml:"focus_delay"`      // Re-assert focus after show, "0" disables
	Reserved        InsetsConfig `toml:"reserved"`         // Extra space kept clear on every display
}

// InsetsConfig is space reserved along each display edge, in pixels.
type InsetsConfig struct {
	Top    int `toml:"top"`
	Bottom int `toml:"bottom"`
	Left   int `toml:"left"`
	Right  int `toml:"right"`
}

// AutoHideConfig contains auto-hide settings.
type AutoHideConfig struct {
	Strategy     string   `toml:"strategy"`      // "auto", "focus" or "poll"
	PollInterval Duration `toml:"poll_interval"` // Cursor sampling period
	HideDelay    Duration `toml:"hide_delay"`    // Debounce before hiding
	EdgeMargin   int      `toml:"edge_margin"`   // Reveal band for cursor polling
}

// EdgeTriggerConfig contains the reveal strip settings.
type EdgeTriggerConfig struct {
	Enabled bool `toml:"enabled"`
	Width   int  `toml:"width"`
}

// HotkeyConfig contains the toggle chord.
type HotkeyConfig struct {
	Chord   string `toml:"chord"`   // e.g. "Ctrl+Shift+F" or "<Control><Shift>f"
	Backend string `toml:"backend"` // "auto", "x11", "portal", "window" or "none"
}

// ContentConfig contains the hosted content settings.
type ContentConfig struct {
	DefaultURL string       `toml:"default_url"`
	Sites      []SiteConfig `toml:"sites"`
}

// SiteConfig is one entry of the site switcher.
type SiteConfig struct {
	Name      string `toml:"name"`
	URL       string `toml:"url"`
	SignInURL string `toml:"sign_in_url"` // Opened in an auth popup, empty uses URL
}

// CallbackConfig contains the auth callback URI settings.
type CallbackConfig struct {
	Scheme string `toml:"scheme"`
}

// AppearanceConfig contains theming settings.
type AppearanceConfig struct {
	// Theme is a bundled theme name ("default", "minimal") or a path to a
	// CSS file. Relative paths resolve against the config directory.
	Theme string `toml:"theme"`
}

// NotificationsConfig controls desktop notifications about daemon events.
type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultSites returns the built-in site switcher entries.
func DefaultSites() []SiteConfig {
	return []SiteConfig{
		{Name: "Claude", URL: "https://claude.ai/"},
		{Name: "ChatGPT", URL: "https://chatgpt.com/"},
		{Name: "Mistral", URL: "https://chat.mistral.ai/"},
		{Name: "Copilot", URL: "https://copilot.microsoft.com/"},
		{Name: "Gemini", URL: "https://gemini.google.com/"},
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Panel: PanelConfig{
			Dock:            string(screen.PolicyRightmost),
			DefaultFraction: DefaultDefaultFraction,
			MinFraction:     DefaultMinFraction,
			MaxFraction:     DefaultMaxFraction,
			FocusDelay:      Duration(100 * time.Millisecond),
		},
		AutoHide: AutoHideConfig{
			Strategy:     autohide.KindAuto,
			PollInterval: Duration(50 * time.Millisecond),
			HideDelay:    Duration(100 * time.Millisecond),
			EdgeMargin:   5,
		},
		EdgeTrigger: EdgeTriggerConfig{
			Enabled: true,
			Width:   5,
		},
		Hotkey: HotkeyConfig{
			Chord:   DefaultChord,
			Backend: hotkey.BackendAuto,
		},
		Content: ContentConfig{
			DefaultURL: DefaultURL,
			Sites:      DefaultSites(),
		},
		Callback: CallbackConfig{
			Scheme: DefaultScheme,
		},
		Appearance: AppearanceConfig{
			Theme: "default",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
	}
}

// Path returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "chatpanel", "chatpanel.toml")
}

// StatePath returns the path to the state directory.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state.
func StatePath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "chatpanel")
}

// Load loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents. A [[content.sites]]
	// list in the file replaces the built-in sites rather than extending them.
	cfg.Content.Sites = nil
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(cfg.Content.Sites) == 0 {
		cfg.Content.Sites = DefaultSites()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(screen.ValidPolicies(), screen.Policy(c.Panel.Dock)) {
		return invalid("panel.dock", "must be one of %v, got %q", screen.ValidPolicies(), c.Panel.Dock)
	}
	p := c.Panel
	if p.MinFraction <= 0 || p.MinFraction > 1 {
		return invalid("panel.min_fraction", "must be in (0, 1], got %v", p.MinFraction)
	}
	if p.MaxFraction <= 0 || p.MaxFraction > 1 {
		return invalid("panel.max_fraction", "must be in (0, 1], got %v", p.MaxFraction)
	}
	if p.MinFraction > p.MaxFraction {
		return invalid("panel.min_fraction", "must not exceed max_fraction (%v > %v)", p.MinFraction, p.MaxFraction)
	}
	if p.DefaultFraction < p.MinFraction || p.DefaultFraction > p.MaxFraction {
		return invalid("panel.default_fraction", "must be between min_fraction and max_fraction, got %v", p.DefaultFraction)
	}
	if p.FocusDelay < 0 {
		return invalid("panel.focus_delay", "must not be negative")
	}
	for name, v := range map[string]int{"top": p.Reserved.Top, "bottom": p.Reserved.Bottom, "left": p.Reserved.Left, "right": p.Reserved.Right} {
		if v < 0 {
			return invalid("panel.reserved."+name, "must not be negative, got %d", v)
		}
	}

	a := c.AutoHide
	if !slices.Contains(autohide.ValidKinds(), a.Strategy) {
		return invalid("autohide.strategy", "must be one of %v, got %q", autohide.ValidKinds(), a.Strategy)
	}
	if a.PollInterval.Duration() < 10*time.Millisecond || a.PollInterval.Duration() > time.Second {
		return invalid("autohide.poll_interval", "must be between 10ms and 1s, got %s", a.PollInterval.Duration())
	}
	if a.HideDelay < 0 || a.HideDelay.Duration() > 5*time.Second {
		return invalid("autohide.hide_delay", "must be between 0 and 5s, got %s", a.HideDelay.Duration())
	}
	if a.EdgeMargin < 1 || a.EdgeMargin > 100 {
		return invalid("autohide.edge_margin", "must be between 1 and 100, got %d", a.EdgeMargin)
	}

	if c.EdgeTrigger.Width < 1 || c.EdgeTrigger.Width > 50 {
		return invalid("edge_trigger.width", "must be between 1 and 50, got %d", c.EdgeTrigger.Width)
	}

	if !slices.Contains(hotkey.ValidBackends(), c.Hotkey.Backend) {
		return invalid("hotkey.backend", "must be one of %v, got %q", hotkey.ValidBackends(), c.Hotkey.Backend)
	}
	if c.Hotkey.Backend != hotkey.BackendNone {
		if _, err := hotkey.ParseChord(c.Hotkey.Chord); err != nil {
			return invalid("hotkey.chord", "%v", err)
		}
	}

	if err := validateURL("content.default_url", c.Content.DefaultURL); err != nil {
		return err
	}
	for i, s := range c.Content.Sites {
		field := fmt.Sprintf("content.sites[%d]", i)
		if s.Name == "" {
			return invalid(field+".name", "must not be empty")
		}
		if err := validateURL(field+".url", s.URL); err != nil {
			return err
		}
		if s.SignInURL != "" {
			if err := validateURL(field+".sign_in_url", s.SignInURL); err != nil {
				return err
			}
		}
	}

	if !validScheme(c.Callback.Scheme) {
		return invalid("callback.scheme", "must be a URI scheme like %q, got %q", DefaultScheme, c.Callback.Scheme)
	}

	if c.Appearance.Theme == "" {
		return invalid("appearance.theme", "must not be empty")
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return invalid(field, "%v", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return invalid(field, "must be an http(s) URL, got %q", raw)
	}
	if u.Host == "" {
		return invalid(field, "missing host in %q", raw)
	}
	return nil
}

// validScheme follows RFC 3986: ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ).
func validScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// PanelPolicy converts the panel section to controller sizing rules.
func (c *Config) PanelPolicy() panel.Policy {
	return panel.Policy{
		Dock:            screen.Policy(c.Panel.Dock),
		DefaultFraction: c.Panel.DefaultFraction,
		MinFraction:     c.Panel.MinFraction,
		MaxFraction:     c.Panel.MaxFraction,
		FocusDelay:      c.Panel.FocusDelay.Duration(),
	}
}

// ReservedInsets returns the configured reserved space.
func (c *Config) ReservedInsets() geometry.Insets {
	r := c.Panel.Reserved
	return geometry.Insets{Top: r.Top, Bottom: r.Bottom, Left: r.Left, Right: r.Right}
}

// AutoHideOptions converts the autohide section to strategy tunables.
func (c *Config) AutoHideOptions() autohide.Options {
	return autohide.Options{
		PollInterval: c.AutoHide.PollInterval.Duration(),
		HideDelay:    c.AutoHide.HideDelay.Duration(),
		EdgeMargin:   c.AutoHide.EdgeMargin,
	}
}

// Chord returns the parsed toggle chord.
func (c *Config) Chord() (hotkey.Chord, error) {
	return hotkey.ParseChord(c.Hotkey.Chord)
}

// SiteFor returns the configured site whose URL matches raw by host.
func (c *Config) SiteFor(raw string) (SiteConfig, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return SiteConfig{}, false
	}
	for _, s := range c.Content.Sites {
		su, err := url.Parse(s.URL)
		if err == nil && su.Host == u.Host {
			return s, true
		}
	}
	return SiteConfig{}, false
}
