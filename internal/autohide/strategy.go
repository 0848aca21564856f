// Package autohide decides when a visible panel should hide itself and,
// for strategies that can see the global cursor, when a hidden panel should
// reveal itself at the screen edge.
package autohide

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/panel"
)

// Strategy names accepted in configuration.
const (
	KindAuto  = "auto"
	KindFocus = "focus"
	KindPoll  = "poll"
)

// ValidKinds returns the accepted strategy names.
func ValidKinds() []string {
	return []string{KindAuto, KindFocus, KindPoll}
}

// ErrUnavailable is returned when no strategy can run on this platform.
var ErrUnavailable = errors.New("no auto-hide strategy available")

// Strategy is an interchangeable auto-hide policy.
type Strategy interface {
	panel.AutoHider
	Start() error
	Stop()
	// PollsCursor reports whether the strategy also handles edge reveal.
	// When false, a separate edge trigger surface is needed.
	PollsCursor() bool
}

// Target is the controller surface a strategy drives. *panel.Controller
// implements it.
type Target interface {
	Visible() bool
	Resizing() bool
	Bounds() geometry.Rect
	Show()
	AutoHide(reason string) bool
	RequestDelayedHide(delay time.Duration, verify func() bool)
}

// Options are the tunables shared by all strategies.
type Options struct {
	PollInterval time.Duration // Cursor sampling period
	HideDelay    time.Duration // Debounce before an auto-hide is carried out
	EdgeMargin   int           // Reveal band width in pixels at the right edge
}

// DefaultOptions returns the stock tunables.
func DefaultOptions() Options {
	return Options{
		PollInterval: 50 * time.Millisecond,
		HideDelay:    100 * time.Millisecond,
		EdgeMargin:   5,
	}
}

// Env describes what the platform can offer a strategy.
type Env struct {
	Target    Target
	Scheduler panel.Scheduler
	Logger    *slog.Logger

	// Focus is nil when the toolkit cannot report focus changes.
	Focus FocusSource
	// FocusReliable is false where the window manager does not deliver
	// deactivation for the panel surface.
	FocusReliable bool

	// Pointer and Displays are nil where no global cursor query exists.
	Pointer  Pointer
	Displays Rightmost
}

// Select builds the strategy named by kind.
func Select(kind string, env Env, opts Options) (Strategy, error) {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	canPoll := env.Pointer != nil && env.Displays != nil

	switch kind {
	case KindFocus:
		if env.Focus == nil {
			return nil, fmt.Errorf("focus strategy: %w", ErrUnavailable)
		}
		return NewFocus(env.Target, env.Focus, env.Scheduler, opts, logger), nil
	case KindPoll:
		if !canPoll {
			return nil, fmt.Errorf("poll strategy needs a global cursor: %w", ErrUnavailable)
		}
		return NewPolling(env.Target, env.Pointer, env.Displays, env.Scheduler, opts, logger), nil
	case KindAuto, "":
		switch {
		case env.Focus != nil && env.FocusReliable:
			return NewFocus(env.Target, env.Focus, env.Scheduler, opts, logger), nil
		case canPoll:
			return NewPolling(env.Target, env.Pointer, env.Displays, env.Scheduler, opts, logger), nil
		case env.Focus != nil:
			logger.Warn("focus events may be unreliable and no cursor query exists, using focus strategy")
			return NewFocus(env.Target, env.Focus, env.Scheduler, opts, logger), nil
		}
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("unknown auto-hide strategy %q", kind)
	}
}
