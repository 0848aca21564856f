package panel

import (
	"time"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/screen"
)

// Window is the host panel surface driven by the controller.
type Window interface {
	// SetGeometry places the panel on display d at rect r (global coordinates).
	SetGeometry(d geometry.Display, r geometry.Rect)
	// Present maps and raises the panel.
	Present()
	// Hide unmaps the panel.
	Hide()
	// Activate gives the panel keyboard focus.
	Activate()
}

// Scheduler runs callbacks on the UI thread. Every returned cancel func is
// safe to call more than once and after the callback has run.
type Scheduler interface {
	// Defer runs fn on the next loop iteration.
	Defer(fn func())
	// After runs fn once after d.
	After(d time.Duration, fn func()) (cancel func())
	// Every runs fn every d until cancelled.
	Every(d time.Duration, fn func()) (cancel func())
}

// Locator resolves displays. *screen.Locator implements it.
type Locator interface {
	Resolve(policy screen.Policy, cursor *geometry.Point) (geometry.Display, error)
	ByID(id string) (geometry.Display, bool)
	Primary() (geometry.Display, error)
}

// Cursor reports the global pointer position.
type Cursor interface {
	Position() (geometry.Point, error)
}

// Popups reports whether auth popups are open. *popup.Tracker implements it.
type Popups interface {
	Active() bool
	Len() int
}

// AutoHider is the part of an auto-hide strategy the controller drives.
type AutoHider interface {
	Name() string
	Suspend()
	Resume()
}

// Policy holds the sizing and placement rules.
type Policy struct {
	Dock            screen.Policy
	DefaultFraction float64       // Width fraction for shows without a manual width
	MinFraction     float64       // Lower bound for manual widths
	MaxFraction     float64       // Upper bound for manual widths
	FocusDelay      time.Duration // Re-assert focus this long after a show (0 disables)
}

// DefaultPolicy returns the stock sizing rules.
func DefaultPolicy() Policy {
	return Policy{
		Dock:            screen.PolicyRightmost,
		DefaultFraction: 0.55,
		MinFraction:     0.2,
		MaxFraction:     0.8,
		FocusDelay:      100 * time.Millisecond,
	}
}
