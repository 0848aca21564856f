package autohide

import (
	"log/slog"

	"github.com/jmylchreest/chatpanel/internal/panel"
)

// FocusSource reports keyboard focus changes of the panel window.
type FocusSource interface {
	// WatchFocus calls fn whenever the panel gains or loses focus.
	WatchFocus(fn func(active bool)) (stop func())
	// OwnWindowActive reports whether the panel or one of its own windows
	// (auth popups, dialogs) currently holds focus.
	OwnWindowActive() bool
}

// Focus hides the panel when it loses focus to another application. It has
// no cursor access, so edge reveal is left to an edge trigger.
type Focus struct {
	target  Target
	source  FocusSource
	sched   panel.Scheduler
	opts    Options
	logger  *slog.Logger
	stop    func()
	paused  bool
	running bool
}

// NewFocus creates a focus-driven strategy.
func NewFocus(target Target, source FocusSource, sched panel.Scheduler, opts Options, logger *slog.Logger) *Focus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Focus{
		target: target,
		source: source,
		sched:  sched,
		opts:   opts,
		logger: logger,
	}
}

func (f *Focus) Name() string { return KindFocus }

func (f *Focus) PollsCursor() bool { return false }

// Start subscribes to focus changes.
func (f *Focus) Start() error {
	if f.running {
		return nil
	}
	f.running = true
	f.stop = f.source.WatchFocus(f.focusChanged)
	f.logger.Debug("focus auto-hide started", "hide_delay", f.opts.HideDelay)
	return nil
}

// Stop unsubscribes.
func (f *Focus) Stop() {
	if !f.running {
		return
	}
	f.running = false
	if f.stop != nil {
		f.stop()
		f.stop = nil
	}
}

// Suspend ignores focus loss until Resume.
func (f *Focus) Suspend() { f.paused = true }

// Resume re-enables focus-loss handling.
func (f *Focus) Resume() { f.paused = false }

func (f *Focus) focusChanged(active bool) {
	if active || f.paused || !f.target.Visible() {
		return
	}
	if f.source.OwnWindowActive() {
		return
	}
	f.target.RequestDelayedHide(f.opts.HideDelay, func() bool {
		return !f.source.OwnWindowActive()
	})
}
