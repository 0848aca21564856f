// Package popup tracks authentication popup windows spawned by the hosted
// content. While any popup is open the panel must not auto-hide.
package popup

import (
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Handle is a spawned popup window.
type Handle interface {
	// ID returns a stable identifier for the popup.
	ID() string
	// Close closes the popup window. It may synchronously call back into
	// Tracker.Closed; the tracker ignores handles it no longer tracks.
	Close()
}

// Listener is told when the tracker switches between empty and non-empty.
type Listener interface {
	PopupsChanged(active bool)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(active bool)

// PopupsChanged implements Listener.
func (f ListenerFunc) PopupsChanged(active bool) {
	f(active)
}

// NewID returns a new popup identifier.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Tracker owns the ordered collection of open popups (spawn order).
// All methods must be called from the UI thread.
type Tracker struct {
	popups   []Handle
	listener Listener
	logger   *slog.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger}
}

// SetListener sets the listener notified on empty/non-empty transitions.
func (t *Tracker) SetListener(l Listener) {
	t.listener = l
}

// Active reports whether any popup is open.
func (t *Tracker) Active() bool {
	return len(t.popups) > 0
}

// Len returns the number of open popups.
func (t *Tracker) Len() int {
	return len(t.popups)
}

// Opened records a newly spawned popup.
func (t *Tracker) Opened(h Handle) {
	if h == nil {
		return
	}
	if t.indexOf(h) >= 0 {
		return
	}
	wasActive := t.Active()
	t.popups = append(t.popups, h)

	t.logger.Debug("popup opened", "popup_id", h.ID(), "open_popups", len(t.popups))

	if !wasActive {
		t.notify(true)
	}
}

// Closed removes a popup closed by the user. When the last popup goes the
// listener is told, which resumes polling and refocuses the panel.
func (t *Tracker) Closed(h Handle) {
	idx := t.indexOf(h)
	if idx < 0 {
		return
	}
	t.popups = append(t.popups[:idx], t.popups[idx+1:]...)

	t.logger.Debug("popup closed", "popup_id", h.ID(), "open_popups", len(t.popups))

	if len(t.popups) == 0 {
		t.notify(false)
	}
}

// AuthCompleted closes every tracked popup, not only the one that finished
// the round trip. Only one concurrent auth flow is supported.
func (t *Tracker) AuthCompleted(url string) {
	closed := t.closeAll()

	t.logger.Info("auth completed, closed popups", "count", closed)

	// The listener also refocuses the panel, so it is told even when there
	// was nothing to close.
	t.notify(false)
}

// CloseAll closes every popup without refocusing the panel. Used on shutdown
// so no popup outlives the host.
func (t *Tracker) CloseAll() {
	if !t.Active() {
		return
	}
	closed := t.closeAll()
	t.logger.Debug("closed all popups", "count", closed)
}

// closeAll clears the collection before closing so re-entrant Closed calls
// from the handles are no-ops.
func (t *Tracker) closeAll() int {
	popups := t.popups
	t.popups = nil
	for _, h := range popups {
		h.Close()
	}
	return len(popups)
}

func (t *Tracker) indexOf(h Handle) int {
	for i, p := range t.popups {
		if p == h {
			return i
		}
	}
	return -1
}

func (t *Tracker) notify(active bool) {
	if t.listener != nil {
		t.listener.PopupsChanged(active)
	}
}
