// Package gtkshell is the GTK4 rendition of the panel's collaborators: the
// panel and edge windows, auth popups, monitor enumeration, focus events
// and the main-loop scheduler. Everything here runs on the GTK main loop.
package gtkshell

import (
	"time"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
)

// Scheduler implements panel.Scheduler on the GLib main loop.
type Scheduler struct{}

// Defer runs fn on the next main-loop iteration.
func (Scheduler) Defer(fn func()) {
	coreglib.IdleAdd(func() bool {
		fn()
		return false
	})
}

// After runs fn once after d.
func (Scheduler) After(d time.Duration, fn func()) func() {
	return schedule(d, false, fn)
}

// Every runs fn every d until cancelled.
func (Scheduler) Every(d time.Duration, fn func()) func() {
	return schedule(d, true, fn)
}

func schedule(d time.Duration, repeat bool, fn func()) func() {
	done := false
	handle := coreglib.TimeoutAdd(uint(max(d.Milliseconds(), 0)), func() bool {
		if done {
			return false
		}
		if !repeat {
			done = true
		}
		fn()
		return repeat && !done
	})
	return func() {
		if done {
			return
		}
		done = true
		coreglib.SourceRemove(handle)
	}
}

// Dispatch marshals fn onto the main loop from any goroutine.
func Dispatch(fn func()) {
	coreglib.IdleAdd(func() bool {
		fn()
		return false
	})
}
