package gtkshell

import (
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Focus reports focus changes of the panel window. It implements
// autohide.FocusSource.
type Focus struct {
	app   *gtk.Application
	panel *PanelWindow
}

// NewFocus creates a Focus for the panel of app.
func NewFocus(app *gtk.Application, panel *PanelWindow) *Focus {
	return &Focus{app: app, panel: panel}
}

// WatchFocus calls fn whenever the panel gains or loses focus.
func (f *Focus) WatchFocus(fn func(active bool)) func() {
	return f.panel.NotifyActive(fn)
}

// OwnWindowActive reports whether any of our windows (the panel or an auth
// popup) currently holds focus.
func (f *Focus) OwnWindowActive() bool {
	for _, w := range f.app.Windows() {
		if w.IsActive() {
			return true
		}
	}
	return false
}
