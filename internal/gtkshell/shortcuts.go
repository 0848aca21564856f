package gtkshell

import (
	"context"
	"errors"
	"fmt"

	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatpanel/internal/hotkey"
)

// WindowBinder binds the chord as a shortcut of our own windows. It only
// fires while the panel has focus, so it is the fallback when no global
// backend is available: the panel can still be hidden with the chord.
type WindowBinder struct {
	window     *gtk.Window
	controller *gtk.ShortcutController
}

// NewWindowBinder creates a binder for w.
func NewWindowBinder(w *gtk.Window) *WindowBinder {
	return &WindowBinder{window: w}
}

// Name implements hotkey.Binder.
func (b *WindowBinder) Name() string { return hotkey.BackendWindow }

// Bind implements hotkey.Binder. It must run on the GTK main thread.
func (b *WindowBinder) Bind(_ context.Context, chord hotkey.Chord, fn func()) error {
	if b.window == nil {
		return errors.New("no window")
	}
	accel := chord.Accelerator()
	trigger := gtk.ShortcutTriggerParseString(accel)
	if trigger == nil {
		return fmt.Errorf("GTK cannot parse accelerator %q", accel)
	}
	_ = b.Close()

	action := gtk.NewCallbackAction(func(gtk.Widgetter, *glib.Variant) bool {
		fn()
		return true
	})
	b.controller = gtk.NewShortcutController()
	b.controller.SetScope(gtk.ShortcutScopeGlobal)
	b.controller.AddShortcut(gtk.NewShortcut(trigger, action))
	b.window.AddController(b.controller)
	return nil
}

// Close removes the shortcut.
func (b *WindowBinder) Close() error {
	if b.controller != nil {
		b.window.RemoveController(b.controller)
		b.controller = nil
	}
	return nil
}
