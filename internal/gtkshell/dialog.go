package gtkshell

import (
	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// ShowError presents a modal-less error dialog and calls done once it is
// dismissed. parent may be nil.
func ShowError(parent *gtk.Window, heading, body string, done func()) {
	dlg := adw.NewMessageDialog(parent, heading, body)
	dlg.AddResponse("close", "Close")
	dlg.SetDefaultResponse("close")
	dlg.SetCloseResponse("close")
	dlg.ConnectResponse(func(string) {
		if done != nil {
			done()
		}
	})
	dlg.Present()
}
