package gtkshell

import (
	"fmt"
	"log/slog"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/popup"
	"github.com/jmylchreest/chatpanel/internal/x11"
)

// AuthPopupFraction is the share of the primary display an auth popup covers.
const AuthPopupFraction = 0.7

// PrimaryDisplay resolves the display popups are centered on.
type PrimaryDisplay interface {
	Primary() (geometry.Display, error)
}

// AuthPopups opens sign-in windows and registers them with the tracker.
type AuthPopups struct {
	app     *gtk.Application
	tracker *popup.Tracker
	primary PrimaryDisplay
	conn    *x11.Conn
	logger  *slog.Logger
}

// NewAuthPopups creates the popup factory. conn may be nil; it is only used
// to center popups on X11.
func NewAuthPopups(app *gtk.Application, tracker *popup.Tracker, primary PrimaryDisplay, conn *x11.Conn, logger *slog.Logger) *AuthPopups {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthPopups{app: app, tracker: tracker, primary: primary, conn: conn, logger: logger}
}

// Open shows a popup for signing in to name at signInURL and hands the URL
// to the browser. The popup stays open (and the panel pinned) until the
// callback URL arrives or the user cancels. It returns nil when the popup
// could not be created.
func (f *AuthPopups) Open(name, signInURL string) *AuthPopup {
	d, err := f.primary.Primary()
	if err != nil {
		f.logger.Warn("cannot open auth popup", "site", name, "error", err)
		return nil
	}
	r := geometry.Centered(d, AuthPopupFraction)

	p := &AuthPopup{
		id:      popup.NewID(),
		url:     signInURL,
		tracker: f.tracker,
		logger:  f.logger,
	}
	p.build(f.app, name, r)
	if f.conn != nil && !Wayland() {
		// Compositors place Wayland toplevels themselves.
		p.window.ConnectMap(func() {
			if err := f.conn.Place(p.window.Title(), r); err != nil {
				f.logger.Debug("failed to center auth popup", "error", err)
			}
		})
	}
	f.tracker.Opened(p)

	p.window.Present()
	p.openBrowser()
	return p
}

// AuthPopup is one sign-in window. It implements popup.Handle.
type AuthPopup struct {
	id      string
	url     string
	window  *gtk.Window
	tracker *popup.Tracker
	logger  *slog.Logger
	closed  bool
}

func (p *AuthPopup) build(app *gtk.Application, name string, r geometry.Rect) {
	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetTitle(fmt.Sprintf("Sign in to %s (%s)", name, p.id))
	p.window.SetDefaultSize(r.Width, r.Height)
	p.window.AddCSSClass("chatpanel-auth")

	heading := gtk.NewLabel("Sign in to " + name)
	heading.AddCSSClass("title-1")

	body := gtk.NewLabel("Continue in your browser. This window closes when sign-in completes.")
	body.SetWrap(true)

	url := gtk.NewLabel(p.url)
	url.AddCSSClass("chatpanel-url")
	url.SetSelectable(true)

	reopen := gtk.NewButtonWithLabel("Open sign-in page")
	reopen.AddCSSClass("suggested-action")
	reopen.ConnectClicked(p.openBrowser)

	cancel := gtk.NewButtonWithLabel("Cancel")
	cancel.ConnectClicked(p.Close)

	buttons := gtk.NewBox(gtk.OrientationHorizontal, 12)
	buttons.SetHAlign(gtk.AlignCenter)
	buttons.Append(cancel)
	buttons.Append(reopen)

	box := gtk.NewBox(gtk.OrientationVertical, 18)
	box.SetVAlign(gtk.AlignCenter)
	box.SetMarginStart(48)
	box.SetMarginEnd(48)
	box.Append(heading)
	box.Append(body)
	box.Append(url)
	box.Append(buttons)
	p.window.SetChild(box)

	p.window.ConnectCloseRequest(func() bool {
		p.Close()
		return true
	})
}

func (p *AuthPopup) openBrowser() {
	gtk.ShowURI(p.window, p.url, gdk.CURRENT_TIME)
	p.logger.Debug("opened sign-in page", "popup_id", p.id, "url", p.url)
}

// ID returns the popup's identifier.
func (p *AuthPopup) ID() string {
	return p.id
}

// Close destroys the window and tells the tracker.
func (p *AuthPopup) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.tracker.Closed(p)
	p.window.Destroy()
}
