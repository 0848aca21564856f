package gtkshell

import (
	"log/slog"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatpanel/internal/geometry"
)

// PanelNamespace is the layer-shell namespace (and X11 title) of the panel.
const PanelNamespace = "chatpanel"

// ResizeHandler receives drag events from the resize handle in global X
// coordinates. *panel.Resizer implements it.
type ResizeHandler interface {
	Begin(x int)
	Update(x int)
	End()
	Cancel()
}

// PanelWindow is the host surface. It implements panel.Window.
type PanelWindow struct {
	window    *gtk.Window
	placement Placement
	logger    *slog.Logger

	body   *gtk.Box
	handle *gtk.Box

	display geometry.Display
	rect    geometry.Rect
	placed  bool

	onCloseRequest func()
	bounds         func() geometry.Rect
	resize         ResizeHandler
	dragStart      float64
}

// NewPanelWindow builds the panel window and its resize handle. content is
// packed to the right of the handle.
func NewPanelWindow(app *gtk.Application, placement Placement, content gtk.Widgetter, logger *slog.Logger) *PanelWindow {
	if logger == nil {
		logger = slog.Default()
	}

	p := &PanelWindow{placement: placement, logger: logger}

	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetDecorated(false)
	p.window.SetHideOnClose(true)
	p.window.AddCSSClass("chatpanel-panel")
	placement.Init(p.window, LayerPanel, PanelNamespace)

	p.handle = gtk.NewBox(gtk.OrientationVertical, 0)
	p.handle.AddCSSClass("chatpanel-resize-handle")
	p.handle.SetVExpand(true)
	p.handle.SetCursorFromName("ew-resize")

	p.body = gtk.NewBox(gtk.OrientationHorizontal, 0)
	p.body.Append(p.handle)
	if content != nil {
		p.body.Append(content)
	}
	p.window.SetChild(p.body)

	p.connectSignals()
	return p
}

// Window returns the underlying GTK window.
func (p *PanelWindow) Window() *gtk.Window {
	return p.window
}

// SetCloseHandler sets what the window-manager close request does. The
// window is never destroyed by it.
func (p *PanelWindow) SetCloseHandler(fn func()) {
	p.onCloseRequest = fn
}

// SetResizeHandler wires the drag handle. bounds returns the panel's current
// global rectangle.
func (p *PanelWindow) SetResizeHandler(h ResizeHandler, bounds func() geometry.Rect) {
	p.resize = h
	p.bounds = bounds
}

func (p *PanelWindow) connectSignals() {
	p.window.ConnectCloseRequest(func() bool {
		if p.onCloseRequest != nil {
			p.onCloseRequest()
		}
		return true
	})

	// X11 placement needs a mapped window.
	p.window.ConnectMap(func() {
		if p.placed {
			p.placement.Place(p.window, p.display, p.rect)
		}
	})

	drag := gtk.NewGestureDrag()
	drag.ConnectDragBegin(func(startX, startY float64) {
		if p.resize == nil {
			return
		}
		p.dragStart = startX
		p.handle.AddCSSClass("dragging")
		p.resize.Begin(p.globalX(0))
	})
	drag.ConnectDragUpdate(func(offsetX, offsetY float64) {
		if p.resize != nil {
			p.resize.Update(p.globalX(offsetX))
		}
	})
	drag.ConnectDragEnd(func(offsetX, offsetY float64) {
		if p.resize == nil {
			return
		}
		p.handle.RemoveCSSClass("dragging")
		p.resize.End()
	})
	// A grab taken by another widget or the compositor cancels the drag;
	// drag-end still follows and is then a no-op.
	drag.ConnectCancel(func(sequence *gdk.EventSequence) {
		if p.resize == nil {
			return
		}
		p.handle.RemoveCSSClass("dragging")
		p.resize.Cancel()
	})
	p.handle.AddController(drag)
}

// globalX converts a drag offset to a global X coordinate. The handle sits
// at the panel's left edge and moves with it, so the panel's current left
// edge is added back in.
func (p *PanelWindow) globalX(offsetX float64) int {
	left := p.rect.X
	if p.bounds != nil {
		left = p.bounds().X
	}
	return dragGlobalX(left, p.dragStart, offsetX)
}

func dragGlobalX(left int, start, offset float64) int {
	return left + int(start+offset)
}

// SetGeometry places the panel on d at r.
func (p *PanelWindow) SetGeometry(d geometry.Display, r geometry.Rect) {
	p.display = d
	p.rect = r
	p.placed = true
	p.placement.Place(p.window, d, r)
	p.logger.Debug("panel placed", "display", d.ID, "rect", r.String())
}

// Present maps and raises the panel.
func (p *PanelWindow) Present() {
	p.window.SetVisible(true)
	p.placement.Raise(p.window)
}

// Hide unmaps the panel.
func (p *PanelWindow) Hide() {
	p.window.SetVisible(false)
}

// Activate gives the panel keyboard focus.
func (p *PanelWindow) Activate() {
	p.window.Present()
	p.window.GrabFocus()
}

// IsActive reports whether the panel window has focus.
func (p *PanelWindow) IsActive() bool {
	return p.window.IsActive()
}

// NotifyActive calls fn with the new state whenever the panel gains or
// loses focus. The returned func disconnects it.
func (p *PanelWindow) NotifyActive(fn func(active bool)) func() {
	h := p.window.NotifyProperty("is-active", func() {
		fn(p.window.IsActive())
	})
	return func() { disconnect(p.window.Object, h) }
}

// Destroy destroys the window.
func (p *PanelWindow) Destroy() {
	p.window.Destroy()
}

func disconnect(obj *coreglib.Object, h coreglib.SignalHandle) {
	if obj != nil && h != 0 {
		obj.HandlerDisconnect(h)
	}
}
