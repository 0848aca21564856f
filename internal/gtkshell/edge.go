package gtkshell

import (
	"log/slog"

	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatpanel/internal/geometry"
)

// EdgeNamespace is the layer-shell namespace (and X11 title) of the strip.
const EdgeNamespace = "chatpanel-edge"

// EdgeStrip is the thin invisible window along the right screen edge. It
// implements edge.Surface.
type EdgeStrip struct {
	window    *gtk.Window
	placement Placement
	logger    *slog.Logger

	display geometry.Display
	rect    geometry.Rect
	placed  bool
	closed  bool

	onEnter func()
	onPress func()
}

// NewEdgeStrip creates the strip. It is not shown until placed.
func NewEdgeStrip(app *gtk.Application, placement Placement, logger *slog.Logger) *EdgeStrip {
	if logger == nil {
		logger = slog.Default()
	}
	e := &EdgeStrip{placement: placement, logger: logger}

	e.window = gtk.NewWindow()
	e.window.SetApplication(app)
	e.window.SetDecorated(false)
	e.window.SetResizable(false)
	e.window.SetFocusable(false)
	e.window.AddCSSClass("chatpanel-edge")
	placement.Init(e.window, LayerEdge, EdgeNamespace)

	motion := gtk.NewEventControllerMotion()
	motion.ConnectEnter(func(x, y float64) {
		if e.onEnter != nil {
			e.onEnter()
		}
	})
	e.window.AddController(motion)

	click := gtk.NewGestureClick()
	click.SetButton(0)
	click.ConnectPressed(func(nPress int, x, y float64) {
		if e.onPress != nil {
			e.onPress()
		}
	})
	e.window.AddController(click)

	e.window.ConnectMap(func() {
		if e.placed {
			e.placement.Place(e.window, e.display, e.rect)
		}
	})
	return e
}

// SetEnterHandler sets the callback for the pointer entering the strip.
func (e *EdgeStrip) SetEnterHandler(fn func()) {
	e.onEnter = fn
}

// SetPressHandler sets the callback for a pointer button press on the strip.
func (e *EdgeStrip) SetPressHandler(fn func()) {
	e.onPress = fn
}

// Place sizes the strip to r on d and shows it.
func (e *EdgeStrip) Place(d geometry.Display, r geometry.Rect) {
	if e.closed {
		return
	}
	e.display, e.rect, e.placed = d, r, true
	e.placement.Place(e.window, d, r)
	e.window.SetVisible(true)
	e.logger.Debug("edge strip placed", "display", d.ID, "rect", r.String())
}

// Raise restacks the strip on top.
func (e *EdgeStrip) Raise() {
	if e.closed || !e.placed {
		return
	}
	e.placement.Raise(e.window)
}

// Close destroys the strip.
func (e *EdgeStrip) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.window.Destroy()
}
