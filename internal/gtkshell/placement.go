package gtkshell

import (
	"log/slog"
	"os"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/x11"
)

// Layer selects the stacking layer of a surface.
type Layer int

const (
	// LayerPanel is for the panel itself (above normal windows).
	LayerPanel Layer = iota
	// LayerEdge is for the reveal strip (above everything, fullscreen included).
	LayerEdge
)

// Placement positions undecorated windows at global coordinates.
type Placement interface {
	// Init prepares w; it must run before w is realized.
	Init(w *gtk.Window, layer Layer, namespace string)
	// Place sizes w to r on display d.
	Place(w *gtk.Window, d geometry.Display, r geometry.Rect)
	// Raise restacks w above its peers.
	Raise(w *gtk.Window)
}

// Wayland reports whether the session is a Wayland session.
func Wayland() bool {
	return os.Getenv("WAYLAND_DISPLAY") != "" && os.Getenv("GDK_BACKEND") != "x11"
}

// NewPlacement returns layer-shell placement on Wayland and X11 placement
// through conn otherwise. conn may be nil, in which case X11 windows are
// only resized.
func NewPlacement(monitors *Monitors, conn *x11.Conn, logger *slog.Logger) Placement {
	if logger == nil {
		logger = slog.Default()
	}
	if Wayland() {
		return &layerPlacement{monitors: monitors}
	}
	return &x11Placement{conn: conn, logger: logger}
}

// layerPlacement anchors surfaces to the top, bottom and right edges of a
// monitor and offsets them with margins.
type layerPlacement struct {
	monitors *Monitors
}

func (p *layerPlacement) Init(w *gtk.Window, layer Layer, namespace string) {
	layershell.InitForWindow(w)
	layershell.SetNamespace(w, namespace)
	// -1 ignores other surfaces' exclusive zones so margins are measured
	// from the monitor edge, matching geometry.EdgeMargins.
	layershell.SetExclusiveZone(w, -1)

	switch layer {
	case LayerEdge:
		layershell.SetLayer(w, layershell.LayerShellLayerOverlay)
		layershell.SetKeyboardMode(w, layershell.LayerShellKeyboardModeNone)
	default:
		layershell.SetLayer(w, layershell.LayerShellLayerTop)
		layershell.SetKeyboardMode(w, layershell.LayerShellKeyboardModeOnDemand)
	}

	layershell.SetAnchor(w, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(w, layershell.LayerShellEdgeBottom, true)
	layershell.SetAnchor(w, layershell.LayerShellEdgeRight, true)
	layershell.SetAnchor(w, layershell.LayerShellEdgeLeft, false)
}

func (p *layerPlacement) Place(w *gtk.Window, d geometry.Display, r geometry.Rect) {
	if mon := p.monitors.Monitor(d.ID); mon != nil {
		layershell.SetMonitor(w, mon)
	}
	m := geometry.EdgeMargins(d, r)
	layershell.SetMargin(w, layershell.LayerShellEdgeTop, m.Top)
	layershell.SetMargin(w, layershell.LayerShellEdgeBottom, m.Bottom)
	layershell.SetMargin(w, layershell.LayerShellEdgeRight, m.Right)
	w.SetDefaultSize(r.Width, r.Height)
	w.SetSizeRequest(r.Width, -1)
}

func (p *layerPlacement) Raise(w *gtk.Window) {
	w.Present()
}

// x11Placement resizes through GTK and moves through the X server.
type x11Placement struct {
	conn   *x11.Conn
	logger *slog.Logger
}

func (p *x11Placement) Init(w *gtk.Window, layer Layer, namespace string) {
	// The title is how the X11 window is found again.
	w.SetTitle(namespace)
	w.SetDecorated(false)
}

func (p *x11Placement) Place(w *gtk.Window, d geometry.Display, r geometry.Rect) {
	w.SetDefaultSize(r.Width, r.Height)
	w.SetSizeRequest(r.Width, r.Height)
	if p.conn == nil || !w.Mapped() {
		return
	}
	if err := p.conn.Place(w.Title(), r); err != nil {
		p.logger.Debug("failed to move X11 window", "title", w.Title(), "error", err)
	}
}

func (p *x11Placement) Raise(w *gtk.Window) {
	w.Present()
	if p.conn == nil {
		return
	}
	if err := p.conn.Raise(w.Title()); err != nil {
		p.logger.Debug("failed to raise X11 window", "title", w.Title(), "error", err)
	}
}
