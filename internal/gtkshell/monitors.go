package gtkshell

import (
	"log/slog"
	"strconv"
	"unsafe"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/chatpanel/internal/geometry"
)

// Monitors enumerates gdk monitors as geometry.Display snapshots. It
// implements screen.Source.
type Monitors struct {
	display *gdk.Display
	logger  *slog.Logger
}

// NewMonitors wraps the default gdk display.
func NewMonitors(logger *slog.Logger) *Monitors {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitors{display: gdk.DisplayGetDefault(), logger: logger}
}

// Displays returns a fresh snapshot of every monitor. GTK4 has no notion of
// a primary monitor, so the first one is marked primary. Work areas are not
// exposed either; Available equals Geometry and reserved space comes from
// configuration.
func (m *Monitors) Displays() []geometry.Display {
	if m.display == nil {
		return nil
	}
	monitors := m.display.Monitors()
	if monitors == nil {
		return nil
	}

	out := make([]geometry.Display, 0, monitors.NItems())
	for i := uint(0); i < monitors.NItems(); i++ {
		mon := wrapMonitor(monitors.Item(i))
		if mon == nil {
			continue
		}
		g := mon.Geometry()
		rect := geometry.Rect{X: g.X(), Y: g.Y(), Width: g.Width(), Height: g.Height()}
		out = append(out, geometry.Display{
			ID:        monitorID(mon, i),
			Name:      mon.Description(),
			Geometry:  rect,
			Available: rect,
			Primary:   i == 0,
		})
	}
	return out
}

// Monitor returns the gdk monitor for a display ID.
func (m *Monitors) Monitor(id string) *gdk.Monitor {
	if m.display == nil {
		return nil
	}
	monitors := m.display.Monitors()
	for i := uint(0); i < monitors.NItems(); i++ {
		mon := wrapMonitor(monitors.Item(i))
		if mon != nil && monitorID(mon, i) == id {
			return mon
		}
	}
	return nil
}

// OnChanged calls fn whenever monitors are added or removed.
func (m *Monitors) OnChanged(fn func()) {
	if m.display == nil {
		return
	}
	m.display.Monitors().ConnectItemsChanged(func(position, removed, added uint) {
		m.logger.Info("monitor configuration changed", "removed", removed, "added", added)
		fn()
	})
}

// monitorID prefers the connector name (DP-1, HDMI-A-1) and falls back to
// the list index.
func monitorID(mon *gdk.Monitor, index uint) string {
	if c := mon.Connector(); c != "" {
		return c
	}
	return strconv.FormatUint(uint64(index), 10)
}

// wrapMonitor wraps a coreglib.Object as a gdk.Monitor; gotk4 does not
// export its own wrapper.
func wrapMonitor(obj *coreglib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*coreglib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}
