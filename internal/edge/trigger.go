// Package edge implements the reveal strip used when the auto-hide strategy
// cannot see the global cursor: a thin always-on-top surface at the right
// edge of the rightmost display that shows the panel when hovered.
package edge

import (
	"log/slog"

	"github.com/jmylchreest/chatpanel/internal/geometry"
)

// DefaultWidth is the strip width in pixels.
const DefaultWidth = 5

// Surface is the toolkit window backing the strip.
type Surface interface {
	Place(d geometry.Display, r geometry.Rect)
	Raise()
	Close()
}

// Rightmost returns the display with the largest right edge.
type Rightmost interface {
	Rightmost() (geometry.Display, error)
}

// Target is the controller surface the trigger drives.
type Target interface {
	Visible() bool
	Show()
}

// Trigger owns the reveal strip.
type Trigger struct {
	surface  Surface
	displays Rightmost
	target   Target
	width    int
	logger   *slog.Logger

	rect   geometry.Rect
	placed bool
}

// NewTrigger creates a trigger. width <= 0 uses DefaultWidth.
func NewTrigger(surface Surface, displays Rightmost, target Target, width int, logger *slog.Logger) *Trigger {
	if width <= 0 {
		width = DefaultWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		surface:  surface,
		displays: displays,
		target:   target,
		width:    width,
		logger:   logger,
	}
}

// Rect returns the strip rectangle from the last placement.
func (t *Trigger) Rect() geometry.Rect {
	return t.rect
}

// SetWidth changes the strip width and re-places it.
func (t *Trigger) SetWidth(width int) {
	if width <= 0 {
		width = DefaultWidth
	}
	t.width = width
	t.Place()
}

// Place docks the strip to the right edge of the rightmost display and
// raises it. Call again whenever the display layout changes.
func (t *Trigger) Place() {
	d, err := t.displays.Rightmost()
	if err != nil {
		t.logger.Warn("cannot place edge trigger", "error", err)
		return
	}
	g := d.Geometry
	w := min(t.width, g.Width)
	t.rect = geometry.Rect{X: g.Right() - w, Y: g.Y, Width: w, Height: g.Height}
	t.placed = true

	t.logger.Debug("edge trigger placed", "display", d.ID, "rect", t.rect.String())
	t.surface.Place(d, t.rect)
	t.surface.Raise()
}

// Entered handles the pointer entering the strip.
func (t *Trigger) Entered() {
	if t.target.Visible() {
		return
	}
	t.logger.Debug("edge trigger entered, showing panel")
	t.target.Show()
}

// Pressed handles a pointer button press on the strip. The pointer may
// already rest inside the strip when the panel hides, in which case no
// enter follows and a click is the only way back.
func (t *Trigger) Pressed() {
	if t.target.Visible() {
		return
	}
	t.logger.Debug("edge trigger pressed, showing panel")
	t.target.Show()
}

// VisibilityChanged re-raises the strip when the panel hides, since other
// windows may have been stacked over it meanwhile.
func (t *Trigger) VisibilityChanged(visible bool) {
	if visible {
		return
	}
	if !t.placed {
		t.Place()
		return
	}
	t.surface.Raise()
}

// Close destroys the strip.
func (t *Trigger) Close() {
	t.surface.Close()
	t.placed = false
}
