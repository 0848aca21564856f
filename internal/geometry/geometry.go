// Package geometry holds the display and rectangle types shared by the panel
// components, and the docking math that places the panel on a display.
package geometry

import (
	"fmt"
	"math"
)

// Point is a position in the global (virtual desktop) coordinate space.
type Point struct {
	X int
	Y int
}

// Rect is an axis-aligned rectangle in global coordinates.
// It spans [X, X+Width) horizontally and [Y, Y+Height) vertically.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the first column to the right of the rectangle.
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the first row below the rectangle.
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// ContainsRect reports whether o lies entirely inside the rectangle.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Inset shrinks the rectangle by the given insets. Negative results collapse to zero size.
func (r Rect) Inset(in Insets) Rect {
	out := Rect{
		X:      r.X + in.Left,
		Y:      r.Y + in.Top,
		Width:  r.Width - in.Left - in.Right,
		Height: r.Height - in.Top - in.Bottom,
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Insets describes space reserved along each edge of a display (taskbars, bars, docks).
type Insets struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// Display is a read-only snapshot of one physical monitor.
// Snapshots must not be cached across show events; displays change at runtime.
type Display struct {
	ID        string // Connector name or index, stable while the monitor is plugged in
	Name      string // Human-readable model/description
	Geometry  Rect   // Full monitor area
	Available Rect   // Geometry minus reserved chrome
	Primary   bool
}

// Width returns the full width of the display.
func (d Display) Width() int {
	return d.Geometry.Width
}

// Dock computes the panel rectangle docked to the right edge of the display's
// available geometry. The width is bounded by the available width so the
// result is always contained in d.Available.
func Dock(d Display, width int) Rect {
	avail := d.Available
	if avail.Empty() {
		avail = d.Geometry
	}
	if width > avail.Width {
		width = avail.Width
	}
	if width < 0 {
		width = 0
	}
	return Rect{
		X:      avail.X + avail.Width - width,
		Y:      avail.Y,
		Width:  width,
		Height: avail.Height,
	}
}

// WidthBounds returns the inclusive [min, max] manual width range for a
// display of the given width: the smallest integer at or above
// W*minFraction and the largest at or below W*maxFraction.
func WidthBounds(displayWidth int, minFraction, maxFraction float64) (int, int) {
	const eps = 1e-9
	lo := int(math.Ceil(float64(displayWidth)*minFraction - eps))
	hi := int(math.Floor(float64(displayWidth)*maxFraction + eps))
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// ClampWidth bounds width to the manual range of a display.
func ClampWidth(width, displayWidth int, minFraction, maxFraction float64) int {
	lo, hi := WidthBounds(displayWidth, minFraction, maxFraction)
	return max(lo, min(hi, width))
}

// FractionWidth returns round(displayWidth * fraction).
func FractionWidth(displayWidth int, fraction float64) int {
	return int(math.Round(float64(displayWidth) * fraction))
}

// Centered returns a rectangle of fraction of the display's available size,
// centered in it. Auth popups use 0.7 of the primary display.
func Centered(d Display, fraction float64) Rect {
	avail := d.Available
	if avail.Empty() {
		avail = d.Geometry
	}
	w := int(float64(avail.Width) * fraction)
	h := int(float64(avail.Height) * fraction)
	return Rect{
		X:      avail.X + (avail.Width-w)/2,
		Y:      avail.Y + (avail.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// EdgeMargins returns the distances from r to each edge of the display's
// full geometry. Surfaces anchored to monitor edges are positioned with these.
func EdgeMargins(d Display, r Rect) Insets {
	g := d.Geometry
	return Insets{
		Top:    r.Y - g.Y,
		Bottom: g.Bottom() - r.Bottom(),
		Left:   r.X - g.X,
		Right:  g.Right() - r.Right(),
	}
}
