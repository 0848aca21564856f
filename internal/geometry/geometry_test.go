package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDisplay(x, y, w, h int, reserved Insets) Display {
	geo := Rect{X: x, Y: y, Width: w, Height: h}
	return Display{ID: "test", Geometry: geo, Available: geo.Inset(reserved)}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 100, Height: 50}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"top-left corner", Point{10, 20}, true},
		{"inside", Point{50, 40}, true},
		{"right edge is exclusive", Point{110, 40}, false},
		{"bottom edge is exclusive", Point{50, 70}, false},
		{"left of rect", Point{9, 40}, false},
		{"above rect", Point{50, 19}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.p))
		})
	}
}

func TestRect_Inset(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

	assert.Equal(t, Rect{X: 0, Y: 32, Width: 1920, Height: 1048}, r.Inset(Insets{Top: 32}))
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 1920, Height: 1040}, r.Inset(Insets{Bottom: 40}))
	assert.Equal(t, Rect{X: 48, Y: 0, Width: 1872, Height: 1080}, r.Inset(Insets{Left: 48}))

	collapsed := r.Inset(Insets{Left: 1000, Right: 1000})
	assert.Equal(t, 0, collapsed.Width)
	assert.True(t, collapsed.Empty())
}

func TestDock_RightAligned(t *testing.T) {
	d := testDisplay(0, 0, 1920, 1080, Insets{Bottom: 40})

	rect := Dock(d, 1056)

	assert.Equal(t, Rect{X: 864, Y: 0, Width: 1056, Height: 1040}, rect)
	assert.Equal(t, d.Available.Right(), rect.Right())
	assert.True(t, d.Available.ContainsRect(rect))
}

func TestDock_SecondaryDisplayOffset(t *testing.T) {
	d := testDisplay(1920, -200, 2560, 1440, Insets{Top: 30})

	rect := Dock(d, 800)

	assert.Equal(t, 1920+2560-800, rect.X)
	assert.Equal(t, -170, rect.Y)
	assert.Equal(t, 1410, rect.Height)
}

func TestDock_WidthBoundedByAvailableArea(t *testing.T) {
	// A vertical taskbar leaves less room than the requested width.
	d := testDisplay(0, 0, 1000, 800, Insets{Right: 300})

	rect := Dock(d, 800)

	assert.Equal(t, 700, rect.Width)
	assert.Equal(t, 0, rect.X)
	assert.True(t, d.Available.ContainsRect(rect))
}

func TestDock_EmptyAvailableFallsBackToGeometry(t *testing.T) {
	d := Display{Geometry: Rect{Width: 1280, Height: 720}}

	rect := Dock(d, 400)

	assert.Equal(t, Rect{X: 880, Y: 0, Width: 400, Height: 720}, rect)
}

func TestClampWidth(t *testing.T) {
	tests := []struct {
		name         string
		width        int
		displayWidth int
		want         int
	}{
		{"within range", 800, 1920, 800},
		{"below minimum", 100, 1920, 384},
		{"above maximum", 1800, 1920, 1536},
		{"re-clamp onto smaller display", 1200, 1024, 819},
		{"minimum rounds up", 0, 1366, 274},
		{"maximum rounds down", 5000, 1366, 1092},
		{"minimum exact", 0, 1000, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampWidth(tt.width, tt.displayWidth, 0.2, 0.8))
		})
	}
}

func TestClampWidth_AlwaysWithinBounds(t *testing.T) {
	for _, w := range []int{640, 1023, 1024, 1366, 1921, 1920, 2560, 3840} {
		lo, hi := WidthBounds(w, 0.2, 0.8)
		for delta := -5000; delta <= 5000; delta += 37 {
			got := ClampWidth(w/2-delta, w, 0.2, 0.8)
			assert.GreaterOrEqual(t, got, lo)
			assert.LessOrEqual(t, got, hi)
			assert.GreaterOrEqual(t, float64(got), float64(w)*0.2)
			assert.LessOrEqual(t, float64(got), float64(w)*0.8)
		}
	}
}

func TestFractionWidth(t *testing.T) {
	assert.Equal(t, 1056, FractionWidth(1920, 0.55))
	assert.Equal(t, 1152, FractionWidth(1920, 0.6))
	assert.Equal(t, 563, FractionWidth(1024, 0.55))
}

func TestCentered(t *testing.T) {
	d := Display{
		Geometry:  Rect{X: 1920, Y: 0, Width: 2560, Height: 1440},
		Available: Rect{X: 1920, Y: 40, Width: 2560, Height: 1400},
	}

	r := Centered(d, 0.7)
	assert.Equal(t, Rect{X: 1920 + 384, Y: 40 + 210, Width: 1792, Height: 980}, r)
	assert.True(t, d.Available.ContainsRect(r))

	noAvail := Display{Geometry: Rect{Width: 1000, Height: 500}}
	assert.Equal(t, Rect{X: 150, Y: 75, Width: 700, Height: 350}, Centered(noAvail, 0.7))
}

func TestEdgeMargins(t *testing.T) {
	d := Display{
		Geometry:  Rect{X: 1920, Y: 0, Width: 1920, Height: 1080},
		Available: Rect{X: 1920, Y: 30, Width: 1920, Height: 1050},
	}
	r := Dock(d, 1056)

	m := EdgeMargins(d, r)
	assert.Equal(t, Insets{Top: 30, Bottom: 0, Left: 864, Right: 0}, m)
}
