package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/panel"
	"github.com/jmylchreest/chatpanel/internal/panel/paneltest"
	"github.com/jmylchreest/chatpanel/internal/screen"
)

type fakeSurface struct {
	display geometry.Display
	rect    geometry.Rect
	raises  int
	closed  bool
}

func (s *fakeSurface) Place(d geometry.Display, r geometry.Rect) {
	s.display = d
	s.rect = r
}

func (s *fakeSurface) Raise() { s.raises++ }
func (s *fakeSurface) Close() { s.closed = true }

func setup(t *testing.T, width int) (*Trigger, *fakeSurface, *panel.Controller, *paneltest.Displays) {
	t.Helper()
	displays := &paneltest.Displays{List: []geometry.Display{
		paneltest.Display("DP-1", 0, 0, 2560, 1440),
		paneltest.Display("DP-2", 2560, 360, 1920, 1080),
	}}
	locator := screen.NewLocator(displays, geometry.Insets{}, nil)
	ctl := panel.NewController(&paneltest.Window{}, locator, paneltest.NewScheduler(), panel.DefaultPolicy())
	surface := &fakeSurface{}
	tr := NewTrigger(surface, locator, ctl, width, nil)
	ctl.OnVisibilityChanged(tr.VisibilityChanged)
	return tr, surface, ctl, displays
}

func TestTrigger_Place(t *testing.T) {
	tr, surface, _, _ := setup(t, 0)

	tr.Place()

	assert.Equal(t, "DP-2", surface.display.ID)
	assert.Equal(t, geometry.Rect{X: 4475, Y: 360, Width: 5, Height: 1080}, surface.rect)
	assert.Equal(t, surface.rect, tr.Rect())
	assert.Equal(t, 1, surface.raises)
}

func TestTrigger_FollowsLayoutChanges(t *testing.T) {
	tr, surface, _, displays := setup(t, 3)
	tr.Place()

	displays.List = displays.List[:1]
	tr.Place()

	assert.Equal(t, "DP-1", surface.display.ID)
	assert.Equal(t, geometry.Rect{X: 2557, Y: 0, Width: 3, Height: 1440}, surface.rect)
}

func TestTrigger_EnteredShowsPanel(t *testing.T) {
	tr, _, ctl, _ := setup(t, 0)
	tr.Place()

	tr.Entered()
	require.True(t, ctl.Visible())

	// Entering again while visible changes nothing.
	tr.Entered()
	assert.True(t, ctl.Visible())
}

func TestTrigger_PressedShowsPanelWithPointerInside(t *testing.T) {
	tr, surface, ctl, _ := setup(t, 0)
	tr.Place()

	// The pointer rests in the strip while the panel is hidden by the
	// hotkey: no enter arrives, only the press.
	ctl.Show()
	require.True(t, ctl.Visible())
	ctl.Hide()
	require.False(t, ctl.Visible())
	assert.Equal(t, 2, surface.raises)

	tr.Pressed()
	assert.True(t, ctl.Visible())

	tr.Pressed()
	assert.True(t, ctl.Visible())
}

func TestTrigger_RaisedWhenPanelHides(t *testing.T) {
	tr, surface, ctl, _ := setup(t, 0)
	tr.Place()

	ctl.Show()
	assert.Equal(t, 1, surface.raises)

	ctl.Hide()
	assert.Equal(t, 2, surface.raises)
}

func TestTrigger_PlacedLazilyOnFirstHide(t *testing.T) {
	tr, surface, ctl, _ := setup(t, 0)

	ctl.Show()
	ctl.Hide()

	assert.Equal(t, "DP-2", surface.display.ID)
	assert.Equal(t, 1, surface.raises)

	tr.Close()
	assert.True(t, surface.closed)
}

func TestTrigger_NoDisplays(t *testing.T) {
	tr, surface, _, displays := setup(t, 0)
	displays.List = nil

	tr.Place()

	assert.Equal(t, 0, surface.raises)
	assert.True(t, tr.Rect().Empty())
}
