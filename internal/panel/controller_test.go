package panel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/panel/paneltest"
	"github.com/jmylchreest/chatpanel/internal/screen"
)

type fixture struct {
	ctl      *Controller
	window   *paneltest.Window
	sched    *paneltest.Scheduler
	displays *paneltest.Displays
	popups   *paneltest.Popups
	cursor   *paneltest.Cursor
}

func newFixture(t *testing.T, displays ...geometry.Display) *fixture {
	t.Helper()
	f := &fixture{
		window:   &paneltest.Window{},
		sched:    paneltest.NewScheduler(),
		displays: &paneltest.Displays{List: displays},
		popups:   &paneltest.Popups{},
		cursor:   &paneltest.Cursor{},
	}
	locator := screen.NewLocator(f.displays, geometry.Insets{}, nil)
	f.ctl = NewController(f.window, locator, f.sched, DefaultPolicy(),
		WithPopups(f.popups),
		WithCursor(f.cursor),
	)
	return f
}

type fakeStrategy struct {
	suspended int
	resumed   int
}

func (s *fakeStrategy) Name() string { return "fake" }
func (s *fakeStrategy) Suspend()     { s.suspended++ }
func (s *fakeStrategy) Resume()      { s.resumed++ }

func TestController_BasicToggle(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))

	f.ctl.Toggle()

	require.True(t, f.ctl.Visible())
	assert.Equal(t, geometry.Rect{X: 864, Y: 0, Width: 1056, Height: 1080}, f.ctl.Bounds())
	assert.Equal(t, f.ctl.Bounds(), f.window.Rect)
	assert.True(t, f.window.Mapped)

	f.ctl.Toggle()

	assert.False(t, f.ctl.Visible())
	assert.False(t, f.window.Mapped)
}

func TestController_ShowIsIdempotent(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	var events []bool
	f.ctl.OnVisibilityChanged(func(v bool) { events = append(events, v) })

	f.ctl.Show()
	state := f.ctl.State()
	f.ctl.Show()

	assert.Equal(t, 1, f.window.Presents)
	assert.Equal(t, state, f.ctl.State())
	assert.Equal(t, []bool{true}, events)
}

func TestController_HideWhenHiddenIsNoop(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))

	f.ctl.Hide()

	assert.Equal(t, 0, f.window.Hides)
	assert.False(t, f.ctl.Visible())
}

func TestController_ShowUsesRightmostDisplay(t *testing.T) {
	f := newFixture(t,
		paneltest.Display("DP-1", 0, 0, 2560, 1440),
		paneltest.Display("HDMI-1", 2560, 0, 1920, 1080),
	)

	f.ctl.Show()

	st := f.ctl.State()
	require.NotNil(t, st.ActiveDisplay)
	assert.Equal(t, "HDMI-1", st.ActiveDisplay.ID)
	assert.Equal(t, 4480, f.ctl.Bounds().Right())
	assert.Equal(t, 1056, f.ctl.Bounds().Width)
}

func TestController_CursorPolicy(t *testing.T) {
	f := newFixture(t,
		paneltest.Display("left", 0, 0, 1920, 1080),
		paneltest.Display("right", 1920, 0, 1920, 1080),
	)
	p := DefaultPolicy()
	p.Dock = screen.PolicyCursor
	f.ctl.SetPolicy(p)
	f.cursor.Point = geometry.Point{X: 10, Y: 10}

	f.ctl.Show()
	assert.Equal(t, "left", f.window.Display.ID)

	f.ctl.Hide()
	f.cursor.Err = errors.New("no pointer")
	f.ctl.Show()
	assert.Equal(t, "right", f.window.Display.ID)
}

func TestController_ShowWithoutDisplayStaysHidden(t *testing.T) {
	f := newFixture(t)
	var events []bool
	f.ctl.OnVisibilityChanged(func(v bool) { events = append(events, v) })

	f.ctl.Show()

	assert.False(t, f.ctl.Visible())
	assert.Equal(t, 0, f.window.Presents)
	assert.Empty(t, events)
	assert.Equal(t, 0, f.sched.Pending())
}

func TestController_GeometryError(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctl.resolveDisplay()

	var geoErr *GeometryError
	require.ErrorAs(t, err, &geoErr)
	assert.ErrorIs(t, err, screen.ErrNoDisplay)
	assert.Equal(t, screen.PolicyRightmost, geoErr.Policy)
}

func TestController_ManualWidthPersistsAcrossHide(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	var committed []int
	f.ctl.OnWidthCommitted(func(w int) { committed = append(committed, w) })
	r := NewResizer(f.ctl)

	f.ctl.Show()
	r.Begin(864)
	r.Update(864 + 256)
	r.End()

	assert.Equal(t, 800, f.ctl.CurrentWidth())
	assert.Equal(t, []int{800}, committed)

	f.ctl.Hide()
	f.ctl.Show()

	assert.Equal(t, 800, f.ctl.Bounds().Width)
	assert.Equal(t, 1120, f.ctl.Bounds().X)
}

func TestController_ManualWidthReclampedOnSmallerDisplay(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	r := NewResizer(f.ctl)

	f.ctl.Show()
	r.Begin(864)
	r.Update(864 - 144)
	r.End()
	require.Equal(t, 1200, f.ctl.State().LastManualWidth)
	f.ctl.Hide()

	f.displays.List = []geometry.Display{paneltest.Display("DP-2", 0, 0, 1024, 768)}
	f.ctl.Show()

	assert.Equal(t, 819, f.ctl.Bounds().Width)
	assert.Equal(t, 1024-819, f.ctl.Bounds().X)
}

func TestController_SeededManualWidth(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl = NewController(f.window, screen.NewLocator(f.displays, geometry.Insets{}, nil), f.sched, DefaultPolicy(),
		WithLastManualWidth(700))

	f.ctl.Show()

	assert.Equal(t, 700, f.ctl.Bounds().Width)
}

func TestController_ResizeClampsToBounds(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	r := NewResizer(f.ctl)
	f.ctl.Show()

	r.Begin(864)
	r.Update(-5000)
	assert.Equal(t, 1536, f.ctl.CurrentWidth())

	r.Update(5000)
	assert.Equal(t, 384, f.ctl.CurrentWidth())
	r.End()

	assert.True(t, f.ctl.Bounds().Width >= 384 && f.ctl.Bounds().Width <= 1536)
}

func TestController_ResizeWithoutDisplayIsNoop(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	r := NewResizer(f.ctl)

	r.Begin(100)
	r.Update(50)
	r.End()

	assert.False(t, r.Dragging())
	assert.False(t, f.ctl.Resizing())
	assert.Equal(t, 0, f.ctl.CurrentWidth())
	assert.Equal(t, 0, f.window.Placed)
}

func TestController_ResizeCancelRestoresWidth(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	r := NewResizer(f.ctl)
	f.ctl.Show()

	r.Begin(864)
	r.Update(700)
	r.Cancel()

	assert.Equal(t, 1056, f.ctl.CurrentWidth())
	assert.False(t, f.ctl.Resizing())
	assert.Equal(t, 0, f.ctl.State().LastManualWidth)
}

func TestController_ResizingCancelledIgnoredWhenIdle(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()
	placed := f.window.Placed

	f.ctl.ResizingCancelled(400)

	assert.Equal(t, 1056, f.ctl.CurrentWidth())
	assert.Equal(t, placed, f.window.Placed)
}

func TestController_ShownAtClearedOnHide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl = NewController(f.window, screen.NewLocator(f.displays, geometry.Insets{}, nil), f.sched, DefaultPolicy(),
		WithClock(func() time.Time { return now }),
	)

	f.ctl.Show()
	assert.Equal(t, now, f.ctl.State().ShownAt)

	f.ctl.Hide()
	st := f.ctl.State()
	assert.False(t, st.Visible)
	assert.True(t, st.ShownAt.IsZero())
}

func TestController_WidthCappedByReservedSpace(t *testing.T) {
	f := newFixture(t)
	locator := screen.NewLocator(&paneltest.Displays{List: []geometry.Display{
		paneltest.Display("DP-1", 0, 0, 1000, 800),
	}}, geometry.Insets{Right: 300}, nil)
	f.ctl = NewController(f.window, locator, f.sched, DefaultPolicy())
	r := NewResizer(f.ctl)
	f.ctl.Show()

	r.Begin(150)
	r.Update(-5000)
	r.End()

	st := f.ctl.State()
	assert.Equal(t, 700, st.Bounds.Width)
	assert.Equal(t, 700, st.CurrentWidth)
	assert.Equal(t, 700, st.LastManualWidth)
	assert.Equal(t, 700, f.window.Rect.Width)

	f.ctl.Reposition()
	assert.Equal(t, 700, f.ctl.CurrentWidth())
}

func TestController_AutoHideSuppressedWhileResizing(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	f.ctl.ResizingStarted()
	assert.False(t, f.ctl.AutoHide("focus lost"))
	assert.True(t, f.ctl.Visible())

	f.ctl.ResizingFinished()
	assert.True(t, f.ctl.AutoHide("focus lost"))
	assert.False(t, f.ctl.Visible())
}

func TestController_AutoHideSuppressedByPopup(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	f.popups.Open = 1
	assert.False(t, f.ctl.AutoHide("click outside"))
	assert.True(t, f.ctl.Visible())
	assert.True(t, f.ctl.State().HasActivePopup)

	f.popups.Open = 0
	assert.True(t, f.ctl.AutoHide("click outside"))
}

func TestController_ExplicitHideIgnoresSuppression(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()
	f.ctl.ResizingStarted()
	f.popups.Open = 2

	f.ctl.HotkeyPressed()

	assert.False(t, f.ctl.Visible())
}

func TestController_DeferredReposition(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()
	require.Equal(t, 864, f.ctl.Bounds().X)

	// A bar appears before the deferred pass runs.
	d := paneltest.Display("DP-1", 0, 0, 1920, 1080)
	d.Available = geometry.Rect{X: 0, Y: 32, Width: 1920, Height: 1048}
	f.displays.List = []geometry.Display{d}

	f.sched.Flush()

	assert.Equal(t, geometry.Rect{X: 864, Y: 32, Width: 1056, Height: 1048}, f.ctl.Bounds())
	assert.Equal(t, f.ctl.Bounds(), f.window.Rect)
}

func TestController_RepositionWhenDisplayRemoved(t *testing.T) {
	f := newFixture(t,
		paneltest.Display("DP-1", 0, 0, 1920, 1080),
		paneltest.Display("DP-2", 1920, 0, 1280, 1024),
	)
	f.ctl.Show()
	require.Equal(t, "DP-2", f.ctl.State().ActiveDisplay.ID)
	require.Equal(t, 704, f.ctl.CurrentWidth())

	f.displays.List = f.displays.List[:1]
	f.ctl.Reposition()

	st := f.ctl.State()
	assert.Equal(t, "DP-1", st.ActiveDisplay.ID)
	assert.Equal(t, 704, st.CurrentWidth)
	assert.Equal(t, 1920, f.ctl.Bounds().Right())
}

func TestController_RepositionReclampsWidth(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	f.displays.List = []geometry.Display{paneltest.Display("DP-1", 0, 0, 1280, 720)}
	f.ctl.Reposition()

	assert.Equal(t, 1024, f.ctl.CurrentWidth())
	assert.Equal(t, geometry.Rect{X: 256, Y: 0, Width: 1024, Height: 720}, f.ctl.Bounds())
}

func TestController_RepositionWhenHiddenIsNoop(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))

	f.ctl.Reposition()

	assert.Equal(t, 0, f.window.Placed)
}

func TestController_DelayedHide(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	f.ctl.RequestDelayedHide(100*time.Millisecond, nil)
	assert.True(t, f.ctl.State().HidePending)

	f.sched.Advance(99 * time.Millisecond)
	assert.True(t, f.ctl.Visible())

	f.sched.Advance(time.Millisecond)
	assert.False(t, f.ctl.Visible())
	assert.False(t, f.ctl.State().HidePending)
}

func TestController_DelayedHideCancelledByResize(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	f.ctl.RequestDelayedHide(100*time.Millisecond, nil)
	f.ctl.ResizingStarted()
	f.sched.Advance(time.Second)
	f.ctl.ResizingFinished()

	assert.True(t, f.ctl.Visible())
}

func TestController_DelayedHideCancelledByPopup(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	f.ctl.RequestDelayedHide(100*time.Millisecond, nil)
	f.ctl.PopupsChanged(true)
	f.sched.Advance(time.Second)

	assert.True(t, f.ctl.Visible())
}

func TestController_DelayedHideVerification(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	stillOutside := false
	f.ctl.RequestDelayedHide(100*time.Millisecond, func() bool { return stillOutside })
	f.sched.Advance(100 * time.Millisecond)
	assert.True(t, f.ctl.Visible(), "verification failed, panel stays")

	stillOutside = true
	f.ctl.RequestDelayedHide(100*time.Millisecond, func() bool { return stillOutside })
	f.sched.Advance(100 * time.Millisecond)
	assert.False(t, f.ctl.Visible())
}

func TestController_DelayedHideReplaced(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	calls := 0
	f.ctl.RequestDelayedHide(100*time.Millisecond, func() bool { calls++; return false })
	f.ctl.RequestDelayedHide(100*time.Millisecond, func() bool { calls++; return false })
	f.sched.Advance(time.Second)

	assert.Equal(t, 1, calls)
}

func TestController_FocusReassertedAfterShow(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))

	f.ctl.Show()
	f.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, f.window.Activates)

	f.ctl.Hide()
	f.ctl.Show()
	f.ctl.Hide()
	f.sched.Advance(time.Second)
	assert.Equal(t, 1, f.window.Activates, "no focus request for a hidden panel")
}

func TestController_PopupsChanged(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	s := &fakeStrategy{}
	f.ctl.SetStrategy(s)
	f.ctl.Show()
	f.sched.Advance(time.Second)
	activates := f.window.Activates

	f.ctl.PopupsChanged(true)
	assert.Equal(t, 1, s.suspended)

	f.ctl.PopupsChanged(false)
	assert.Equal(t, 1, s.resumed)
	assert.Equal(t, activates+1, f.window.Activates)

	f.ctl.Hide()
	f.ctl.PopupsChanged(false)
	assert.Equal(t, activates+1, f.window.Activates, "hidden panel is not refocused")
}

func TestController_SetStrategySuspendsWhenPopupsOpen(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.popups.Open = 1
	s := &fakeStrategy{}

	f.ctl.SetStrategy(s)

	assert.Equal(t, 1, s.suspended)
	assert.Equal(t, "fake", f.ctl.State().Strategy)
}

func TestController_ReentrantHideDuringPresent(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	var events []bool
	f.ctl.OnVisibilityChanged(func(v bool) { events = append(events, v) })
	f.window.OnPresent = func() { f.ctl.Hide() }

	f.ctl.Show()

	assert.False(t, f.ctl.Visible())
	assert.False(t, f.window.Mapped)
	assert.Equal(t, []bool{false}, events)
}

func TestController_CurrentDisplayWidth(t *testing.T) {
	primary := paneltest.Display("A", 0, 0, 1280, 720)
	primary.Primary = true
	f := newFixture(t, primary, paneltest.Display("B", 1280, 0, 2560, 1440))

	assert.Equal(t, 1280, f.ctl.CurrentDisplayWidth(), "primary before any show")

	f.ctl.Show()
	assert.Equal(t, 2560, f.ctl.CurrentDisplayWidth())

	empty := newFixture(t)
	assert.Equal(t, 0, empty.ctl.CurrentDisplayWidth())
}

func TestController_SetPolicyReclampsVisiblePanel(t *testing.T) {
	f := newFixture(t, paneltest.Display("DP-1", 0, 0, 1920, 1080))
	f.ctl.Show()

	p := DefaultPolicy()
	p.MaxFraction = 0.5
	f.ctl.SetPolicy(p)

	assert.Equal(t, 960, f.ctl.CurrentWidth())
	assert.Equal(t, 960, f.window.Rect.Width)
}

func TestController_BoundsContainedInDisplay(t *testing.T) {
	displays := []geometry.Display{
		paneltest.Display("small", 0, 0, 800, 600),
		paneltest.Display("odd", -1366, 200, 1366, 768),
		paneltest.Display("wide", 0, 0, 5120, 1440),
	}
	for _, d := range displays {
		t.Run(d.ID, func(t *testing.T) {
			f := newFixture(t, d)
			f.ctl.Show()
			b := f.ctl.Bounds()
			assert.True(t, d.Available.ContainsRect(b), "bounds %s in %s", b, d.Available)
			assert.Equal(t, d.Available.Right(), b.Right())
		})
	}
}
