package panel

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/screen"
)

// GeometryError reports that the panel could not be placed because no
// display could be resolved.
type GeometryError struct {
	Policy screen.Policy
	Err    error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("resolve display for policy %q: %v", e.Policy, e.Err)
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// State is a snapshot of the panel state.
type State struct {
	Visible         bool
	ActiveDisplay   *geometry.Display
	CurrentWidth    int
	LastManualWidth int // 0 until the user has resized
	Resizing        bool
	HasActivePopup  bool
	Bounds          geometry.Rect
	Strategy        string
	ShownAt         time.Time // zero while hidden
	HidePending     bool
}

// Controller is the sole owner of the panel state. It is not safe for
// concurrent use; every call must come from the UI thread.
type Controller struct {
	window  Window
	locator Locator
	sched   Scheduler
	cursor  Cursor
	popups  Popups
	policy  Policy
	logger  *slog.Logger
	now     func() time.Time

	visible         bool
	active          *geometry.Display
	currentWidth    int
	lastManualWidth int
	resizing        bool
	bounds          geometry.Rect
	shownAt         time.Time

	strategy    AutoHider
	cancelHide  func()
	cancelFocus func()

	visibilityListeners []func(visible bool)
	widthListeners      []func(width int)
}

// Option configures a Controller.
type Option func(*Controller)

// WithCursor supplies a global cursor source for the cursor dock policy.
func WithCursor(c Cursor) Option {
	return func(ctl *Controller) { ctl.cursor = c }
}

// WithPopups supplies the popup tracker consulted before auto-hiding.
func WithPopups(p Popups) Option {
	return func(ctl *Controller) { ctl.popups = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// WithLastManualWidth seeds the remembered manual width (from persisted state).
func WithLastManualWidth(w int) Option {
	return func(ctl *Controller) {
		if w > 0 {
			ctl.lastManualWidth = w
		}
	}
}

// WithClock overrides the wall clock used for ShownAt.
func WithClock(now func() time.Time) Option {
	return func(ctl *Controller) { ctl.now = now }
}

// NewController creates a hidden panel controller.
func NewController(w Window, l Locator, s Scheduler, policy Policy, opts ...Option) *Controller {
	c := &Controller{
		window:  w,
		locator: l,
		sched:   s,
		policy:  policy,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetStrategy installs the active auto-hide strategy. The controller only
// suspends and resumes it; starting and stopping is the caller's job.
func (c *Controller) SetStrategy(s AutoHider) {
	c.strategy = s
	if s != nil && c.popupsActive() {
		s.Suspend()
	}
}

// OnVisibilityChanged registers fn to run after every show and hide.
func (c *Controller) OnVisibilityChanged(fn func(visible bool)) {
	c.visibilityListeners = append(c.visibilityListeners, fn)
}

// OnWidthCommitted registers fn to run when a drag-resize commits a width.
func (c *Controller) OnWidthCommitted(fn func(width int)) {
	c.widthListeners = append(c.widthListeners, fn)
}

// SetPolicy replaces the sizing rules. A visible panel is re-clamped and
// re-docked immediately.
func (c *Controller) SetPolicy(p Policy) {
	c.policy = p
	if c.visible {
		c.Reposition()
	}
}

// Policy returns the current sizing rules.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Visible reports whether the panel is shown.
func (c *Controller) Visible() bool {
	return c.visible
}

// Resizing reports whether a drag-resize is in progress.
func (c *Controller) Resizing() bool {
	return c.resizing
}

// Bounds returns the panel rectangle in global coordinates. It is only
// meaningful while the panel is visible.
func (c *Controller) Bounds() geometry.Rect {
	return c.bounds
}

// CurrentWidth returns the panel's current width.
func (c *Controller) CurrentWidth() int {
	return c.currentWidth
}

// State returns a snapshot of the panel state.
func (c *Controller) State() State {
	st := State{
		Visible:         c.visible,
		CurrentWidth:    c.currentWidth,
		LastManualWidth: c.lastManualWidth,
		Resizing:        c.resizing,
		HasActivePopup:  c.popupsActive(),
		Bounds:          c.bounds,
		ShownAt:         c.shownAt,
		HidePending:     c.cancelHide != nil,
	}
	if c.active != nil {
		d := *c.active
		st.ActiveDisplay = &d
	}
	if c.strategy != nil {
		st.Strategy = c.strategy.Name()
	}
	return st
}

// Show docks the panel on the display chosen by the dock policy. Showing a
// visible panel does nothing. If no display can be resolved the panel stays
// hidden and the failure is logged.
func (c *Controller) Show() {
	if c.visible {
		return
	}
	c.cancelPendingHide()

	display, err := c.resolveDisplay()
	if err != nil {
		c.logger.Warn("cannot show panel", "error", err)
		return
	}

	rect := geometry.Dock(display, c.showWidth(display))
	c.active = &display
	c.currentWidth = rect.Width
	c.bounds = rect
	c.visible = true
	c.shownAt = c.now()

	c.logger.Debug("showing panel", "display", display.ID, "bounds", rect.String())

	c.window.SetGeometry(display, rect)
	c.window.Present()
	if !c.visible {
		// Hidden again from inside Present.
		return
	}

	// The window manager may adjust placement after mapping.
	c.sched.Defer(c.Reposition)
	c.scheduleFocus()
	c.emitVisibility(true)
}

// Hide hides the panel unconditionally. Explicit hides (hotkey, close
// button, D-Bus) ignore the auto-hide suppression flags.
func (c *Controller) Hide() {
	c.cancelPendingHide()
	if !c.visible {
		return
	}
	c.visible = false
	c.shownAt = time.Time{}
	c.cancelFocusTimer()

	c.logger.Debug("hiding panel")

	c.window.Hide()
	c.emitVisibility(false)
}

// AutoHide hides the panel unless a resize is in progress or an auth popup
// is open. It reports whether the panel was hidden.
func (c *Controller) AutoHide(reason string) bool {
	if !c.visible {
		return false
	}
	if c.resizing {
		c.logger.Debug("auto-hide suppressed", "reason", reason, "cause", "resizing")
		return false
	}
	if c.popupsActive() {
		c.logger.Debug("auto-hide suppressed", "reason", reason, "cause", "popup open")
		return false
	}
	c.logger.Debug("auto-hiding panel", "reason", reason)
	c.Hide()
	return true
}

// Toggle hides a visible panel and shows a hidden one.
func (c *Controller) Toggle() {
	if c.visible {
		c.Hide()
		return
	}
	c.Show()
}

// HotkeyPressed handles the global toggle chord.
func (c *Controller) HotkeyPressed() {
	c.logger.Debug("hotkey pressed", "visible", c.visible)
	c.Toggle()
}

// ResizingStarted suppresses auto-hide until ResizingFinished.
func (c *Controller) ResizingStarted() {
	c.resizing = true
	c.cancelPendingHide()
}

// ResizingFinished ends a drag-resize and commits the current width as the
// width to restore on the next show.
func (c *Controller) ResizingFinished() {
	if !c.resizing {
		return
	}
	c.resizing = false
	if c.currentWidth <= 0 {
		return
	}
	c.lastManualWidth = c.currentWidth
	c.logger.Debug("manual width committed", "width", c.lastManualWidth)
	for _, fn := range c.widthListeners {
		fn(c.lastManualWidth)
	}
}

// ResizingCancelled aborts a drag-resize, restoring width without
// committing it as the manual width.
func (c *Controller) ResizingCancelled(width int) {
	if !c.resizing {
		return
	}
	c.resizing = false
	c.SetWidth(width)
	c.logger.Debug("resize cancelled", "width", c.currentWidth)
}

// SetWidth applies a new width, bounded to the active display's manual
// range, and re-docks a visible panel.
func (c *Controller) SetWidth(width int) {
	if c.active == nil {
		return
	}
	display := c.refreshActive()
	width = c.clamp(width, display)
	c.currentWidth = width
	if !c.visible {
		return
	}
	c.place(display, width)
}

// CurrentDisplayWidth returns the width of the active display, else the
// primary display, else 0.
func (c *Controller) CurrentDisplayWidth() int {
	if c.active != nil {
		return c.refreshActive().Width()
	}
	d, err := c.locator.Primary()
	if err != nil {
		return 0
	}
	return d.Width()
}

// Reposition re-reads the active display, re-clamps the width and re-docks
// the panel. If the display is gone the dock policy picks a new one.
func (c *Controller) Reposition() {
	if !c.visible || c.active == nil {
		return
	}
	display, ok := c.locator.ByID(c.active.ID)
	if !ok {
		c.logger.Info("active display disappeared, re-resolving", "display", c.active.ID)
		var err error
		display, err = c.resolveDisplay()
		if err != nil {
			c.logger.Warn("cannot reposition panel", "error", err)
			return
		}
	}
	c.active = &display
	c.currentWidth = c.clamp(c.currentWidth, display)
	c.place(display, c.currentWidth)
}

// RequestDelayedHide schedules an auto-hide after delay. verify, if not nil,
// is re-checked when the timer fires and must return true for the hide to
// proceed. A new request replaces any pending one.
func (c *Controller) RequestDelayedHide(delay time.Duration, verify func() bool) {
	c.cancelPendingHide()
	c.cancelHide = c.sched.After(delay, func() {
		c.cancelHide = nil
		if verify != nil && !verify() {
			return
		}
		c.AutoHide("delayed")
	})
}

// PopupsChanged implements popup.Listener. Auto-hide stays suspended while
// popups are open; when the last one closes the panel takes focus back.
func (c *Controller) PopupsChanged(active bool) {
	if active {
		c.cancelPendingHide()
		if c.strategy != nil {
			c.strategy.Suspend()
		}
		return
	}
	if c.strategy != nil {
		c.strategy.Resume()
	}
	if c.visible {
		c.window.Activate()
	}
}

// Close cancels pending timers. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.cancelPendingHide()
	c.cancelFocusTimer()
}

func (c *Controller) showWidth(display geometry.Display) int {
	switch {
	case c.resizing && c.currentWidth > 0:
		return c.clamp(c.currentWidth, display)
	case c.lastManualWidth > 0:
		return c.clamp(c.lastManualWidth, display)
	default:
		return c.clamp(geometry.FractionWidth(display.Width(), c.policy.DefaultFraction), display)
	}
}

func (c *Controller) place(display geometry.Display, width int) {
	rect := geometry.Dock(display, width)
	c.bounds = rect
	c.window.SetGeometry(display, rect)
}

// clamp bounds width to the display's manual range, further capped by its
// available width so the stored width always matches the docked rectangle.
func (c *Controller) clamp(width int, display geometry.Display) int {
	width = geometry.ClampWidth(width, display.Width(), c.policy.MinFraction, c.policy.MaxFraction)
	if avail := display.Available; !avail.Empty() && width > avail.Width {
		width = avail.Width
	}
	return width
}

// refreshActive returns a fresh snapshot of the active display, or the last
// known one if it can no longer be found.
func (c *Controller) refreshActive() geometry.Display {
	if d, ok := c.locator.ByID(c.active.ID); ok {
		c.active = &d
		return d
	}
	return *c.active
}

func (c *Controller) resolveDisplay() (geometry.Display, error) {
	var cursor *geometry.Point
	if c.policy.Dock == screen.PolicyCursor && c.cursor != nil {
		if p, err := c.cursor.Position(); err == nil {
			cursor = &p
		} else {
			c.logger.Debug("cursor position unavailable", "error", err)
		}
	}
	d, err := c.locator.Resolve(c.policy.Dock, cursor)
	if err != nil {
		return geometry.Display{}, &GeometryError{Policy: c.policy.Dock, Err: err}
	}
	return d, nil
}

func (c *Controller) scheduleFocus() {
	c.cancelFocusTimer()
	if c.policy.FocusDelay <= 0 {
		return
	}
	c.cancelFocus = c.sched.After(c.policy.FocusDelay, func() {
		c.cancelFocus = nil
		if c.visible {
			c.window.Activate()
		}
	})
}

func (c *Controller) cancelPendingHide() {
	if c.cancelHide != nil {
		c.cancelHide()
		c.cancelHide = nil
	}
}

func (c *Controller) cancelFocusTimer() {
	if c.cancelFocus != nil {
		c.cancelFocus()
		c.cancelFocus = nil
	}
}

func (c *Controller) popupsActive() bool {
	return c.popups != nil && c.popups.Active()
}

func (c *Controller) emitVisibility(visible bool) {
	for _, fn := range c.visibilityListeners {
		fn(visible)
	}
}
