package panel

// Resizer turns a horizontal drag on the panel's left-edge handle into width
// changes. The panel is right-docked, so dragging left widens it.
type Resizer struct {
	ctl        *Controller
	dragging   bool
	startX     int
	startWidth int
}

// NewResizer creates a resizer driving ctl.
func NewResizer(ctl *Controller) *Resizer {
	return &Resizer{ctl: ctl}
}

// Dragging reports whether a drag is in progress.
func (r *Resizer) Dragging() bool {
	return r.dragging
}

// Begin starts a drag at global x. Without an active display the drag is
// ignored.
func (r *Resizer) Begin(x int) {
	if r.ctl.active == nil {
		return
	}
	r.dragging = true
	r.startX = x
	r.startWidth = r.ctl.currentWidth
	r.ctl.ResizingStarted()
}

// Update moves the drag to global x.
func (r *Resizer) Update(x int) {
	if !r.dragging || r.ctl.active == nil {
		return
	}
	width := r.startWidth - (x - r.startX)
	width = r.ctl.clamp(width, r.ctl.refreshActive())
	if width == r.ctl.currentWidth {
		return
	}
	r.ctl.SetWidth(width)
}

// End finishes the drag and commits the width.
func (r *Resizer) End() {
	if !r.dragging {
		return
	}
	r.dragging = false
	r.ctl.ResizingFinished()
}

// Cancel aborts the drag, restoring the width it started from.
func (r *Resizer) Cancel() {
	if !r.dragging {
		return
	}
	r.dragging = false
	r.ctl.ResizingCancelled(r.startWidth)
}
