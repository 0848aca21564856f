package autohide

import (
	"log/slog"

	"github.com/jmylchreest/chatpanel/internal/geometry"
	"github.com/jmylchreest/chatpanel/internal/panel"
)

// PointerState is one sample of the global pointer.
type PointerState struct {
	Position geometry.Point
	Button1  bool // Primary button held
}

// Pointer samples the global pointer.
type Pointer interface {
	Query() (PointerState, error)
}

// Rightmost returns the display with the largest right edge.
// *screen.Locator implements it.
type Rightmost interface {
	Rightmost() (geometry.Display, error)
}

// Polling samples the cursor on a fixed period. A hidden panel is revealed
// when the cursor touches the right edge of the rightmost display; a visible
// panel hides after a primary-button press outside its bounds.
type Polling struct {
	target   Target
	pointer  Pointer
	displays Rightmost
	sched    panel.Scheduler
	opts     Options
	logger   *slog.Logger

	cancel     func()
	running    bool
	paused     bool
	wasPressed bool
	queryErr   bool
}

// NewPolling creates a cursor-polling strategy.
func NewPolling(target Target, pointer Pointer, displays Rightmost, sched panel.Scheduler, opts Options, logger *slog.Logger) *Polling {
	if logger == nil {
		logger = slog.Default()
	}
	return &Polling{
		target:   target,
		pointer:  pointer,
		displays: displays,
		sched:    sched,
		opts:     opts,
		logger:   logger,
	}
}

func (p *Polling) Name() string { return KindPoll }

func (p *Polling) PollsCursor() bool { return true }

// Start begins sampling.
func (p *Polling) Start() error {
	if p.running {
		return nil
	}
	p.running = true
	if !p.paused {
		p.arm()
	}
	p.logger.Debug("cursor polling started", "interval", p.opts.PollInterval, "edge_margin", p.opts.EdgeMargin)
	return nil
}

// Stop ends sampling.
func (p *Polling) Stop() {
	p.running = false
	p.disarm()
}

// Suspend stops sampling until Resume.
func (p *Polling) Suspend() {
	if p.paused {
		return
	}
	p.paused = true
	p.disarm()
}

// Resume restarts sampling after Suspend.
func (p *Polling) Resume() {
	if !p.paused {
		return
	}
	p.paused = false
	// A button held across the suspension is not a fresh press.
	p.wasPressed = true
	if p.running {
		p.arm()
	}
}

func (p *Polling) arm() {
	p.disarm()
	p.cancel = p.sched.Every(p.opts.PollInterval, p.tick)
}

func (p *Polling) disarm() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Polling) tick() {
	st, err := p.pointer.Query()
	if err != nil {
		if !p.queryErr {
			p.logger.Warn("cursor query failed", "error", err)
			p.queryErr = true
		}
		return
	}
	p.queryErr = false

	pressed := st.Button1 && !p.wasPressed
	p.wasPressed = st.Button1

	if !p.target.Visible() {
		if p.atEdge(st.Position) {
			p.logger.Debug("cursor at screen edge, showing panel", "x", st.Position.X, "y", st.Position.Y)
			p.target.Show()
		}
		return
	}

	if !pressed || p.target.Resizing() {
		return
	}
	if p.target.Bounds().Contains(st.Position) {
		return
	}
	p.target.RequestDelayedHide(p.opts.HideDelay, p.stillOutside)
}

// stillOutside re-samples the pointer when a delayed hide fires.
func (p *Polling) stillOutside() bool {
	st, err := p.pointer.Query()
	if err != nil {
		return false
	}
	return !p.target.Bounds().Contains(st.Position)
}

func (p *Polling) atEdge(pt geometry.Point) bool {
	d, err := p.displays.Rightmost()
	if err != nil {
		return false
	}
	g := d.Geometry
	if pt.Y < g.Y || pt.Y >= g.Bottom() {
		return false
	}
	return pt.X >= g.Right()-p.opts.EdgeMargin
}
