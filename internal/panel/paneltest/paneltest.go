// Package paneltest provides deterministic fakes of the panel collaborators
// for use in tests.
package paneltest

import (
	"sort"
	"time"

	"github.com/jmylchreest/chatpanel/internal/geometry"
)

type task struct {
	at        time.Duration
	seq       int
	every     time.Duration
	fn        func()
	cancelled bool
}

// Scheduler is a manual-clock scheduler. Nothing runs until Advance or
// Flush is called.
type Scheduler struct {
	now   time.Duration
	seq   int
	tasks []*task
}

// NewScheduler creates a scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the elapsed virtual time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Defer queues fn for the next Flush.
func (s *Scheduler) Defer(fn func()) {
	s.add(0, 0, fn)
}

// After queues fn to run once d from now.
func (s *Scheduler) After(d time.Duration, fn func()) func() {
	t := s.add(d, 0, fn)
	return func() { t.cancelled = true }
}

// Every queues fn to run every d.
func (s *Scheduler) Every(d time.Duration, fn func()) func() {
	if d <= 0 {
		d = time.Millisecond
	}
	t := s.add(d, d, fn)
	return func() { t.cancelled = true }
}

// Pending returns the number of queued, uncancelled tasks.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Flush runs every task due now, including tasks they queue for now.
func (s *Scheduler) Flush() {
	s.Advance(0)
}

// Advance moves the clock forward by d, running due tasks in time order.
func (s *Scheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		t := s.next(target)
		if t == nil {
			break
		}
		s.now = t.at
		if t.every > 0 {
			t.at += t.every
			t.seq = s.nextSeq()
			s.tasks = append(s.tasks, t)
		}
		t.fn()
	}
	s.now = target
}

func (s *Scheduler) next(target time.Duration) *task {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	s.tasks = live
	if len(s.tasks) == 0 {
		return nil
	}
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].at != s.tasks[j].at {
			return s.tasks[i].at < s.tasks[j].at
		}
		return s.tasks[i].seq < s.tasks[j].seq
	})
	t := s.tasks[0]
	if t.at > target {
		return nil
	}
	s.tasks = s.tasks[1:]
	return t
}

func (s *Scheduler) add(d, every time.Duration, fn func()) *task {
	t := &task{at: s.now + d, seq: s.nextSeq(), every: every, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *Scheduler) nextSeq() int {
	s.seq++
	return s.seq
}

// Window records the calls the controller makes on the host window.
type Window struct {
	Display   geometry.Display
	Rect      geometry.Rect
	Mapped    bool
	Presents  int
	Hides     int
	Activates int
	Placed    int

	// OnPresent, if set, runs inside Present.
	OnPresent func()
}

// SetGeometry records the placement.
func (w *Window) SetGeometry(d geometry.Display, r geometry.Rect) {
	w.Display = d
	w.Rect = r
	w.Placed++
}

// Present maps the window.
func (w *Window) Present() {
	w.Mapped = true
	w.Presents++
	if w.OnPresent != nil {
		w.OnPresent()
	}
}

// Hide unmaps the window.
func (w *Window) Hide() {
	w.Mapped = false
	w.Hides++
}

// Activate records a focus request.
func (w *Window) Activate() {
	w.Activates++
}

// Displays is a mutable display list implementing screen.Source.
type Displays struct {
	List []geometry.Display
}

// Displays returns a copy of the list.
func (d *Displays) Displays() []geometry.Display {
	out := make([]geometry.Display, len(d.List))
	copy(out, d.List)
	return out
}

// Display builds a display whose available area equals its geometry.
func Display(id string, x, y, w, h int) geometry.Display {
	r := geometry.Rect{X: x, Y: y, Width: w, Height: h}
	return geometry.Display{ID: id, Geometry: r, Available: r}
}

// Cursor is a settable cursor position.
type Cursor struct {
	Point geometry.Point
	Err   error
}

// Position returns the configured point.
func (c *Cursor) Position() (geometry.Point, error) {
	return c.Point, c.Err
}

// Popups is a settable popup state.
type Popups struct {
	Open int
}

// Active reports whether any popup is open.
func (p *Popups) Active() bool {
	return p.Open > 0
}

// Len returns the open popup count.
func (p *Popups) Len() int {
	return p.Open
}
