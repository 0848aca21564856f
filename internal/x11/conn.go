// Package x11 gives the panel the global cursor and key grabs that only an
// X11 session can offer. Wayland sessions fall back to focus events, the
// edge trigger and the shortcuts portal instead.
package x11

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/jmylchreest/chatpanel/internal/autohide"
	"github.com/jmylchreest/chatpanel/internal/geometry"
)

// ErrNoKeycode is returned when a keysym is not on the current keyboard map.
var ErrNoKeycode = errors.New("keysym not mapped to any keycode")

// Available reports whether an X server is reachable from the environment.
// XWayland counts; its pointer is only seen over X11 windows, which is why
// the daemon prefers focus events when running under Wayland.
func Available() bool {
	return os.Getenv("DISPLAY") != ""
}

// Conn is a connection to the X server with the default screen's root.
type Conn struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	root   xproto.Window
	logger *slog.Logger

	mu       sync.Mutex
	handlers []func(xgb.Event)
	loop     bool
	closed   bool
}

// Open connects to display ("" uses $DISPLAY).
func Open(display string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	return &Conn{
		conn:   conn,
		setup:  setup,
		root:   screen.Root,
		logger: logger,
	}, nil
}

// Position returns the pointer position relative to the root window.
func (c *Conn) Position() (geometry.Point, error) {
	st, err := c.Query()
	return st.Position, err
}

// Query samples the pointer position and primary button state.
func (c *Conn) Query() (autohide.PointerState, error) {
	reply, err := xproto.QueryPointer(c.conn, c.root).Reply()
	if err != nil {
		return autohide.PointerState{}, fmt.Errorf("query pointer: %w", err)
	}
	return autohide.PointerState{
		Position: geometry.Point{X: int(reply.RootX), Y: int(reply.RootY)},
		Button1:  reply.Mask&xproto.KeyButMaskButton1 != 0,
	}, nil
}

// Keycode finds the first keycode producing keysym.
func (c *Conn) Keycode(keysym uint32) (xproto.Keycode, error) {
	first := c.setup.MinKeycode
	count := byte(c.setup.MaxKeycode - c.setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(c.conn, first, count).Reply()
	if err != nil {
		return 0, fmt.Errorf("get keyboard mapping: %w", err)
	}
	per := int(reply.KeysymsPerKeycode)
	for i := 0; i < int(count); i++ {
		for j := 0; j < per; j++ {
			idx := i*per + j
			if idx >= len(reply.Keysyms) {
				break
			}
			if uint32(reply.Keysyms[idx]) == keysym {
				return first + xproto.Keycode(i), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: 0x%x", ErrNoKeycode, keysym)
}

// GrabKey installs a passive grab on the root window.
func (c *Conn) GrabKey(key xproto.Keycode, mods uint16) error {
	err := xproto.GrabKeyChecked(c.conn, true, c.root, mods, key,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
	if err != nil {
		return fmt.Errorf("grab key %d mods 0x%x: %w", key, mods, err)
	}
	return nil
}

// UngrabKey releases a passive grab.
func (c *Conn) UngrabKey(key xproto.Keycode, mods uint16) {
	xproto.UngrabKey(c.conn, key, c.root, mods)
}

// OnEvent registers fn for every X event and starts the event loop on first
// use. fn runs on the event goroutine.
func (c *Conn) OnEvent(fn func(xgb.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, fn)
	if !c.loop {
		c.loop = true
		go c.run()
	}
}

func (c *Conn) run() {
	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			c.logger.Debug("X event loop ended")
			return
		}
		if xerr != nil {
			c.logger.Debug("X error", "error", xerr)
			continue
		}
		c.mu.Lock()
		handlers := c.handlers
		c.mu.Unlock()
		for _, fn := range handlers {
			fn(ev)
		}
	}
}

// Close closes the connection and ends the event loop.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn.Close()
}
