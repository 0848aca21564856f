package x11

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb/xproto"

	"github.com/jmylchreest/chatpanel/internal/geometry"
)

// ErrWindowNotFound is returned when no top-level window has the requested name.
var ErrWindowNotFound = errors.New("window not found")

// FindWindow looks for a client window named name among the root's children
// and, for reparenting window managers, their children. It returns the
// top-level window (the frame when reparented) and the client itself.
func (c *Conn) FindWindow(name string) (top, client xproto.Window, err error) {
	tree, err := xproto.QueryTree(c.conn, c.root).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("query tree: %w", err)
	}
	for _, w := range tree.Children {
		if c.windowName(w) == name {
			return w, w, nil
		}
		sub, err := xproto.QueryTree(c.conn, w).Reply()
		if err != nil {
			continue
		}
		for _, cw := range sub.Children {
			if c.windowName(cw) == name {
				return w, cw, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrWindowNotFound, name)
}

func (c *Conn) windowName(w xproto.Window) string {
	reply, err := xproto.GetProperty(c.conn, false, w, xproto.AtomWmName,
		xproto.GetPropertyTypeAny, 0, 256).Reply()
	if err != nil || reply.Format != 8 {
		return ""
	}
	return string(reply.Value)
}

// Place moves and resizes the window named name to r (root coordinates).
// X11 has no layer-shell, so this is how the panel and the edge strip are
// positioned there.
func (c *Conn) Place(name string, r geometry.Rect) error {
	top, client, err := c.FindWindow(name)
	if err != nil {
		return err
	}

	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)
	values := []uint32{uint32(int32(r.X)), uint32(int32(r.Y)), uint32(r.Width), uint32(r.Height)}
	if err := xproto.ConfigureWindowChecked(c.conn, top, mask, values).Check(); err != nil {
		return fmt.Errorf("configure window: %w", err)
	}
	if client != top {
		sizeMask := uint16(xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)
		if err := xproto.ConfigureWindowChecked(c.conn, client, sizeMask, values[2:]).Check(); err != nil {
			return fmt.Errorf("configure client window: %w", err)
		}
	}
	return nil
}

// Raise restacks the window named name above its siblings.
func (c *Conn) Raise(name string) error {
	top, _, err := c.FindWindow(name)
	if err != nil {
		return err
	}
	return xproto.ConfigureWindowChecked(c.conn, top, xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove}).Check()
}
