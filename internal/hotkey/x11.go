package hotkey

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/jmylchreest/chatpanel/internal/x11"
)

// Lock modifiers that must not stop the grab from matching.
var ignoredMasks = []uint16{
	0,
	xproto.ModMaskLock,
	xproto.ModMask2,
	xproto.ModMaskLock | xproto.ModMask2,
}

const relevantMask = xproto.ModMaskShift | xproto.ModMaskControl | xproto.ModMask1 | xproto.ModMask4

// X11Mask converts chord modifiers to an X modifier mask.
func X11Mask(m Modifier) uint16 {
	var mask uint16
	if m&ModCtrl != 0 {
		mask |= xproto.ModMaskControl
	}
	if m&ModShift != 0 {
		mask |= xproto.ModMaskShift
	}
	if m&ModAlt != 0 {
		mask |= xproto.ModMask1
	}
	if m&ModSuper != 0 {
		mask |= xproto.ModMask4
	}
	return mask
}

// X11Binder grabs the chord on the X root window.
type X11Binder struct {
	conn   *x11.Conn
	logger *slog.Logger

	mu      sync.Mutex
	key     xproto.Keycode
	mask    uint16
	grabbed []uint16
	fn      func()

	// Auto-repeat delivers release/press pairs sharing a timestamp while
	// the chord is held.
	held       bool
	releasedAt xproto.Timestamp
}

// NewX11Binder creates a binder on conn. A nil conn makes Bind fail.
func NewX11Binder(conn *x11.Conn, logger *slog.Logger) *X11Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Binder{conn: conn, logger: logger}
}

func (b *X11Binder) Name() string { return BackendX11 }

// Bind grabs the chord, including its Caps Lock and Num Lock variants.
func (b *X11Binder) Bind(_ context.Context, chord Chord, fn func()) error {
	if b.conn == nil {
		return errors.New("no X11 connection")
	}
	key, err := b.conn.Keycode(chord.Keysym())
	if err != nil {
		return err
	}
	mask := X11Mask(chord.Mods)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.key = key
	for _, extra := range ignoredMasks {
		if err := b.conn.GrabKey(key, mask|extra); err != nil {
			b.ungrabLocked()
			return err
		}
		b.grabbed = append(b.grabbed, mask|extra)
	}
	b.mask = mask
	b.fn = fn
	b.conn.OnEvent(b.handle)
	return nil
}

func (b *X11Binder) handle(ev xgb.Event) {
	b.mu.Lock()
	var fn func()
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		if b.fn == nil || e.Detail != b.key || e.State&relevantMask != b.mask {
			break
		}
		repeat := b.held || (b.releasedAt != 0 && e.Time == b.releasedAt)
		b.held = true
		if !repeat {
			fn = b.fn
		}
	case xproto.KeyReleaseEvent:
		if e.Detail == b.key {
			b.held = false
			b.releasedAt = e.Time
		}
	}
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close releases the grabs. The connection is left open.
func (b *X11Binder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ungrabLocked()
	b.fn = nil
	b.held = false
	return nil
}

func (b *X11Binder) ungrabLocked() {
	if b.conn == nil {
		return
	}
	for _, m := range b.grabbed {
		b.conn.UngrabKey(b.key, m)
	}
	b.grabbed = nil
}
