package hotkey

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		in          string
		str         string
		accelerator string
		portal      string
		keysym      uint32
	}{
		{"Ctrl+Shift+F", "Ctrl+Shift+F", "<Control><Shift>f", "CTRL+SHIFT+f", 0x66},
		{"shift+ctrl+f", "Ctrl+Shift+F", "<Control><Shift>f", "CTRL+SHIFT+f", 0x66},
		{"Super+space", "Super+Space", "<Super>space", "LOGO+space", 0x20},
		{"Alt+F12", "Alt+F12", "<Alt>F12", "ALT+F12", 0xffc9},
		{"control+1", "Ctrl+1", "<Control>1", "CTRL+1", 0x31},
		{" Ctrl + Return ", "Ctrl+Return", "<Control>Return", "CTRL+Return", 0xff0d},
		{"Ctrl++", "Ctrl++", "<Control>plus", "CTRL+plus", 0x2b},
		{"Mod4+grave", "Super+`", "<Super>grave", "LOGO+grave", 0x60},
		{"<Control><Shift>f", "Ctrl+Shift+F", "<Control><Shift>f", "CTRL+SHIFT+f", 0x66},
		{"<Primary>Page_Up", "Ctrl+Page_Up", "<Control>Page_Up", "CTRL+Page_Up", 0xff55},
		{"<Super>plus", "Super++", "<Super>plus", "LOGO+plus", 0x2b},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseChord(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.str, c.String())
			assert.Equal(t, tt.accelerator, c.Accelerator())
			assert.Equal(t, tt.portal, c.PortalTrigger())
			assert.Equal(t, tt.keysym, c.Keysym())
			assert.False(t, c.IsZero())
		})
	}
}

func TestParseChord_Errors(t *testing.T) {
	for _, in := range []string{"", "F", "Ctrl+", "Hyper+F", "Ctrl+Shift+Nope", "Ctrl+F25", "Ctrl+f1x", "<Control>", "<Control", "<Hyper>f", "f<Control>"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseChord(in)
			assert.Error(t, err)
		})
	}
}

func TestMustParseChord(t *testing.T) {
	assert.NotPanics(t, func() { MustParseChord("Ctrl+Shift+F") })
	assert.Panics(t, func() { MustParseChord("nonsense") })
}

func TestX11Mask(t *testing.T) {
	c := MustParseChord("Ctrl+Shift+Alt+Super+F")
	assert.Equal(t, uint16(xproto.ModMaskControl|xproto.ModMaskShift|xproto.ModMask1|xproto.ModMask4), X11Mask(c.Mods))
	assert.Equal(t, uint16(0), X11Mask(0))
}

type fakeBinder struct {
	name   string
	err    error
	bound  bool
	closed bool
}

func (b *fakeBinder) Name() string { return b.name }

func (b *fakeBinder) Bind(context.Context, Chord, func()) error {
	if b.err != nil {
		return b.err
	}
	b.bound = true
	return nil
}

func (b *fakeBinder) Close() error {
	b.closed = true
	return nil
}

func TestBindFirst(t *testing.T) {
	chord := MustParseChord("Ctrl+Shift+F")
	x := &fakeBinder{name: "x11", err: errors.New("no display")}
	portal := &fakeBinder{name: "portal"}
	window := &fakeBinder{name: "window"}

	got, err := BindFirst(context.Background(), chord, func() {}, nil, nil, x, portal, window)

	require.NoError(t, err)
	assert.Same(t, portal, got)
	assert.True(t, x.closed, "failed binder is closed")
	assert.False(t, window.bound)
}

func TestBindFirst_AllFail(t *testing.T) {
	chord := MustParseChord("Ctrl+Shift+F")
	a := &fakeBinder{name: "a", err: errors.New("boom")}

	_, err := BindFirst(context.Background(), chord, func() {}, nil, a)

	assert.ErrorIs(t, err, ErrNoBackend)
	assert.ErrorContains(t, err, "a: boom")
}

func TestX11Binder_NoConnection(t *testing.T) {
	b := NewX11Binder(nil, nil)
	err := b.Bind(context.Background(), MustParseChord("Ctrl+F"), func() {})
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}

func TestHandleX11Event(t *testing.T) {
	b := NewX11Binder(nil, nil)
	calls := 0
	b.key = 41
	b.mask = X11Mask(MustParseChord("Ctrl+Shift+F").Mods)
	b.fn = func() { calls++ }

	b.handle(xproto.KeyPressEvent{Detail: 41, State: b.mask})
	b.handle(xproto.KeyPressEvent{Detail: 41, State: b.mask | xproto.ModMaskLock | xproto.ModMask2})
	b.handle(xproto.KeyPressEvent{Detail: 41, State: xproto.ModMaskControl})
	b.handle(xproto.KeyPressEvent{Detail: 42, State: b.mask})
	b.handle(xproto.KeyReleaseEvent{Detail: 41, State: b.mask})

	assert.Equal(t, 2, calls)
}

func TestParseResponse(t *testing.T) {
	req := dbus.ObjectPath("/org/freedesktop/portal/desktop/request/1_42/chatpanel_x")
	ok := &dbus.Signal{
		Path: req,
		Name: requestIface + ".Response",
		Body: []interface{}{uint32(0), map[string]dbus.Variant{
			"session_handle": dbus.MakeVariant("/org/freedesktop/portal/desktop/session/1_42/chatpanel_x"),
		}},
	}

	results, matched, err := parseResponse(ok, req)
	require.True(t, matched)
	require.NoError(t, err)
	session, err := sessionHandle(results)
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1_42/chatpanel_x"), session)

	_, matched, _ = parseResponse(ok, "/other")
	assert.False(t, matched)

	denied := &dbus.Signal{Path: req, Name: requestIface + ".Response", Body: []interface{}{uint32(1), map[string]dbus.Variant{}}}
	_, matched, err = parseResponse(denied, req)
	assert.True(t, matched)
	assert.ErrorIs(t, err, ErrPortalDenied)

	_, err = sessionHandle(map[string]dbus.Variant{})
	assert.Error(t, err)
}

func TestAwaitResponse(t *testing.T) {
	req := dbus.ObjectPath("/req/1")
	ch := make(chan *dbus.Signal, 3)
	ch <- &dbus.Signal{Path: "/req/0", Name: requestIface + ".Response", Body: []interface{}{uint32(0), map[string]dbus.Variant{}}}
	ch <- &dbus.Signal{Path: req, Name: requestIface + ".Response", Body: []interface{}{uint32(0), map[string]dbus.Variant{"k": dbus.MakeVariant("v")}}}

	results, err := awaitResponse(context.Background(), ch, req)
	require.NoError(t, err)
	assert.Contains(t, results, "k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = awaitResponse(ctx, ch, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsActivation(t *testing.T) {
	session := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1_42/t")
	sig := &dbus.Signal{
		Name: shortcutsIface + ".Activated",
		Body: []interface{}{session, toggleShortcut, uint64(12345), map[string]dbus.Variant{}},
	}

	assert.True(t, isActivation(sig, session, toggleShortcut))
	assert.False(t, isActivation(sig, "/other", toggleShortcut))
	assert.False(t, isActivation(sig, session, "other"))
	assert.False(t, isActivation(&dbus.Signal{Name: shortcutsIface + ".Deactivated", Body: sig.Body}, session, toggleShortcut))
}

func TestHandleToken(t *testing.T) {
	tok := handleToken()
	assert.Regexp(t, `^chatpanel_[0-9a-z]+$`, tok)
	assert.NotEqual(t, tok, handleToken())
}

func TestX11Binder_IgnoresAutoRepeat(t *testing.T) {
	var fired int
	b := NewX11Binder(nil, nil)
	b.key = 41
	b.mask = xproto.ModMaskControl | xproto.ModMaskShift
	b.fn = func() { fired++ }

	press := func(ts xproto.Timestamp) {
		b.handle(xproto.KeyPressEvent{Detail: 41, State: b.mask | xproto.ModMaskLock, Time: ts})
	}
	release := func(ts xproto.Timestamp) {
		b.handle(xproto.KeyReleaseEvent{Detail: 41, State: b.mask, Time: ts})
	}

	press(1000)
	assert.Equal(t, 1, fired)

	// Held: the server repeats with release/press pairs at one timestamp.
	release(1500)
	press(1500)
	release(1530)
	press(1530)
	assert.Equal(t, 1, fired)

	// A real release followed by a later press toggles again.
	release(1600)
	press(2400)
	assert.Equal(t, 2, fired)

	// Repeated presses without releases in between are ignored too.
	press(2450)
	assert.Equal(t, 2, fired)

	// Other keys do not clear the held state.
	release(2500)
	b.handle(xproto.KeyReleaseEvent{Detail: 42, Time: 2600})
	b.handle(xproto.KeyPressEvent{Detail: 42, State: b.mask, Time: 2700})
	assert.Equal(t, 2, fired)
	press(2800)
	assert.Equal(t, 3, fired)
}
