package dbus

import (
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	calls   []string
	status  Status
	authErr error
	lastURL string
}

func (h *fakeHandler) Show()    { h.calls = append(h.calls, "show") }
func (h *fakeHandler) Hide()    { h.calls = append(h.calls, "hide") }
func (h *fakeHandler) Toggle()  { h.calls = append(h.calls, "toggle") }
func (h *fakeHandler) Present() { h.calls = append(h.calls, "present") }
func (h *fakeHandler) Status() Status {
	h.calls = append(h.calls, "status")
	return h.status
}
func (h *fakeHandler) AuthCallback(url string) error {
	h.calls = append(h.calls, "auth")
	h.lastURL = url
	return h.authErr
}

func TestServer_MethodsDispatch(t *testing.T) {
	h := &fakeHandler{}
	dispatched := 0
	s := NewServer(h, func(fn func()) {
		dispatched++
		fn()
	}, nil)

	assert.Nil(t, s.Show())
	assert.Nil(t, s.Hide())
	assert.Nil(t, s.Toggle())
	assert.Nil(t, s.Present())
	assert.Nil(t, s.AuthCallback("chatpanel://auth?code=1"))

	assert.Equal(t, []string{"show", "hide", "toggle", "present", "auth"}, h.calls)
	assert.Equal(t, 5, dispatched)
	assert.Equal(t, "chatpanel://auth?code=1", h.lastURL)
}

func TestServer_AuthCallbackError(t *testing.T) {
	h := &fakeHandler{authErr: errors.New("unexpected scheme")}
	s := NewServer(h, nil, nil)

	derr := s.AuthCallback("https://example.com/")
	require.NotNil(t, derr)
	assert.Equal(t, DBusInterface+".Error.InvalidCallback", derr.Name)
	assert.Equal(t, []any{"unexpected scheme"}, derr.Body)
}

func TestServer_Status(t *testing.T) {
	shown := time.Unix(1700000000, 0)
	h := &fakeHandler{status: Status{
		Visible: true, Width: 1056, Display: "DP-2", Popups: 1, ShownAt: shown,
	}}
	s := NewServer(h, nil, nil)

	visible, width, display, popups, resizing, shownAt, derr := s.Status()
	require.Nil(t, derr)
	assert.True(t, visible)
	assert.Equal(t, int32(1056), width)
	assert.Equal(t, "DP-2", display)
	assert.Equal(t, int32(1), popups)
	assert.False(t, resizing)
	assert.Equal(t, int64(1700000000), shownAt)
}

func TestServer_TimesOutWhenUIThreadStalls(t *testing.T) {
	h := &fakeHandler{}
	// A dispatcher that never runs fn.
	s := NewServer(h, func(func()) {}, nil)
	s.SetCallTimeout(10 * time.Millisecond)

	derr := s.Toggle()
	require.NotNil(t, derr)
	assert.Equal(t, DBusInterface+".Error.Timeout", derr.Name)
	assert.Empty(t, h.calls)
}

func TestServer_EmitWithoutConnection(t *testing.T) {
	s := NewServer(&fakeHandler{}, nil, nil)
	assert.Error(t, s.EmitVisibilityChanged(true))
	assert.NoError(t, s.Stop())
}

func TestStatusFromBody(t *testing.T) {
	st, err := statusFromBody([]any{true, int32(800), "HDMI-1", int32(0), true, int64(1700000000)})
	require.NoError(t, err)
	assert.Equal(t, Status{
		Visible: true, Width: 800, Display: "HDMI-1", Resizing: true, ShownAt: time.Unix(1700000000, 0),
	}, st)

	st, err = statusFromBody([]any{false, int32(0), "", int32(2), false, int64(0)})
	require.NoError(t, err)
	assert.True(t, st.ShownAt.IsZero())
	assert.Equal(t, 2, st.Popups)

	_, err = statusFromBody([]any{true})
	assert.Error(t, err)
	_, err = statusFromBody([]any{"yes", int32(0), "", int32(0), false, int64(0)})
	assert.Error(t, err)
}

func TestStatusValuesRoundTrip(t *testing.T) {
	in := Status{Visible: true, Width: 600, Display: "eDP-1", Popups: 3, ShownAt: time.Unix(42, 0)}
	v, w, d, p, r, s := in.values()

	out, err := statusFromBody([]any{v, w, d, p, r, s})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTranslate(t *testing.T) {
	notRunning := dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown", Body: []any{"gone"}}
	assert.ErrorIs(t, translate(notRunning), ErrNotRunning)
	assert.ErrorIs(t, translate(&notRunning), ErrNotRunning)

	custom := dbus.Error{Name: DBusInterface + ".Error.InvalidCallback", Body: []any{"bad scheme"}}
	assert.EqualError(t, translate(custom), DBusInterface+".Error.InvalidCallback: bad scheme")

	plain := errors.New("boom")
	assert.Equal(t, plain, translate(plain))
}

func TestDesktopNotificationHints(t *testing.T) {
	h := DesktopNotification{Urgency: 2}.hints()
	assert.Equal(t, byte(2), h["urgency"].Value())
	assert.Equal(t, "io.github.jmylchreest.ChatPanel", h["desktop-entry"].Value())

	_, err := SendNotification(nil, DesktopNotification{})
	assert.Error(t, err)
}

func TestIntrospectionData(t *testing.T) {
	names := map[string]bool{}
	for _, m := range controlMethods() {
		names[m.Name] = true
	}
	for _, want := range []string{"Show", "Hide", "Toggle", "Present", "AuthCallback", "Status"} {
		assert.True(t, names[want], want)
	}
	require.Len(t, controlSignals(), 1)
	assert.Equal(t, "VisibilityChanged", controlSignals()[0].Name)
}
