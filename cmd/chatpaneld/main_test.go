package main

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatpanel/internal/dbus"
	"github.com/jmylchreest/chatpanel/internal/dbus/dbustest"
)

type recordingHandler struct {
	mu    sync.Mutex
	calls []string
}

func (h *recordingHandler) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *recordingHandler) Show()    { h.record("show") }
func (h *recordingHandler) Hide()    { h.record("hide") }
func (h *recordingHandler) Toggle()  { h.record("toggle") }
func (h *recordingHandler) Present() { h.record("present") }
func (h *recordingHandler) Status() dbus.Status {
	h.record("status")
	return dbus.Status{}
}
func (h *recordingHandler) AuthCallback(url string) error {
	h.record("auth " + url)
	return nil
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func useBus(t *testing.T, addr string) {
	t.Helper()
	prev := newClient
	newClient = func() (*dbus.Client, error) {
		return dbus.NewClientOn(dbustest.Connect(t, addr)), nil
	}
	t.Cleanup(func() { newClient = prev })
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForwardCallback_DeliversToRunningInstance(t *testing.T) {
	addr := dbustest.StartBus(t)
	useBus(t, addr)

	running := &recordingHandler{}
	server := dbus.NewServer(running, nil, discardLogger())
	require.NoError(t, server.StartOn(dbustest.Connect(t, addr)))
	t.Cleanup(func() { _ = server.Stop() })

	// A second launch cannot claim the name.
	second := dbus.NewServer(&recordingHandler{}, nil, discardLogger())
	require.ErrorIs(t, second.StartOn(dbustest.Connect(t, addr)), dbus.ErrAlreadyRunning)

	code := forwardCallback("chatpanel://auth?code=abc", discardLogger())

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"auth chatpanel://auth?code=abc", "present"}, running.snapshot())
}

func TestForwardCallback_NoInstance(t *testing.T) {
	addr := dbustest.StartBus(t)
	useBus(t, addr)

	assert.Equal(t, 1, forwardCallback("chatpanel://auth", discardLogger()))
}
