package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/chatpanel/internal/hotkey"
)

func TestCallbackArg(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   string
		wantOK bool
	}{
		{"no args", nil, "", false},
		{"callback", []string{"chatpanel://auth?code=abc"}, "chatpanel://auth?code=abc", true},
		{"scheme is case insensitive", []string{"ChatPanel://done"}, "ChatPanel://done", true},
		{"callback after other args", []string{"--", "chatpanel:/x"}, "chatpanel:/x", true},
		{"https is not a callback", []string{"https://claude.ai/"}, "", false},
		{"plain word", []string{"show"}, "", false},
		{"other scheme", []string{"other://x"}, "", false},
		{"unparseable", []string{"chatpanel://%zz"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := callbackArg(tt.args, "chatpanel")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackArg_EmptyScheme(t *testing.T) {
	_, ok := callbackArg([]string{"chatpanel://x"}, "")
	assert.False(t, ok)
}

func TestBinderOrder(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wayland bool
		x11     bool
		want    []string
	}{
		{"auto on X11", hotkey.BackendAuto, false, true, []string{hotkey.BackendX11, hotkey.BackendWindow}},
		{"auto on Wayland", hotkey.BackendAuto, true, true, []string{hotkey.BackendPortal, hotkey.BackendWindow}},
		{"auto without X server", hotkey.BackendAuto, false, false, []string{hotkey.BackendWindow}},
		{"explicit portal", hotkey.BackendPortal, false, true, []string{hotkey.BackendPortal}},
		{"explicit x11", hotkey.BackendX11, true, false, []string{hotkey.BackendX11}},
		{"window only", hotkey.BackendWindow, true, true, []string{hotkey.BackendWindow}},
		{"none", hotkey.BackendNone, false, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, binderOrder(tt.backend, tt.wayland, tt.x11))
		})
	}
}
