package gtkshell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDragGlobalX(t *testing.T) {
	tests := []struct {
		name   string
		left   int
		start  float64
		offset float64
		want   int
	}{
		{"press at handle origin", 1000, 0, 0, 1000},
		{"press inside handle", 1000, 3, 0, 1003},
		{"drag left", 1000, 3, -120, 883},
		{"drag right", 1000, 3, 40.6, 1043},
		{"second display", 2920, 2, -10, 2912},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dragGlobalX(tt.left, tt.start, tt.offset))
		})
	}
}

func TestWayland(t *testing.T) {
	tests := []struct {
		name    string
		display string
		backend string
		want    bool
	}{
		{"wayland session", "wayland-0", "", true},
		{"forced x11 backend", "wayland-0", "x11", false},
		{"x11 session", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WAYLAND_DISPLAY", tt.display)
			t.Setenv("GDK_BACKEND", tt.backend)
			assert.Equal(t, tt.want, Wayland())
		})
	}
}
