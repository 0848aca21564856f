package dbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	// DBusInterface is the control interface name.
	DBusInterface = "io.github.jmylchreest.ChatPanel"
	// DBusPath is the control object path.
	DBusPath = "/io/github/jmylchreest/ChatPanel"
	// DBusBusName is the bus name claimed by the running instance.
	DBusBusName = "io.github.jmylchreest.ChatPanel"

	errorPrefix = DBusInterface + ".Error."
)

var (
	// ErrAlreadyRunning is returned by Server.Start when another process
	// owns the bus name.
	ErrAlreadyRunning = errors.New("chatpanel is already running")
	// ErrNotRunning is returned by Client calls when no instance owns the bus name.
	ErrNotRunning = errors.New("chatpanel is not running")
)

// Status is the snapshot returned by the Status method.
type Status struct {
	Visible  bool      `json:"visible" yaml:"visible"`
	Width    int       `json:"width" yaml:"width"`
	Display  string    `json:"display,omitempty" yaml:"display,omitempty"`
	Popups   int       `json:"popups" yaml:"popups"`
	Resizing bool      `json:"resizing" yaml:"resizing"`
	ShownAt  time.Time `json:"shown_at,omitzero" yaml:"shown_at,omitempty"`
}

// values flattens a Status into the Status method's out arguments.
func (s Status) values() (bool, int32, string, int32, bool, int64) {
	var shown int64
	if !s.ShownAt.IsZero() {
		shown = s.ShownAt.Unix()
	}
	return s.Visible, int32(s.Width), s.Display, int32(s.Popups), s.Resizing, shown
}

// statusFromBody decodes a Status reply body.
func statusFromBody(body []any) (Status, error) {
	var st Status
	if len(body) != 6 {
		return st, fmt.Errorf("unexpected Status reply: %d values", len(body))
	}

	var (
		width, popups int32
		shown         int64
		ok            bool
	)
	if st.Visible, ok = body[0].(bool); !ok {
		return st, fmt.Errorf("unexpected Status reply: visible is %T", body[0])
	}
	if width, ok = body[1].(int32); !ok {
		return st, fmt.Errorf("unexpected Status reply: width is %T", body[1])
	}
	if st.Display, ok = body[2].(string); !ok {
		return st, fmt.Errorf("unexpected Status reply: display is %T", body[2])
	}
	if popups, ok = body[3].(int32); !ok {
		return st, fmt.Errorf("unexpected Status reply: popups is %T", body[3])
	}
	if st.Resizing, ok = body[4].(bool); !ok {
		return st, fmt.Errorf("unexpected Status reply: resizing is %T", body[4])
	}
	if shown, ok = body[5].(int64); !ok {
		return st, fmt.Errorf("unexpected Status reply: shown_at is %T", body[5])
	}

	st.Width = int(width)
	st.Popups = int(popups)
	if shown > 0 {
		st.ShownAt = time.Unix(shown, 0)
	}
	return st, nil
}

// methodError converts a Go error into a D-Bus error reply.
func methodError(name string, err error) *dbus.Error {
	return dbus.NewError(errorPrefix+name, []any{err.Error()})
}
