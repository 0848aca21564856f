package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notificationsIface = "org.freedesktop.Notifications"

	// AppName is the application name sent with desktop notifications.
	AppName = "chatpanel"
)

// DesktopNotification is a message for the desktop's notification daemon.
type DesktopNotification struct {
	Summary string
	Body    string
	Icon    string
	Urgency byte // 0 low, 1 normal, 2 critical
	// ExpireTimeout in milliseconds; -1 uses the server default.
	ExpireTimeout int32
}

// hints builds the a{sv} hints argument.
func (n DesktopNotification) hints() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(n.Urgency),
		"desktop-entry": dbus.MakeVariant("io.github.jmylchreest.ChatPanel"),
	}
}

// SendNotification posts n through org.freedesktop.Notifications and
// returns the server-assigned id.
func SendNotification(conn *dbus.Conn, n DesktopNotification) (uint32, error) {
	if conn == nil {
		return 0, fmt.Errorf("not connected to D-Bus")
	}

	obj := conn.Object(notificationsName, notificationsPath)
	call := obj.Call(notificationsIface+".Notify", 0,
		AppName,
		uint32(0),
		n.Icon,
		n.Summary,
		n.Body,
		[]string{},
		n.hints(),
		n.ExpireTimeout,
	)
	if call.Err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to read notification id: %w", err)
	}
	return id, nil
}
