package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Client calls the control interface of a running instance.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClientOn(conn), nil
}

// NewClientOn creates a Client on an existing connection.
func NewClientOn(conn *dbus.Conn) *Client {
	return &Client{
		conn: conn,
		obj:  conn.Object(DBusBusName, DBusPath),
	}
}

// Show asks the running instance to show the panel.
func (c *Client) Show(ctx context.Context) error {
	return c.invoke(ctx, "Show")
}

// Hide asks the running instance to hide the panel.
func (c *Client) Hide(ctx context.Context) error {
	return c.invoke(ctx, "Hide")
}

// Toggle asks the running instance to toggle the panel.
func (c *Client) Toggle(ctx context.Context) error {
	return c.invoke(ctx, "Toggle")
}

// Present asks the running instance to show and raise the panel.
func (c *Client) Present(ctx context.Context) error {
	return c.invoke(ctx, "Present")
}

// AuthCallback forwards a sign-in redirect URL.
func (c *Client) AuthCallback(ctx context.Context, url string) error {
	return c.invoke(ctx, "AuthCallback", url)
}

// Status fetches the panel state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	call := c.obj.CallWithContext(ctx, DBusInterface+".Status", 0)
	if call.Err != nil {
		return Status{}, translate(call.Err)
	}
	return statusFromBody(call.Body)
}

func (c *Client) invoke(ctx context.Context, method string, args ...any) error {
	call := c.obj.CallWithContext(ctx, DBusInterface+"."+method, 0, args...)
	if call.Err != nil {
		return translate(call.Err)
	}
	return nil
}

// translate maps the bus's "nobody owns this name" errors to ErrNotRunning.
func translate(err error) error {
	var derr dbus.Error
	if errors.As(err, &derr) {
		switch derr.Name {
		case "org.freedesktop.DBus.Error.ServiceUnknown", "org.freedesktop.DBus.Error.NameHasNoOwner":
			return ErrNotRunning
		}
		if len(derr.Body) > 0 {
			if msg, ok := derr.Body[0].(string); ok {
				return fmt.Errorf("%s: %s", derr.Name, msg)
			}
		}
	}
	var dperr *dbus.Error
	if errors.As(err, &dperr) {
		return translate(*dperr)
	}
	return err
}
