package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/oklog/ulid/v2"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	shortcutsIface  = "org.freedesktop.portal.GlobalShortcuts"
	requestIface    = "org.freedesktop.portal.Request"
	sessionIface    = "org.freedesktop.portal.Session"
	toggleShortcut  = "toggle-panel"
	responseSuccess = 0
)

// ErrPortalDenied is returned when the user or portal rejects a request.
var ErrPortalDenied = errors.New("portal request denied")

// shortcut is the (sa{sv}) element of BindShortcuts.
type shortcut struct {
	ID      string
	Options map[string]dbus.Variant
}

// PortalBinder binds the chord through org.freedesktop.portal.GlobalShortcuts.
// The compositor may present its own confirmation dialog and may assign a
// different trigger than the one preferred.
type PortalBinder struct {
	conn   *dbus.Conn
	logger *slog.Logger

	mu      sync.Mutex
	session dbus.ObjectPath
	signals chan *dbus.Signal
	done    chan struct{}
}

// NewPortalBinder creates a binder on the session bus connection conn.
func NewPortalBinder(conn *dbus.Conn, logger *slog.Logger) *PortalBinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortalBinder{conn: conn, logger: logger}
}

func (b *PortalBinder) Name() string { return BackendPortal }

// Bind creates a shortcuts session and binds the chord as its only shortcut.
func (b *PortalBinder) Bind(ctx context.Context, chord Chord, fn func()) error {
	if b.conn == nil {
		return errors.New("no session bus connection")
	}

	for _, opt := range []dbus.MatchOption{dbus.WithMatchInterface(requestIface), dbus.WithMatchInterface(shortcutsIface)} {
		if err := b.conn.AddMatchSignal(opt); err != nil {
			return fmt.Errorf("add match: %w", err)
		}
	}
	ch := make(chan *dbus.Signal, 16)
	b.conn.Signal(ch)

	obj := b.conn.Object(portalDest, portalPath)
	token := handleToken()

	var req dbus.ObjectPath
	err := obj.CallWithContext(ctx, shortcutsIface+".CreateSession", 0, map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(token),
		"session_handle_token": dbus.MakeVariant(token),
	}).Store(&req)
	if err != nil {
		b.conn.RemoveSignal(ch)
		return fmt.Errorf("create session: %w", err)
	}
	results, err := awaitResponse(ctx, ch, req)
	if err != nil {
		b.conn.RemoveSignal(ch)
		return fmt.Errorf("create session: %w", err)
	}
	session, err := sessionHandle(results)
	if err != nil {
		b.conn.RemoveSignal(ch)
		return err
	}

	shortcuts := []shortcut{{
		ID: toggleShortcut,
		Options: map[string]dbus.Variant{
			"description":       dbus.MakeVariant("Toggle the chat panel"),
			"preferred_trigger": dbus.MakeVariant(chord.PortalTrigger()),
		},
	}}
	err = obj.CallWithContext(ctx, shortcutsIface+".BindShortcuts", 0, session, shortcuts, "", map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(handleToken()),
	}).Store(&req)
	if err == nil {
		_, err = awaitResponse(ctx, ch, req)
	}
	if err != nil {
		b.conn.RemoveSignal(ch)
		b.closeSession(session)
		return fmt.Errorf("bind shortcuts: %w", err)
	}

	b.mu.Lock()
	b.session = session
	b.signals = ch
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go b.listen(ch, session, fn, done)

	b.logger.Debug("portal shortcut bound", "session", session, "trigger", chord.PortalTrigger())
	return nil
}

func (b *PortalBinder) listen(ch <-chan *dbus.Signal, session dbus.ObjectPath, fn func(), done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			if isActivation(sig, session, toggleShortcut) {
				fn()
			}
		}
	}
}

// Close ends the shortcuts session.
func (b *PortalBinder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		close(b.done)
		b.done = nil
	}
	if b.signals != nil {
		b.conn.RemoveSignal(b.signals)
		b.signals = nil
	}
	if b.session != "" {
		b.closeSession(b.session)
		b.session = ""
	}
	return nil
}

func (b *PortalBinder) closeSession(session dbus.ObjectPath) {
	if err := b.conn.Object(portalDest, session).Call(sessionIface+".Close", 0).Err; err != nil {
		b.logger.Debug("failed to close portal session", "error", err)
	}
}

// awaitResponse waits for the Request.Response signal of request path req.
func awaitResponse(ctx context.Context, ch <-chan *dbus.Signal, req dbus.ObjectPath) (map[string]dbus.Variant, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return nil, errors.New("signal channel closed")
			}
			results, matched, err := parseResponse(sig, req)
			if matched {
				return results, err
			}
		}
	}
}

// parseResponse decodes a Request.Response signal for req. matched is false
// for unrelated signals.
func parseResponse(sig *dbus.Signal, req dbus.ObjectPath) (map[string]dbus.Variant, bool, error) {
	if sig == nil || sig.Name != requestIface+".Response" || sig.Path != req {
		return nil, false, nil
	}
	if len(sig.Body) < 2 {
		return nil, true, fmt.Errorf("malformed portal response")
	}
	code, ok := sig.Body[0].(uint32)
	if !ok {
		return nil, true, fmt.Errorf("malformed portal response code")
	}
	if code != responseSuccess {
		return nil, true, fmt.Errorf("%w (response %d)", ErrPortalDenied, code)
	}
	results, _ := sig.Body[1].(map[string]dbus.Variant)
	return results, true, nil
}

func sessionHandle(results map[string]dbus.Variant) (dbus.ObjectPath, error) {
	v, ok := results["session_handle"]
	if !ok {
		return "", errors.New("portal response has no session_handle")
	}
	switch h := v.Value().(type) {
	case string:
		return dbus.ObjectPath(h), nil
	case dbus.ObjectPath:
		return h, nil
	default:
		return "", fmt.Errorf("unexpected session_handle type %T", h)
	}
}

func isActivation(sig *dbus.Signal, session dbus.ObjectPath, id string) bool {
	if sig == nil || sig.Name != shortcutsIface+".Activated" || len(sig.Body) < 2 {
		return false
	}
	var got dbus.ObjectPath
	switch s := sig.Body[0].(type) {
	case dbus.ObjectPath:
		got = s
	case string:
		got = dbus.ObjectPath(s)
	default:
		return false
	}
	shortcutID, _ := sig.Body[1].(string)
	return got == session && shortcutID == id
}

// handleToken returns a token valid as a D-Bus object path element.
func handleToken() string {
	return "chatpanel_" + strings.ToLower(ulid.Make().String())
}
