package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Handler receives control calls. Every method runs on the UI thread via
// the server's Dispatcher.
type Handler interface {
	Show()
	Hide()
	Toggle()
	// Present shows the panel and raises it above other windows.
	Present()
	AuthCallback(url string) error
	Status() Status
}

// Dispatcher runs fn on the UI thread. The server waits for fn to return.
type Dispatcher func(fn func())

// DefaultCallTimeout bounds how long a method call waits for the UI thread.
const DefaultCallTimeout = 2 * time.Second

var errTimeout = errors.New("timed out waiting for the UI thread")

// Server implements the io.github.jmylchreest.ChatPanel D-Bus interface.
type Server struct {
	conn     *dbus.Conn
	logger   *slog.Logger
	handler  Handler
	dispatch Dispatcher
	timeout  time.Duration

	mu      sync.RWMutex
	running bool
}

// NewServer creates a new Server. A nil dispatch runs calls inline.
func NewServer(handler Handler, dispatch Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Server{
		logger:   logger,
		handler:  handler,
		dispatch: dispatch,
		timeout:  DefaultCallTimeout,
	}
}

// SetCallTimeout overrides DefaultCallTimeout.
func (s *Server) SetCallTimeout(d time.Duration) {
	s.timeout = d
}

// Start connects to the session bus, exports the control object and claims
// the bus name. If the name is owned by another process it returns
// ErrAlreadyRunning and leaves nothing exported.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn is Start on an existing connection.
func (s *Server) StartOn(conn *dbus.Conn) error {
	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		s.unexport(conn)
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		s.unexport(conn)
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		s.unexport(conn)
		return ErrAlreadyRunning
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus control server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

func (s *Server) unexport(conn *dbus.Conn) {
	_ = conn.Export(nil, DBusPath, DBusInterface)
	_ = conn.Export(nil, DBusPath, "org.freedesktop.DBus.Introspectable")
}

// Stop releases the bus name.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	s.unexport(s.conn)
	// The connection is the shared session bus; it stays open.

	s.logger.Info("D-Bus control server stopped")
	return nil
}

// Connection returns the underlying D-Bus connection, nil before Start.
func (s *Server) Connection() *dbus.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// EmitVisibilityChanged emits the VisibilityChanged signal.
func (s *Server) EmitVisibilityChanged(visible bool) error {
	conn := s.Connection()
	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(DBusPath, DBusInterface+".VisibilityChanged", visible); err != nil {
		return fmt.Errorf("failed to emit VisibilityChanged signal: %w", err)
	}

	s.logger.Debug("emitted VisibilityChanged signal", "visible", visible)
	return nil
}

// call runs fn on the UI thread and waits for it.
func (s *Server) call(fn func()) error {
	done := make(chan struct{})
	s.dispatch(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-time.After(s.timeout):
		return errTimeout
	}
}

// Show shows the panel.
// D-Bus method: Show() -> nothing
func (s *Server) Show() *dbus.Error {
	s.logger.Debug("Show called")
	if err := s.call(s.handler.Show); err != nil {
		return methodError("Timeout", err)
	}
	return nil
}

// Hide hides the panel.
// D-Bus method: Hide() -> nothing
func (s *Server) Hide() *dbus.Error {
	s.logger.Debug("Hide called")
	if err := s.call(s.handler.Hide); err != nil {
		return methodError("Timeout", err)
	}
	return nil
}

// Toggle flips the panel's visibility.
// D-Bus method: Toggle() -> nothing
func (s *Server) Toggle() *dbus.Error {
	s.logger.Debug("Toggle called")
	if err := s.call(s.handler.Toggle); err != nil {
		return methodError("Timeout", err)
	}
	return nil
}

// Present shows and raises the panel.
// D-Bus method: Present() -> nothing
func (s *Server) Present() *dbus.Error {
	s.logger.Debug("Present called")
	if err := s.call(s.handler.Present); err != nil {
		return methodError("Timeout", err)
	}
	return nil
}

// AuthCallback delivers a sign-in redirect URL to the running instance.
// D-Bus method: AuthCallback(s) -> nothing
func (s *Server) AuthCallback(url string) *dbus.Error {
	s.logger.Debug("AuthCallback called", "url", url)

	var herr error
	if err := s.call(func() { herr = s.handler.AuthCallback(url) }); err != nil {
		return methodError("Timeout", err)
	}
	if herr != nil {
		return methodError("InvalidCallback", herr)
	}
	return nil
}

// Status reports the panel state.
// D-Bus method: Status() -> (bisibx)
func (s *Server) Status() (bool, int32, string, int32, bool, int64, *dbus.Error) {
	var st Status
	if err := s.call(func() { st = s.handler.Status() }); err != nil {
		return false, 0, "", 0, false, 0, methodError("Timeout", err)
	}
	visible, width, display, popups, resizing, shown := st.values()
	return visible, width, display, popups, resizing, shown, nil
}

// controlMethods returns the D-Bus method introspection data.
func controlMethods() []introspect.Method {
	return []introspect.Method{
		{Name: "Show"},
		{Name: "Hide"},
		{Name: "Toggle"},
		{Name: "Present"},
		{
			Name: "AuthCallback",
			Args: []introspect.Arg{
				{Name: "url", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "visible", Type: "b", Direction: "out"},
				{Name: "width", Type: "i", Direction: "out"},
				{Name: "display", Type: "s", Direction: "out"},
				{Name: "popups", Type: "i", Direction: "out"},
				{Name: "resizing", Type: "b", Direction: "out"},
				{Name: "shown_at", Type: "x", Direction: "out"},
			},
		},
	}
}

// controlSignals returns the D-Bus signal introspection data.
func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "VisibilityChanged",
			Args: []introspect.Arg{
				{Name: "visible", Type: "b"},
			},
		},
	}
}
