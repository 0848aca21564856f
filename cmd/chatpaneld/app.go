package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gio/v2"

	"github.com/jmylchreest/chatpanel/internal/autohide"
	"github.com/jmylchreest/chatpanel/internal/config"
	"github.com/jmylchreest/chatpanel/internal/daemon"
	"github.com/jmylchreest/chatpanel/internal/dbus"
	"github.com/jmylchreest/chatpanel/internal/edge"
	"github.com/jmylchreest/chatpanel/internal/gtkshell"
	"github.com/jmylchreest/chatpanel/internal/hotkey"
	"github.com/jmylchreest/chatpanel/internal/panel"
	"github.com/jmylchreest/chatpanel/internal/popup"
	"github.com/jmylchreest/chatpanel/internal/screen"
	"github.com/jmylchreest/chatpanel/internal/store"
	"github.com/jmylchreest/chatpanel/internal/theme"
	"github.com/jmylchreest/chatpanel/internal/x11"
)

// chatpaneld owns every long-lived component of the daemon. Apart from the
// D-Bus server, which is started before GTK, all fields are only touched on
// the GTK main loop.
type chatpaneld struct {
	app        *adw.Application
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	ctx        context.Context
	exitCode   int

	server   *dbus.Server
	store    *store.Store
	xconn    *x11.Conn
	monitors *gtkshell.Monitors
	locator  *screen.Locator
	tracker  *popup.Tracker

	placement gtkshell.Placement
	window    *gtkshell.PanelWindow
	content   *gtkshell.Content
	ctl       *panel.Controller
	resizer   *panel.Resizer
	strategy  autohide.Strategy
	trigger   *edge.Trigger

	binder    hotkey.Binder
	hotkeyGen int
	themes    *theme.Loader
	watcher   *daemon.ConfigWatcher
	notifier  *daemon.InternalNotifier
	activated bool
}

func newDaemon(cfg *config.Config, configPath string, logger *slog.Logger) *chatpaneld {
	if configPath == "" {
		configPath = config.Path()
	}
	d := &chatpaneld{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		notifier:   daemon.NewInternalNotifier(logger),
	}
	d.server = dbus.NewServer(d, gtkshell.Dispatch, logger)
	return d
}

// startServer claims the bus name. It fails with dbus.ErrAlreadyRunning when
// another instance owns it.
func (d *chatpaneld) startServer() error {
	return d.server.Start()
}

// run creates the GTK application and blocks until it quits.
func (d *chatpaneld) run(ctx context.Context) int {
	d.ctx = ctx

	// Uniqueness is the D-Bus server's job; GApplication's own would
	// swallow the second instance before it could forward anything.
	d.app = adw.NewApplication(appID, gio.ApplicationNonUnique)
	d.app.ConnectActivate(d.activate)
	d.app.ConnectShutdown(d.shutdown)

	// Callback URLs were consumed before this point; GApplication would
	// refuse them as files.
	status := d.app.Run(os.Args[:1])
	if status != 0 {
		return status
	}
	return d.exitCode
}

// quit stops the application from any goroutine.
func (d *chatpaneld) quit() {
	gtkshell.Dispatch(func() {
		if d.app != nil {
			d.app.Quit()
		}
	})
}

func (d *chatpaneld) activate() {
	if d.activated {
		d.Present()
		return
	}
	d.activated = true

	gtkApp := &d.app.Application
	cfg := d.cfg

	d.store = store.New(config.StatePath(), d.logger)
	state := d.store.LoadState()

	if x11.Available() && !gtkshell.Wayland() {
		conn, err := x11.Open("", d.logger)
		if err != nil {
			d.logger.Warn("X11 unavailable, no cursor polling or key grabs", "error", err)
		} else {
			d.xconn = conn
		}
	}

	d.monitors = gtkshell.NewMonitors(d.logger)
	d.locator = screen.NewLocator(d.monitors, cfg.ReservedInsets(), d.logger)
	if d.locator.Count() == 0 {
		d.fatal("No display found", "chatpanel needs at least one monitor to dock to.")
		return
	}

	d.themes = theme.NewLoader(gtkshell.Dispatch, d.logger)
	d.themes.Load(cfg.Appearance.Theme, filepath.Dir(d.configPath))
	d.themes.Apply(nil)
	d.themes.StartHotReload(d.ctx)

	d.tracker = popup.NewTracker(d.logger)
	d.placement = gtkshell.NewPlacement(d.monitors, d.xconn, d.logger)
	popups := gtkshell.NewAuthPopups(gtkApp, d.tracker, d.locator, d.xconn, d.logger)

	d.content = gtkshell.NewContent(cfg.Content.Sites, d.store.LastURL(cfg.Content.DefaultURL), d.store, popups, d.logger)
	d.window = gtkshell.NewPanelWindow(gtkApp, d.placement, d.content.Widget(), d.logger)

	opts := []panel.Option{
		panel.WithPopups(d.tracker),
		panel.WithLogger(d.logger),
		panel.WithLastManualWidth(state.LastManualWidth),
	}
	if d.xconn != nil {
		opts = append(opts, panel.WithCursor(d.xconn))
	}
	d.ctl = panel.NewController(d.window, d.locator, gtkshell.Scheduler{}, cfg.PanelPolicy(), opts...)
	d.tracker.SetListener(d.ctl)

	d.resizer = panel.NewResizer(d.ctl)
	d.window.SetResizeHandler(d.resizer, d.ctl.Bounds)
	d.window.SetCloseHandler(d.ctl.Hide)
	d.content.SetHideHandler(d.ctl.Hide)

	d.ctl.OnWidthCommitted(func(width int) {
		if err := d.store.SetLastManualWidth(width); err != nil {
			d.logger.Warn("failed to persist panel width", "width", width, "error", err)
		}
	})
	d.ctl.OnVisibilityChanged(func(visible bool) {
		if d.trigger != nil {
			d.trigger.VisibilityChanged(visible)
		}
		if err := d.server.EmitVisibilityChanged(visible); err != nil {
			d.logger.Debug("failed to emit visibility change", "error", err)
		}
	})

	d.startStrategy()
	d.syncEdge()

	d.monitors.OnChanged(func() {
		d.ctl.Reposition()
		if d.trigger != nil {
			d.trigger.Place()
		}
	})

	d.notifier.SetEnabled(cfg.Notifications.Enabled)
	d.notifier.SetNotifyHandler(func(n daemon.Notification) error {
		_, err := dbus.SendNotification(d.server.Connection(), dbus.DesktopNotification{
			Summary: n.Summary,
			Body:    n.Body,
			Icon:    n.Level.Icon(),
			Urgency: n.Level.Urgency(),
		})
		return err
	})

	d.bindHotkey()
	d.startConfigWatcher()

	d.logger.Info("chatpaneld ready",
		"dbus_interface", dbus.DBusInterface,
		"strategy", d.ctl.State().Strategy,
		"displays", d.locator.Count(),
		"wayland", gtkshell.Wayland(),
	)
}

// fatal reports a startup failure in a dialog and exits with status 1
// once it is dismissed.
func (d *chatpaneld) fatal(heading, body string) {
	d.logger.Error("startup failed", "reason", heading)
	d.exitCode = 1
	// Without a window the application would quit before the dialog shows.
	d.app.Hold()
	gtkshell.ShowError(nil, heading, body, d.app.Quit)
}

// startStrategy (re)creates the auto-hide strategy from the current
// config. A strategy that fails to start degrades to cursor polling.
func (d *chatpaneld) startStrategy() {
	if d.strategy != nil {
		d.strategy.Stop()
		d.strategy = nil
	}

	env := autohide.Env{
		Target:        d.ctl,
		Scheduler:     gtkshell.Scheduler{},
		Logger:        d.logger,
		Focus:         gtkshell.NewFocus(&d.app.Application, d.window),
		FocusReliable: gtkshell.Wayland(),
	}
	if d.xconn != nil {
		env.Pointer = d.xconn
		env.Displays = d.locator
	}
	opts := d.cfg.AutoHideOptions()

	s, err := autohide.Select(d.cfg.AutoHide.Strategy, env, opts)
	if err == nil {
		err = s.Start()
	}
	if err != nil && s != nil && s.Name() != autohide.KindPoll && env.Pointer != nil {
		d.logger.Warn("auto-hide strategy failed, falling back to polling", "strategy", s.Name(), "error", err)
		s, err = autohide.Select(autohide.KindPoll, env, opts)
		if err == nil {
			err = s.Start()
		}
	}
	if err != nil {
		d.logger.Warn("auto-hide disabled", "error", err)
		d.ctl.SetStrategy(nil)
		return
	}

	d.strategy = s
	d.ctl.SetStrategy(s)
	d.logger.Info("auto-hide strategy started", "strategy", s.Name())
}

// syncEdge creates, resizes or removes the reveal strip. Polling reveals
// the panel by itself, so the strip is only needed otherwise.
func (d *chatpaneld) syncEdge() {
	want := d.cfg.EdgeTrigger.Enabled && (d.strategy == nil || !d.strategy.PollsCursor())
	if !want {
		if d.trigger != nil {
			d.trigger.Close()
			d.trigger = nil
		}
		return
	}
	if d.trigger != nil {
		d.trigger.SetWidth(d.cfg.EdgeTrigger.Width)
		return
	}

	strip := gtkshell.NewEdgeStrip(&d.app.Application, d.placement, d.logger)
	d.trigger = edge.NewTrigger(strip, d.locator, d.ctl, d.cfg.EdgeTrigger.Width, d.logger)
	strip.SetEnterHandler(d.trigger.Entered)
	strip.SetPressHandler(d.trigger.Pressed)
	d.trigger.Place()
}

// bindHotkey (re)binds the toggle chord. Global backends may block on the
// portal's permission dialog, so they are tried off the main loop; the
// panel-scoped shortcut is bound on it.
func (d *chatpaneld) bindHotkey() {
	if d.binder != nil {
		_ = d.binder.Close()
		d.binder = nil
	}
	d.hotkeyGen++
	gen := d.hotkeyGen

	order := binderOrder(d.cfg.Hotkey.Backend, gtkshell.Wayland(), d.xconn != nil)
	if len(order) == 0 {
		d.logger.Info("hotkey disabled")
		return
	}
	chord, err := d.cfg.Chord()
	if err != nil {
		d.logger.Warn("invalid hotkey chord", "chord", d.cfg.Hotkey.Chord, "error", err)
		return
	}

	var global []hotkey.Binder
	withWindow := false
	for _, name := range order {
		switch name {
		case hotkey.BackendX11:
			if d.xconn != nil {
				global = append(global, hotkey.NewX11Binder(d.xconn, d.logger))
			}
		case hotkey.BackendPortal:
			if conn := d.server.Connection(); conn != nil {
				global = append(global, hotkey.NewPortalBinder(conn, d.logger))
			}
		case hotkey.BackendWindow:
			withWindow = true
		}
	}

	pressed := func() { gtkshell.Dispatch(d.hotkeyPressed) }

	finish := func(b hotkey.Binder, err error) {
		if gen != d.hotkeyGen {
			if b != nil {
				_ = b.Close()
			}
			return
		}
		if err != nil && withWindow {
			wb := gtkshell.NewWindowBinder(d.window.Window())
			if werr := wb.Bind(d.ctx, chord, d.hotkeyPressed); werr == nil {
				d.logger.Info("hotkey bound", "backend", wb.Name(), "chord", chord.String())
				b = wb
			}
		}
		d.binder = b
		if err != nil {
			d.notifier.NotifyHotkeyUnavailable(chord.String(), err)
		}
	}

	if len(global) == 0 {
		finish(nil, fmt.Errorf("%w: %s", hotkey.ErrNoBackend, d.cfg.Hotkey.Backend))
		return
	}
	go func() {
		b, err := hotkey.BindFirst(d.ctx, chord, pressed, d.logger, global...)
		gtkshell.Dispatch(func() { finish(b, err) })
	}()
}

func (d *chatpaneld) hotkeyPressed() {
	if d.ctl != nil {
		d.ctl.HotkeyPressed()
	}
}

func (d *chatpaneld) startConfigWatcher() {
	d.watcher = daemon.NewConfigWatcher(d.configPath, d.logger)
	d.watcher.SetReloadCallback(func(newConfig *config.Config) {
		gtkshell.Dispatch(func() { d.applyConfig(newConfig) })
	})
	d.watcher.SetErrorCallback(func(err error) {
		d.notifier.NotifyConfigError(err)
	})
	if err := d.watcher.Start(d.ctx, d.cfg); err != nil {
		d.logger.Warn("failed to start config watcher", "error", err)
	}
}

// applyConfig swaps in a reloaded configuration.
func (d *chatpaneld) applyConfig(cfg *config.Config) {
	old := d.cfg
	d.cfg = cfg

	d.locator.SetReserved(cfg.ReservedInsets())
	d.ctl.SetPolicy(cfg.PanelPolicy())
	d.content.SetSites(cfg.Content.Sites)

	if old.AutoHide != cfg.AutoHide {
		d.startStrategy()
	}
	d.syncEdge()

	if old.Appearance.Theme != cfg.Appearance.Theme {
		d.themes.Load(cfg.Appearance.Theme, filepath.Dir(d.configPath))
		d.themes.StartHotReload(d.ctx)
	}
	if old.Hotkey != cfg.Hotkey {
		d.bindHotkey()
	}
	d.notifier.SetEnabled(cfg.Notifications.Enabled)

	d.logger.Info("configuration reloaded")
	d.notifier.NotifyConfigReloaded()
}

func (d *chatpaneld) shutdown() {
	d.logger.Info("application shutting down")
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.themes != nil {
		d.themes.StopHotReload()
	}
	if d.binder != nil {
		_ = d.binder.Close()
	}
	if d.strategy != nil {
		d.strategy.Stop()
	}
	if d.tracker != nil {
		d.tracker.CloseAll()
	}
	if d.trigger != nil {
		d.trigger.Close()
	}
	if d.ctl != nil {
		d.ctl.Close()
	}
	_ = d.server.Stop()
	if d.xconn != nil {
		d.xconn.Close()
	}
}

// Show implements dbus.Handler.
func (d *chatpaneld) Show() {
	if d.ctl != nil {
		d.ctl.Show()
	}
}

// Hide implements dbus.Handler.
func (d *chatpaneld) Hide() {
	if d.ctl != nil {
		d.ctl.Hide()
	}
}

// Toggle implements dbus.Handler.
func (d *chatpaneld) Toggle() {
	if d.ctl != nil {
		d.ctl.Toggle()
	}
}

// Present implements dbus.Handler: show the panel and give it focus.
func (d *chatpaneld) Present() {
	if d.ctl == nil {
		return
	}
	d.ctl.Show()
	if d.ctl.Visible() {
		d.window.Activate()
	}
}

// AuthCallback implements dbus.Handler. The callback closes every open
// sign-in popup.
func (d *chatpaneld) AuthCallback(u string) error {
	if !isCallbackURL(u, d.cfg.Callback.Scheme) {
		return fmt.Errorf("not a %s:// callback URL: %q", d.cfg.Callback.Scheme, u)
	}
	if d.tracker == nil {
		return fmt.Errorf("panel is not ready")
	}
	d.logger.Info("auth callback received", "popups", d.tracker.Len())
	d.tracker.AuthCompleted(u)
	return nil
}

// Status implements dbus.Handler.
func (d *chatpaneld) Status() dbus.Status {
	if d.ctl == nil {
		return dbus.Status{}
	}
	st := d.ctl.State()
	out := dbus.Status{
		Visible:  st.Visible,
		Width:    st.CurrentWidth,
		Popups:   d.tracker.Len(),
		Resizing: st.Resizing,
		ShownAt:  st.ShownAt,
	}
	if st.ActiveDisplay != nil {
		out.Display = st.ActiveDisplay.ID
	}
	return out
}
