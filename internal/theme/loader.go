package theme

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader owns the application CSS provider.
type Loader struct {
	mu       sync.Mutex
	logger   *slog.Logger
	provider *gtk.CSSProvider
	theme    *Theme
	watcher  *Watcher
	applied  bool

	// dispatch runs provider updates on the GTK main loop.
	dispatch func(func())
}

// NewLoader creates a Loader. dispatch marshals hot-reload updates onto
// the GTK main loop.
func NewLoader(dispatch func(func()), logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Loader{
		logger:   logger,
		provider: gtk.NewCSSProvider(),
		dispatch: dispatch,
	}
}

// Load resolves value (see Resolve) and loads it into the provider. An
// unusable value falls back to the default theme and is logged.
func (l *Loader) Load(value, baseDir string) {
	t, err := Resolve(value, baseDir)
	if err != nil {
		l.logger.Warn("theme not usable, using default", "theme", value, "error", err)
		t, _ = NewBundledTheme(DefaultThemeName)
	}

	l.mu.Lock()
	l.theme = t
	l.provider.LoadFromString(t.CSS)
	l.mu.Unlock()

	if t.Bundled() {
		l.logger.Info("loaded bundled theme", "name", t.Name)
	} else {
		l.logger.Info("loaded user theme", "name", t.Name, "path", t.Path)
	}
}

// Apply installs the provider on display (nil means the default display).
// Must run after GTK is initialized.
func (l *Loader) Apply(display *gdk.Display) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied {
		return
	}
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}

	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.applied = true
}

// StartHotReload watches the current theme file; bundled themes are not
// watched. Any previous watcher is stopped.
func (l *Loader) StartHotReload(ctx context.Context) {
	l.StopHotReload()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.theme == nil || l.theme.Bundled() {
		return
	}

	w := NewWatcher(l.theme, l.logger)
	w.SetChangeCallback(func(css string) {
		l.dispatch(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.provider.LoadFromString(css)
		})
	})
	if err := w.Start(ctx); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		return
	}
	l.watcher = w
}

// StopHotReload stops watching the theme.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

// Current returns the loaded theme, nil before Load.
func (l *Loader) Current() *Theme {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.theme
}
