package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Backend names accepted in configuration.
const (
	BackendAuto   = "auto"
	BackendX11    = "x11"
	BackendPortal = "portal"
	BackendWindow = "window"
	BackendNone   = "none"
)

// ValidBackends returns the accepted backend names.
func ValidBackends() []string {
	return []string{BackendAuto, BackendX11, BackendPortal, BackendWindow, BackendNone}
}

// ErrNoBackend is returned when every candidate backend failed to bind.
var ErrNoBackend = errors.New("no hotkey backend could bind the chord")

// Binder registers a chord with one hotkey backend. The callback may run on
// any goroutine; callers marshal it onto the UI thread.
type Binder interface {
	Name() string
	Bind(ctx context.Context, chord Chord, fn func()) error
	Close() error
}

// BindFirst tries each binder in order and returns the first that binds.
// Nil entries are skipped.
func BindFirst(ctx context.Context, chord Chord, fn func(), logger *slog.Logger, binders ...Binder) (Binder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, b := range binders {
		if b == nil {
			continue
		}
		if err := b.Bind(ctx, chord, fn); err != nil {
			logger.Info("hotkey backend unavailable", "backend", b.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			_ = b.Close()
			continue
		}
		logger.Info("hotkey bound", "backend", b.Name(), "chord", chord.String())
		return b, nil
	}
	return nil, errors.Join(append([]error{ErrNoBackend}, errs...)...)
}
