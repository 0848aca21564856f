// Package screen resolves which physical display is relevant for the panel.
package screen

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/chatpanel/internal/geometry"
)

// ErrNoDisplay is returned when no display can be enumerated.
var ErrNoDisplay = errors.New("no display available")

// Source enumerates the current displays. Implementations must return a
// fresh snapshot on every call.
type Source interface {
	Displays() []geometry.Display
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() []geometry.Display

// Displays implements Source.
func (f SourceFunc) Displays() []geometry.Display {
	return f()
}

// Policy selects the display the panel docks to on show.
type Policy string

const (
	// PolicyCursor docks to the display under the cursor, falling back to rightmost.
	PolicyCursor Policy = "cursor"
	// PolicyRightmost docks to the display with the largest right edge.
	PolicyRightmost Policy = "rightmost"
	// PolicyPrimary docks to the primary display.
	PolicyPrimary Policy = "primary"
)

// ValidPolicies returns all valid dock policies.
func ValidPolicies() []Policy {
	return []Policy{PolicyCursor, PolicyRightmost, PolicyPrimary}
}

// Locator answers display queries against a Source. It never caches.
type Locator struct {
	source   Source
	reserved geometry.Insets
	logger   *slog.Logger
}

// NewLocator creates a locator. reserved is subtracted from each display's
// available geometry on top of whatever the source already reports.
func NewLocator(source Source, reserved geometry.Insets, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		source:   source,
		reserved: reserved,
		logger:   logger,
	}
}

// SetReserved replaces the configured reserved insets.
func (l *Locator) SetReserved(reserved geometry.Insets) {
	l.reserved = reserved
}

// Displays returns a fresh snapshot of all displays.
func (l *Locator) Displays() []geometry.Display {
	displays := l.source.Displays()
	out := make([]geometry.Display, 0, len(displays))
	for _, d := range displays {
		if d.Available.Empty() {
			d.Available = d.Geometry
		}
		d.Available = d.Available.Inset(l.reserved)
		out = append(out, d)
	}
	return out
}

// Count returns the number of displays currently connected.
func (l *Locator) Count() int {
	return len(l.source.Displays())
}

// DisplayAt returns the display whose geometry contains p.
func (l *Locator) DisplayAt(p geometry.Point) (geometry.Display, bool) {
	for _, d := range l.Displays() {
		if d.Geometry.Contains(p) {
			return d, true
		}
	}
	return geometry.Display{}, false
}

// Rightmost returns the display whose right edge is furthest right.
// Ties keep the first display in enumeration order.
func (l *Locator) Rightmost() (geometry.Display, error) {
	displays := l.Displays()
	if len(displays) == 0 {
		return geometry.Display{}, ErrNoDisplay
	}
	best := displays[0]
	for _, d := range displays[1:] {
		if d.Geometry.Right() > best.Geometry.Right() {
			best = d
		}
	}
	return best, nil
}

// Primary returns the primary display, or the first one if none is flagged.
func (l *Locator) Primary() (geometry.Display, error) {
	displays := l.Displays()
	if len(displays) == 0 {
		return geometry.Display{}, ErrNoDisplay
	}
	for _, d := range displays {
		if d.Primary {
			return d, nil
		}
	}
	return displays[0], nil
}

// ByID returns a fresh snapshot of the display with the given ID.
func (l *Locator) ByID(id string) (geometry.Display, bool) {
	for _, d := range l.Displays() {
		if d.ID == id {
			return d, true
		}
	}
	return geometry.Display{}, false
}

// Resolve applies a dock policy. cursor may be nil when the platform has no
// cursor query; PolicyCursor then behaves like PolicyRightmost.
func (l *Locator) Resolve(policy Policy, cursor *geometry.Point) (geometry.Display, error) {
	switch policy {
	case PolicyPrimary:
		return l.Primary()
	case PolicyCursor:
		if cursor != nil {
			if d, ok := l.DisplayAt(*cursor); ok {
				return d, nil
			}
			l.logger.Debug("cursor outside all displays, using rightmost", "x", cursor.X, "y", cursor.Y)
		}
		return l.Rightmost()
	case PolicyRightmost, "":
		return l.Rightmost()
	default:
		return geometry.Display{}, fmt.Errorf("unknown dock policy %q", policy)
	}
}
