// Package panel implements the sidebar visibility controller: the state
// machine that decides when the docked panel is shown, hidden and
// repositioned, and the drag-resize gesture that feeds it.
//
// Everything in this package runs on the UI thread. Triggers (edge hover,
// hotkey, focus loss, cursor polling) and suppression flags (resizing, open
// auth popups) arrive as explicit method calls; the controller owns the only
// copy of the panel state.
package panel
