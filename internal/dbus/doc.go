// Package dbus exposes the io.github.jmylchreest.ChatPanel control interface
// on the session bus. Owning the bus name is what makes chatpaneld a single
// instance: a second process finds the name taken and talks to the owner
// through Client instead.
package dbus
