package main

import (
	"net/url"
	"strings"

	"github.com/jmylchreest/chatpanel/internal/hotkey"
)

// callbackArg finds an auth callback URI (scheme://...) among args. The
// desktop entry registers chatpaneld as the handler for the scheme, so the
// browser's redirect arrives as the first argument.
func callbackArg(args []string, scheme string) (string, bool) {
	for _, a := range args {
		if isCallbackURL(a, scheme) {
			return a, true
		}
	}
	return "", false
}

func isCallbackURL(raw, scheme string) bool {
	if scheme == "" || !strings.Contains(raw, ":") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, scheme)
}

// binderOrder lists the hotkey backends to try for the configured backend.
// auto prefers a root-window grab on X11 and the portal on Wayland, and
// always ends with the panel-scoped shortcut.
func binderOrder(backend string, wayland, x11 bool) []string {
	switch backend {
	case hotkey.BackendNone:
		return nil
	case hotkey.BackendX11, hotkey.BackendPortal, hotkey.BackendWindow:
		return []string{backend}
	}

	var order []string
	if wayland {
		order = append(order, hotkey.BackendPortal)
	} else if x11 {
		order = append(order, hotkey.BackendX11)
	}
	return append(order, hotkey.BackendWindow)
}
