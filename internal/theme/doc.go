// Package theme loads the CSS applied to the panel, the edge strip and auth
// popups. Bundled themes are embedded; a user stylesheet can replace them and
// is reloaded when it changes on disk.
package theme
