// Package daemon provides the supporting services of chatpaneld:
// configuration hot reload and rate-limited self-notifications.
package daemon
