package daemon

import (
	"log/slog"
	"sync"
	"time"
)

// NotificationLevel indicates the urgency/severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// Urgency maps the level to a freedesktop notification urgency byte.
func (l NotificationLevel) Urgency() byte {
	switch l {
	case NotificationLevelInfo:
		return 0
	case NotificationLevelError:
		return 2
	default:
		return 1
	}
}

// Icon returns the themed icon name for the level.
func (l NotificationLevel) Icon() string {
	switch l {
	case NotificationLevelInfo:
		return "dialog-information"
	case NotificationLevelError:
		return "dialog-error"
	default:
		return "dialog-warning"
	}
}

// Notification is a desktop notification about a chatpaneld event.
type Notification struct {
	Summary string
	Body    string
	Level   NotificationLevel
}

// InternalNotifier sends desktop notifications about chatpaneld events
// (config reloads, unavailable hotkey backends). Repeats of the same key
// within the minimum interval are dropped.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	notifyHandler func(n Notification) error

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetNotifyHandler sets the function that delivers a notification.
func (n *InternalNotifier) SetNotifyHandler(handler func(n Notification) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifyHandler = handler
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends an internal notification if not rate-limited.
// The key is used for rate limiting - same key won't notify again within minInterval.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return
	}

	if n.notifyHandler == nil {
		n.logger.Debug("internal notification skipped: no handler", "summary", summary)
		return
	}

	now := n.now()
	if lastTime, ok := n.lastNotifyTime[key]; ok && now.Sub(lastTime) < n.minInterval {
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)

	if err := n.notifyHandler(Notification{Summary: summary, Body: body, Level: level}); err != nil {
		n.logger.Debug("failed to send internal notification", "key", key, "error", err)
	}
}

// NotifyConfigReloaded sends a notification about config being reloaded.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"chatpanel configuration has been successfully reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError sends a notification about config validation error.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyHotkeyUnavailable reports that no backend could bind the chord.
func (n *InternalNotifier) NotifyHotkeyUnavailable(chord string, err error) {
	n.Notify(
		"hotkey-error",
		"Hotkey Unavailable",
		"Could not bind "+chord+": "+err.Error()+". Use the screen edge or `chatpanel toggle`.",
		NotificationLevelWarning,
	)
}
