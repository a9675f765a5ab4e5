// Package notify gates desktop notifications behind the leader tab and
// deduplicates them per message. The platform notification primitive,
// page visibility, and the user preference store are injected as
// opaque capabilities.
package notify

import "context"

// Platform is the desktop notification capability. A nil Platform
// means the capability is absent and every notification is suppressed.
type Platform interface {
	// RequestPermission asks the user for notification permission and
	// reports whether it was granted.
	RequestPermission(ctx context.Context) (bool, error)
	// Granted reports the current permission state without prompting.
	Granted() bool
	// Post surfaces a desktop notification. Tag groups notifications;
	// the platform may replace a prior notification with the same tag.
	// onClick fires when the user activates the notification.
	Post(ctx context.Context, title, body, tag string, onClick func()) error
}

// Visibility reports whether the page is currently visible.
type Visibility interface {
	Visible() bool
}

// Preferences is the user's notification toggle.
type Preferences interface {
	NotificationsEnabled() bool
}
