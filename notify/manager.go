package notify

import (
	"context"
	"sync"

	"pkt.systems/parley/internal/logx"
	"pkt.systems/parley/schema"
	"pkt.systems/pslog"
)

// Config configures a Manager.
type Config struct {
	// Notifications carries the enabled default and dedup bound.
	Notifications schema.NotifyConfig
	// Platform is the desktop notification capability; nil disables
	// notifications entirely.
	Platform Platform
	// Visibility reports page visibility; nil means never visible.
	Visibility Visibility
	// Preferences overrides Notifications.Enabled when non-nil.
	Preferences Preferences
	// IsLeader gates delivery to the leader tab; nil means leader.
	IsLeader func() bool
	// Focus brings the window to the front on notification click.
	Focus func()
	// OpenConversation switches the UI to the clicked conversation.
	OpenConversation func(schema.ConversationID)
	// Logger defaults to the background context logger.
	Logger pslog.Logger
}

// Manager applies the notification gate chain and posts through the
// platform capability when every gate passes.
type Manager struct {
	cfg Config
	log pslog.Logger

	mu      sync.Mutex
	seen    *dedupSet
	active  schema.ConversationID
	granted bool
}

// NewManager constructs a Manager.
func NewManager(cfg Config) (*Manager, error) {
	notifications, err := schema.NormalizeNotifyConfig(cfg.Notifications)
	if err != nil {
		return nil, err
	}
	cfg.Notifications = notifications
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(context.Background())
	}
	m := &Manager{
		cfg:  cfg,
		log:  cfg.Logger,
		seen: newDedupSet(notifications.MaxTracked),
	}
	if cfg.Platform != nil {
		m.granted = cfg.Platform.Granted()
	}
	return m, nil
}

// RequestPermission prompts for notification permission and caches the
// outcome. Denial is a status, never an error.
func (m *Manager) RequestPermission(ctx context.Context) (bool, error) {
	if m.cfg.Platform == nil {
		return false, nil
	}
	granted, err := m.cfg.Platform.RequestPermission(ctx)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	m.granted = granted
	m.mu.Unlock()
	m.log.Debug("notification permission", "granted", granted)
	return granted, nil
}

// PermissionGranted reports the last observed permission state.
func (m *Manager) PermissionGranted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.granted
}

// refreshGranted queries the platform so grants made out-of-band (the
// browser settings page) take effect without a RequestPermission call.
func (m *Manager) refreshGranted() bool {
	granted := m.cfg.Platform.Granted()
	m.mu.Lock()
	m.granted = granted
	m.mu.Unlock()
	return granted
}

// SetActiveConversation records the conversation the tab is viewing,
// used to suppress self-notification while it is visible.
func (m *Manager) SetActiveConversation(id schema.ConversationID) {
	m.mu.Lock()
	m.active = id
	m.mu.Unlock()
}

// Show surfaces a desktop notification unless a gate blocks it. Gates
// short-circuit in order: capability, preference, permission,
// leadership, dedup, self-view suppression. Returns whether the
// notification was posted.
func (m *Manager) Show(ctx context.Context, n schema.Notification) bool {
	log := logx.WithConversation(m.log, n.ConversationID)
	if m.cfg.Platform == nil {
		return false
	}
	if !m.enabled() {
		log.Trace("notification suppressed", "gate", "preference")
		return false
	}
	if !m.refreshGranted() {
		log.Trace("notification suppressed", "gate", "permission")
		return false
	}
	if m.cfg.IsLeader != nil && !m.cfg.IsLeader() {
		log.Trace("notification suppressed", "gate", "leadership")
		return false
	}

	key := n.Key()
	m.mu.Lock()
	if m.seen.contains(key) {
		m.mu.Unlock()
		log.Trace("notification suppressed", "gate", "dedup", "key", key)
		return false
	}
	viewing := m.active == n.ConversationID
	m.mu.Unlock()

	if viewing && m.cfg.Visibility != nil && m.cfg.Visibility.Visible() {
		log.Trace("notification suppressed", "gate", "viewing")
		return false
	}

	m.mu.Lock()
	m.seen.add(key)
	m.mu.Unlock()

	onClick := func() {
		if m.cfg.Focus != nil {
			m.cfg.Focus()
		}
		if m.cfg.OpenConversation != nil {
			m.cfg.OpenConversation(n.ConversationID)
		}
	}
	if err := m.cfg.Platform.Post(ctx, "New message", n.Preview, string(n.ConversationID), onClick); err != nil {
		log.Warn("notification post failed", "err", err)
		return false
	}
	log.Debug("notification posted", "key", key)
	return true
}

func (m *Manager) enabled() bool {
	if m.cfg.Preferences != nil {
		return m.cfg.Preferences.NotificationsEnabled()
	}
	return m.cfg.Notifications.Enabled
}
