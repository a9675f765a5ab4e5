package schema

import "time"

// Election timing defaults. The liveness threshold is double the
// heartbeat period so a single missed beat does not trigger a takeover.
const (
	DefaultSettleWindow      = 200 * time.Millisecond
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultLivenessThreshold = 10 * time.Second
)

// DefaultMaxTracked bounds the per-tab notification dedup set.
const DefaultMaxTracked = 100

// ElectionConfig tunes the leader election protocol.
type ElectionConfig struct {
	// SettleWindow is how long a starting tab waits for an existing
	// leader to answer a leader-check before promoting itself.
	SettleWindow time.Duration
	// HeartbeatInterval is how often the leader proves liveness.
	HeartbeatInterval time.Duration
	// LivenessThreshold is how long followers tolerate leader silence.
	LivenessThreshold time.Duration
}

// NormalizeElectionConfig applies defaults and validates the config.
func NormalizeElectionConfig(cfg ElectionConfig) (ElectionConfig, error) {
	if cfg.SettleWindow == 0 {
		cfg.SettleWindow = DefaultSettleWindow
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.LivenessThreshold == 0 {
		cfg.LivenessThreshold = DefaultLivenessThreshold
	}
	if cfg.SettleWindow < 0 || cfg.HeartbeatInterval < 0 || cfg.LivenessThreshold < 0 {
		return ElectionConfig{}, ErrInvalidConfig
	}
	if cfg.LivenessThreshold < cfg.HeartbeatInterval {
		return ElectionConfig{}, ErrInvalidConfig
	}
	return cfg, nil
}

// NotifyConfig tunes notification gating.
type NotifyConfig struct {
	// Enabled is the user preference default when no store is injected.
	Enabled bool
	// MaxTracked bounds the dedup set; oldest keys are evicted first.
	MaxTracked int
}

// NormalizeNotifyConfig applies defaults and validates the config.
func NormalizeNotifyConfig(cfg NotifyConfig) (NotifyConfig, error) {
	if cfg.MaxTracked == 0 {
		cfg.MaxTracked = DefaultMaxTracked
	}
	if cfg.MaxTracked < 0 {
		return NotifyConfig{}, ErrInvalidConfig
	}
	return cfg, nil
}
