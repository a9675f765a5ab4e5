package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/parley/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int                 `mapstructure:"config_version" yaml:"config_version"`
	Backend       BackendConfig       `mapstructure:"backend" yaml:"backend"`
	Election      ElectionConfig      `mapstructure:"election" yaml:"election"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// BackendConfig locates the chat backend.
type BackendConfig struct {
	URL           string `mapstructure:"url" yaml:"url"`
	StreamPath    string `mapstructure:"stream_path" yaml:"stream_path"`
	LoginPath     string `mapstructure:"login_path" yaml:"login_path"`
	ProfileID     string `mapstructure:"profile_id" yaml:"profile_id"`
	InterfaceType string `mapstructure:"interface_type" yaml:"interface_type"`
}

// ElectionConfig tunes the cross-tab leader election.
type ElectionConfig struct {
	Channel     string `mapstructure:"channel" yaml:"channel"`
	SettleMS    int    `mapstructure:"settle_ms" yaml:"settle_ms"`
	HeartbeatMS int    `mapstructure:"heartbeat_ms" yaml:"heartbeat_ms"`
	LivenessMS  int    `mapstructure:"liveness_ms" yaml:"liveness_ms"`
	// RedisAddr bridges the broadcast channel over Redis pub/sub when
	// set; tabs confined to one process use the in-process hub.
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
}

// NotificationsConfig tunes notification gating.
type NotificationsConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	MaxTracked int  `mapstructure:"max_tracked" yaml:"max_tracked"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Backend: BackendConfig{
			URL:           "http://localhost:27490",
			StreamPath:    "/api/chat/stream",
			LoginPath:     "/login",
			ProfileID:     string(schema.DefaultProfileID),
			InterfaceType: schema.DefaultInterfaceType,
		},
		Election: ElectionConfig{
			Channel:     "parley-leader",
			SettleMS:    int(schema.DefaultSettleWindow.Milliseconds()),
			HeartbeatMS: int(schema.DefaultHeartbeatInterval.Milliseconds()),
			LivenessMS:  int(schema.DefaultLivenessThreshold.Milliseconds()),
		},
		Notifications: NotificationsConfig{
			Enabled:    true,
			MaxTracked: schema.DefaultMaxTracked,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".parley", "config.yaml"), nil
}
