package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/parley/schema"
)

// Load reads configuration from the provided path. If path is empty,
// uses DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("backend.url", cfg.Backend.URL)
	v.SetDefault("backend.stream_path", cfg.Backend.StreamPath)
	v.SetDefault("backend.login_path", cfg.Backend.LoginPath)
	v.SetDefault("backend.profile_id", cfg.Backend.ProfileID)
	v.SetDefault("backend.interface_type", cfg.Backend.InterfaceType)
	v.SetDefault("election.channel", cfg.Election.Channel)
	v.SetDefault("election.settle_ms", cfg.Election.SettleMS)
	v.SetDefault("election.heartbeat_ms", cfg.Election.HeartbeatMS)
	v.SetDefault("election.liveness_ms", cfg.Election.LivenessMS)
	v.SetDefault("election.redis_addr", cfg.Election.RedisAddr)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.max_tracked", cfg.Notifications.MaxTracked)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := validateBackendConfig(cfg.Backend); err != nil {
		return Config{}, err
	}
	if _, err := cfg.ElectionTimings(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ElectionTimings converts the config into protocol timings.
func (c Config) ElectionTimings() (schema.ElectionConfig, error) {
	return schema.NormalizeElectionConfig(schema.ElectionConfig{
		SettleWindow:      time.Duration(c.Election.SettleMS) * time.Millisecond,
		HeartbeatInterval: time.Duration(c.Election.HeartbeatMS) * time.Millisecond,
		LivenessThreshold: time.Duration(c.Election.LivenessMS) * time.Millisecond,
	})
}

func validateBackendConfig(cfg BackendConfig) error {
	backendURL := strings.TrimSpace(cfg.URL)
	if backendURL == "" {
		return fmt.Errorf("backend.url is required")
	}
	parsed, err := url.Parse(backendURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.url must include scheme and host (e.g. https://example.com)")
	}
	if strings.ContainsAny(cfg.StreamPath, "?#") || strings.ContainsAny(cfg.LoginPath, "?#") {
		return fmt.Errorf("backend paths must not include query or fragment")
	}
	return nil
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
