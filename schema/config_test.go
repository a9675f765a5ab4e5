package schema

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeElectionConfigDefaults(t *testing.T) {
	cfg, err := NormalizeElectionConfig(ElectionConfig{})
	if err != nil {
		t.Fatalf("NormalizeElectionConfig: %v", err)
	}
	if cfg.SettleWindow != DefaultSettleWindow {
		t.Fatalf("settle window %v, want %v", cfg.SettleWindow, DefaultSettleWindow)
	}
	if cfg.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Fatalf("heartbeat %v, want %v", cfg.HeartbeatInterval, DefaultHeartbeatInterval)
	}
	if cfg.LivenessThreshold != DefaultLivenessThreshold {
		t.Fatalf("liveness %v, want %v", cfg.LivenessThreshold, DefaultLivenessThreshold)
	}
}

func TestNormalizeElectionConfigRejectsShortLiveness(t *testing.T) {
	_, err := NormalizeElectionConfig(ElectionConfig{
		HeartbeatInterval: 5 * time.Second,
		LivenessThreshold: time.Second,
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNormalizeNotifyConfigDefaults(t *testing.T) {
	cfg, err := NormalizeNotifyConfig(NotifyConfig{})
	if err != nil {
		t.Fatalf("NormalizeNotifyConfig: %v", err)
	}
	if cfg.MaxTracked != DefaultMaxTracked {
		t.Fatalf("max tracked %d, want %d", cfg.MaxTracked, DefaultMaxTracked)
	}
}

func TestChatRequestNormalize(t *testing.T) {
	req, err := ChatRequest{Prompt: "hello", ConversationID: "c1"}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if req.ProfileID != DefaultProfileID {
		t.Fatalf("profile %q, want %q", req.ProfileID, DefaultProfileID)
	}
	if req.InterfaceType != DefaultInterfaceType {
		t.Fatalf("interface %q, want %q", req.InterfaceType, DefaultInterfaceType)
	}

	if _, err := (ChatRequest{ConversationID: "c1"}).Normalize(); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}
