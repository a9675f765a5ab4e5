package version

import (
	"strings"
	"testing"
)

func TestCurrentNeverEmpty(t *testing.T) {
	if strings.TrimSpace(Current()) == "" {
		t.Fatalf("Current returned an empty version")
	}
}

func TestModuleNeverEmpty(t *testing.T) {
	if strings.TrimSpace(Module()) == "" {
		t.Fatalf("Module returned an empty path")
	}
}

func TestBuildVersionOverrides(t *testing.T) {
	old := buildVersion
	defer func() { buildVersion = old }()
	buildVersion = "v1.2.3"
	if got := Current(); got != "v1.2.3" {
		t.Fatalf("Current %q, want v1.2.3", got)
	}
}
