package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/parley/internal/mockchat"
)

func TestResolvePrompt(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "arg", arg: "hello there", want: "hello there"},
		{name: "dash-reads-stdin", arg: "-", stdin: "from stdin\n", want: "from stdin"},
		{name: "empty-falls-back-to-stdin", arg: "", stdin: "piped", want: "piped"},
		{name: "dash-empty-stdin", arg: "-", stdin: "  \n", wantErr: true},
	}
	for _, tc := range tests {
		got, err := resolvePrompt(tc.arg, strings.NewReader(tc.stdin))
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got %q", tc.name, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: resolvePrompt: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: resolvePrompt = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestChatCommandStreamsAgainstMockBackend(t *testing.T) {
	backend := httptest.NewServer(mockchat.New(mockchat.Config{}).Handler())
	defer backend.Close()

	// A missing config file loads the defaults.
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"chat", "--config", cfgPath, "--backend", backend.URL, "hello", "mock", "backend"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("chat command: %v", err)
	}
	if !strings.Contains(out.String(), "hello mock backend") {
		t.Fatalf("expected echoed prompt in output, got %q", out.String())
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"config", "init", "--path", cfgPath})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out.String(), cfgPath) {
		t.Fatalf("expected written path in output, got %q", out.String())
	}

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"config", "show", "--path", cfgPath})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out.String(), "config_version") {
		t.Fatalf("expected config_version in output, got %q", out.String())
	}
}
