package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zhubert/tabby-agent/agent"
	"github.com/zhubert/tabby-agent/paths"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvNodePath, "")
	t.Setenv(EnvAgentScript, "")
}

func TestLoadFile_Missing(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want %v", cfg.RequestTimeout, DefaultRequestTimeout)
	}
	if cfg.StopTimeout != DefaultStopTimeout {
		t.Errorf("StopTimeout = %v, want %v", cfg.StopTimeout, DefaultStopTimeout)
	}
	if cfg.FilePath() != path {
		t.Errorf("FilePath() = %q, want %q", cfg.FilePath(), path)
	}
}

func TestLoadFile_Full(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
node_path: /opt/node/bin/node
script_path: /opt/tabby/tabby-agent.js
request_timeout: 5s
stop_timeout: 500ms
debug: true
log:
  max_size_mb: 10
  max_backups: 3
agent:
  server:
    endpoint: http://localhost:8080
  completion:
    max_prefix_lines: 20
    max_suffix_lines: 20
  logs:
    level: debug
  anonymous_usage_tracking:
    disabled: true
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.NodePath != "/opt/node/bin/node" {
		t.Errorf("NodePath = %q", cfg.NodePath)
	}
	if cfg.ScriptPath != "/opt/tabby/tabby-agent.js" {
		t.Errorf("ScriptPath = %q", cfg.ScriptPath)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.StopTimeout != 500*time.Millisecond {
		t.Errorf("StopTimeout = %v, want 500ms", cfg.StopTimeout)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 {
		t.Errorf("Log = %+v", cfg.Log)
	}

	ac := cfg.AgentConfig()
	if ac.Server == nil || ac.Server.Endpoint != "http://localhost:8080" {
		t.Errorf("Agent.Server = %+v", ac.Server)
	}
	if ac.Completion == nil || ac.Completion.MaxPrefixLines != 20 || ac.Completion.MaxSuffixLines != 20 {
		t.Errorf("Agent.Completion = %+v", ac.Completion)
	}
	if ac.Logs == nil || ac.Logs.Level != "debug" {
		t.Errorf("Agent.Logs = %+v", ac.Logs)
	}
	if ac.AnonymousUsageTracking == nil || !ac.AnonymousUsageTracking.Disabled {
		t.Errorf("Agent.AnonymousUsageTracking = %+v", ac.AnonymousUsageTracking)
	}
}

func TestLoadFile_ZeroTimeoutDisables(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(writeConfig(t, "request_timeout: 0s\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("RequestTimeout = %v, want 0", cfg.RequestTimeout)
	}
	if cfg.StopTimeout != DefaultStopTimeout {
		t.Errorf("StopTimeout = %v, want default", cfg.StopTimeout)
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv(EnvNodePath, "/env/node")
	t.Setenv(EnvAgentScript, "/env/agent.js")

	cfg, err := LoadFile(writeConfig(t, "node_path: /file/node\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.NodePath != "/env/node" {
		t.Errorf("NodePath = %q, want /env/node", cfg.NodePath)
	}
	if cfg.ScriptPath != "/env/agent.js" {
		t.Errorf("ScriptPath = %q, want /env/agent.js", cfg.ScriptPath)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "request_timeout: [", "failed to parse config"},
		{"bad duration", "request_timeout: soon\n", "failed to parse config"},
		{"negative timeout", "request_timeout: -1s\n", "request_timeout must not be negative"},
		{"negative stop timeout", "stop_timeout: -1s\n", "stop_timeout must not be negative"},
		{"unknown agent log level", "agent:\n  logs:\n    level: loud\n", "agent.logs.level"},
		{"negative line limit", "agent:\n  completion:\n    max_prefix_lines: -1\n", "line limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFile() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.SetFilePath(path)
	cfg.RequestTimeout = 12 * time.Second
	cfg.SetServerEndpoint("https://tabby.example.com")
	cfg.Agent.Logs = &agent.LogsConfig{Level: "error"}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "request_timeout: 12s") {
		t.Errorf("saved file should store durations as strings:\n%s", data)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.RequestTimeout != 12*time.Second {
		t.Errorf("RequestTimeout = %v, want 12s", loaded.RequestTimeout)
	}
	if ac := loaded.AgentConfig(); ac.Server == nil || ac.Server.Endpoint != "https://tabby.example.com" {
		t.Errorf("Server = %+v", ac.Server)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestSave_NoPath(t *testing.T) {
	if err := Default().Save(); err == nil {
		t.Error("Save() without a file path should fail")
	}
}

func TestLoad_UsesConfigDir(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	paths.Reset()
	t.Cleanup(paths.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := filepath.Join(home, ".tabby-client", "config.yaml")
	if cfg.FilePath() != want {
		t.Errorf("FilePath() = %q, want %q", cfg.FilePath(), want)
	}
}

func TestSave_KeepsEnvOverridesOutOfFile(t *testing.T) {
	path := writeConfig(t, "script_path: /file/tabby-agent.js\n")
	t.Setenv(EnvNodePath, "/env/node")
	t.Setenv(EnvAgentScript, "/env/agent.js")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	cfg.SetServerEndpoint("http://localhost:8080")
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if cfg.NodePath != "/env/node" || cfg.ScriptPath != "/env/agent.js" {
		t.Errorf("in-memory overrides lost after Save: node %q, script %q", cfg.NodePath, cfg.ScriptPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "/env/") {
		t.Errorf("environment values written to the file:\n%s", content)
	}
	if strings.Contains(content, "node_path") {
		t.Errorf("node_path should stay unset in the file:\n%s", content)
	}
	if !strings.Contains(content, "script_path: /file/tabby-agent.js") {
		t.Errorf("file script_path should be preserved:\n%s", content)
	}
	if !strings.Contains(content, "http://localhost:8080") {
		t.Errorf("endpoint change should be saved:\n%s", content)
	}
}

func TestSave_KeepsExplicitChangeOverEnv(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv(EnvNodePath, "/env/node")
	t.Setenv(EnvAgentScript, "")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	cfg.NodePath = "/chosen/node"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "node_path: /chosen/node") {
		t.Errorf("explicit node_path should be saved:\n%s", data)
	}
}
