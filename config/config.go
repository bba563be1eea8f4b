// Package config loads the tabby client settings from config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zhubert/tabby-agent/agent"
	"github.com/zhubert/tabby-agent/paths"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultStopTimeout    = 2 * time.Second
)

// Environment variables that override the file.
const (
	EnvNodePath    = "TABBY_NODE_PATH"
	EnvAgentScript = "TABBY_AGENT_SCRIPT"
)

// Config holds the client settings.
type Config struct {
	NodePath       string        `yaml:"node_path,omitempty"`   // node executable; looked up on PATH when empty
	ScriptPath     string        `yaml:"script_path,omitempty"` // tabby-agent.js; defaults to the data dir copy
	RequestTimeout time.Duration `yaml:"request_timeout"`       // per request, 0 disables
	StopTimeout    time.Duration `yaml:"stop_timeout"`          // grace period before the agent is killed
	Debug          bool          `yaml:"debug,omitempty"`       // debug level logging
	Log            LogConfig     `yaml:"log,omitempty"`         // log file rotation
	Agent          agent.Config  `yaml:"agent,omitempty"`       // forwarded to the agent on initialize

	mu       sync.RWMutex
	filePath string
	env      envOverrides
}

// envOverrides remembers which fields came from the environment and the
// file values they replaced, so Save writes the file values back.
type envOverrides struct {
	nodePath, fileNodePath     string
	scriptPath, fileScriptPath string
}

// LogConfig controls log file rotation.
type LogConfig struct {
	MaxSizeMB  int `yaml:"max_size_mb,omitempty"`
	MaxBackups int `yaml:"max_backups,omitempty"`
	MaxAgeDays int `yaml:"max_age_days,omitempty"`
}

// Default returns a config with default values and no file path.
func Default() *Config {
	return &Config{
		RequestTimeout: DefaultRequestTimeout,
		StopTimeout:    DefaultStopTimeout,
	}
}

// Load reads config.yaml from the config directory. A missing file yields
// the defaults.
func Load() (*Config, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config from path, applies environment overrides and
// validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.filePath = path

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvNodePath); v != "" {
		cfg.env.nodePath, cfg.env.fileNodePath = v, cfg.NodePath
		cfg.NodePath = v
	}
	if v := os.Getenv(EnvAgentScript); v != "" {
		cfg.env.scriptPath, cfg.env.fileScriptPath = v, cfg.ScriptPath
		cfg.ScriptPath = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validAgentLogLevels = map[string]bool{"": true, "debug": true, "error": true, "silent": true}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.StopTimeout < 0 {
		return fmt.Errorf("stop_timeout must not be negative, got %s", c.StopTimeout)
	}
	if c.Agent.Logs != nil && !validAgentLogLevels[c.Agent.Logs.Level] {
		return fmt.Errorf("agent.logs.level must be one of debug, error, silent; got %q", c.Agent.Logs.Level)
	}
	if c.Agent.Completion != nil && (c.Agent.Completion.MaxPrefixLines < 0 || c.Agent.Completion.MaxSuffixLines < 0) {
		return fmt.Errorf("agent.completion line limits must not be negative")
	}
	return nil
}

// Save writes the config to its file, replacing it atomically.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filePath == "" {
		return fmt.Errorf("config has no file path")
	}
	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := c.marshalLocked()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.filePath)
}

// marshalLocked encodes the config with environment overrides replaced by
// the values they shadowed. Fields changed since loading are kept. Caller
// must hold mu.
func (c *Config) marshalLocked() ([]byte, error) {
	nodePath, scriptPath := c.NodePath, c.ScriptPath
	defer func() {
		c.NodePath, c.ScriptPath = nodePath, scriptPath
	}()

	if c.env.nodePath != "" && c.NodePath == c.env.nodePath {
		c.NodePath = c.env.fileNodePath
	}
	if c.env.scriptPath != "" && c.ScriptPath == c.env.scriptPath {
		c.ScriptPath = c.env.fileScriptPath
	}
	return yaml.Marshal(c)
}

// FilePath returns where Save writes.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// SetFilePath sets the config file path (for testing).
func (c *Config) SetFilePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filePath = path
}

// AgentConfig returns a copy of the agent section.
func (c *Config) AgentConfig() agent.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Agent
}

// SetServerEndpoint points the agent at a Tabby server.
func (c *Config) SetServerEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Agent.Server = &agent.ServerConfig{Endpoint: endpoint}
}
