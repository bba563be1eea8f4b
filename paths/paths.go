// Package paths resolves where the tabby client keeps its files.
//
// Two layouts are supported:
//
//   - Home layout: everything under ~/.tabby-client/. Used when that
//     directory already exists, or when no XDG variable is set.
//   - XDG layout: config.yaml under $XDG_CONFIG_HOME/tabby-client,
//     node_scripts/ under $XDG_DATA_HOME/tabby-client and logs/ under
//     $XDG_STATE_HOME/tabby-client. Unset variables fall back to their
//     XDG defaults.
package paths

import (
	"os"
	"path/filepath"
	"sync"
)

const appDir = "tabby-client"

// Layout is a resolved set of base directories.
type Layout struct {
	Config string
	Data   string
	State  string
	// Home is true for the single-directory ~/.tabby-client layout.
	Home bool
}

var (
	mu     sync.Mutex
	cached *Layout
)

// Resolve computes the layout once per process and caches it.
func Resolve() (Layout, error) {
	mu.Lock()
	defer mu.Unlock()

	if cached != nil {
		return *cached, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Layout{}, err
	}
	l := detect(home)
	cached = &l
	return l, nil
}

func detect(home string) Layout {
	homeDir := filepath.Join(home, "."+appDir)
	homeLayout := Layout{Config: homeDir, Data: homeDir, State: homeDir, Home: true}

	if info, err := os.Stat(homeDir); err == nil && info.IsDir() {
		return homeLayout
	}

	config := os.Getenv("XDG_CONFIG_HOME")
	data := os.Getenv("XDG_DATA_HOME")
	state := os.Getenv("XDG_STATE_HOME")
	if config == "" && data == "" && state == "" {
		return homeLayout
	}

	return Layout{
		Config: filepath.Join(orDefault(config, filepath.Join(home, ".config")), appDir),
		Data:   filepath.Join(orDefault(data, filepath.Join(home, ".local", "share")), appDir),
		State:  filepath.Join(orDefault(state, filepath.Join(home, ".local", "state")), appDir),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ConfigFilePath returns the path of config.yaml.
func ConfigFilePath() (string, error) {
	l, err := Resolve()
	if err != nil {
		return "", err
	}
	return filepath.Join(l.Config, "config.yaml"), nil
}

// NodeScriptsDir returns the directory bundled agent scripts are installed in.
func NodeScriptsDir() (string, error) {
	l, err := Resolve()
	if err != nil {
		return "", err
	}
	return filepath.Join(l.Data, "node_scripts"), nil
}

// AgentScriptPath returns the default location of tabby-agent.js.
func AgentScriptPath() (string, error) {
	dir, err := NodeScriptsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tabby-agent.js"), nil
}

// LogsDir returns the directory for log files.
func LogsDir() (string, error) {
	l, err := Resolve()
	if err != nil {
		return "", err
	}
	return filepath.Join(l.State, "logs"), nil
}

// Reset clears the cached layout. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cached = nil
}
