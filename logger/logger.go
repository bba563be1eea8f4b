// Package logger owns the process-wide slog logger. Output goes to a
// size-rotated file so a long-running editor session cannot fill the disk.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zhubert/tabby-agent/paths"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls rotation of the log file. Zero values use lumberjack's
// defaults (100 MB, keep every backup, no age limit).
type Options struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	root     *slog.Logger
	levelVar = new(slog.LevelVar)
	sink     io.Closer
	mu       sync.Mutex
	logPath  string
	initDone bool
)

// DefaultLogPath returns the log file used when Init was never called.
func DefaultLogPath() (string, error) {
	dir, err := paths.LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tabby.log"), nil
}

// RunLogPath returns a per-run log file, used by the CLI so concurrent
// invocations do not share a rotating file.
func RunLogPath(runID string) (string, error) {
	dir, err := paths.LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("tabby-%s.log", runID)), nil
}

// SetDebug enables or disables debug level logging
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Init initializes the logger with a custom path and default rotation.
// Later calls are no-ops until Reset.
func Init(path string) error {
	return InitWithOptions(path, Options{})
}

// InitWithOptions is Init with explicit rotation settings.
func InitWithOptions(path string, opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}
	return openLocked(path, opts)
}

// openLocked installs the root logger writing to path. Caller must hold mu.
func openLocked(path string, opts Options) error {
	var w io.Writer
	if path == os.DevNull {
		// Rotating /dev/null would try to rename it.
		w = io.Discard
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		f := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		sink = f
		w = f
	}

	logPath = path
	root = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
	initDone = true

	root.Info("logger initialized", "path", path)
	return nil
}

// ensureInit falls back to the default path. Caller must hold mu.
func ensureInit() {
	if initDone {
		return
	}

	defaultPath, err := DefaultLogPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to get default log path: %v\n", err)
		return
	}
	if err := openLocked(defaultPath, Options{}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// Path returns the file the logger writes to, or "" before initialization.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Get returns the root logger instance.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	ensureInit()

	if root == nil {
		return slog.Default()
	}
	return root
}

// WithComponent returns a logger tagged with component=name.
//
//	log := logger.WithComponent("process")
//	log.Info("agent started", "pid", pid)
//	// level=INFO msg="agent started" component=process pid=4242
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if sink != nil {
		sink.Close()
		sink = nil
	}
	root = nil
}

// Reset resets the logger state, allowing reinitialization.
// This is primarily for testing purposes.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if sink != nil {
		sink.Close()
		sink = nil
	}
	initDone = false
	logPath = ""
	root = nil
	levelVar = new(slog.LevelVar)
}

// ClearLogs removes tabby log files, including rotated backups, from the
// logs directory. It returns how many files were removed.
func ClearLogs() (int, error) {
	dir, err := paths.LogsDir()
	if err != nil {
		return 0, fmt.Errorf("failed to get logs directory: %w", err)
	}

	count := 0
	for _, pattern := range []string{"tabby*.log", "tabby*.log.gz"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return count, err
		}
		for _, m := range matches {
			if err := os.Remove(m); err == nil {
				count++
			} else if !os.IsNotExist(err) {
				return count, err
			}
		}
	}
	return count, nil
}
