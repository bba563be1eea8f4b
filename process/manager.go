// Package process runs the tabby-agent node process and exposes its stdio as
// an io.ReadWriteCloser.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultStopTimeout is how long Stop waits after closing stdin before the
// process is killed.
const DefaultStopTimeout = 2 * time.Second

// stderrTailLines is how many stderr lines are kept for Stderr and OnExit.
const stderrTailLines = 50

// ErrNotRunning is returned by Write when the process is not running.
var ErrNotRunning = errors.New("agent process not running")

// Config describes how to launch the agent.
type Config struct {
	Command     string        // executable, usually node
	Script      string        // passed as the first argument when set
	Args        []string      // extra arguments after the script
	Dir         string        // working directory; inherited when empty
	Env         []string      // added to the current environment
	StopTimeout time.Duration // DefaultStopTimeout when zero
}

// Callbacks are invoked from the manager's goroutines.
type Callbacks struct {
	// OnExit is called once when the process exits, whether it was stopped or
	// died on its own. stderr holds the last lines the process wrote there.
	OnExit func(err error, stderr string)
}

// BuildCommandArgs returns the argument list passed to Config.Command.
func BuildCommandArgs(config Config) []string {
	var args []string
	if config.Script != "" {
		args = append(args, config.Script)
	}
	return append(args, config.Args...)
}

// Manager owns one agent process. Read returns the process stdout, Write
// feeds its stdin and Close stops it.
type Manager struct {
	config    Config
	callbacks Callbacks
	log       *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   *os.File
	stderr   *tailWriter
	running  bool
	stopped  bool // termination requested, by Stop or ctx
	stopRan  bool // Stop has run for this process
	exitErr  error
	waitDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewManager creates a Manager. The process is not started until Start.
func NewManager(config Config, callbacks Callbacks, log *slog.Logger) *Manager {
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultStopTimeout
	}
	return &Manager{
		config:    config,
		callbacks: callbacks,
		log:       log,
	}
}

// Start launches the process. Cancelling ctx stops it the same way Stop
// does. Starting a running manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if m.config.Command == "" {
		return fmt.Errorf("no command configured")
	}

	args := BuildCommandArgs(m.config)
	m.log.Debug("starting process", "command", m.config.Command+" "+strings.Join(args, " "))
	startTime := time.Now()

	cmd := exec.Command(m.config.Command, args...)
	cmd.Dir = m.config.Dir
	if len(m.config.Env) > 0 {
		cmd.Env = append(os.Environ(), m.config.Env...)
	}
	cmd.WaitDelay = m.config.StopTimeout

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	// stdout is an os.Pipe we own so Wait never closes it under a reader.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	stderr := newTailWriter(m.log, stderrTailLines)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutR.Close()
		stdoutW.Close()
		m.log.Error("failed to start process", "error", err)
		return fmt.Errorf("failed to start agent: %w", err)
	}
	stdoutW.Close()

	m.cmd = cmd
	m.stdin = stdin
	m.stdout = stdoutR
	m.stderr = stderr
	m.running = true
	m.stopped = false
	m.stopRan = false
	m.exitErr = nil
	m.waitDone = make(chan struct{})
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.log.Info("process started", "elapsed", time.Since(startTime), "pid", cmd.Process.Pid)

	g := new(errgroup.Group)
	g.Go(m.monitorExit)
	g.Go(m.watchContext)
	m.group = g
	return nil
}

// Stop closes stdin, waits up to the stop timeout for the process to exit and
// kills it otherwise. It returns after all manager goroutines have finished.
// Safe to call multiple times.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cmd == nil || m.stopRan {
		m.mu.Unlock()
		return
	}
	m.stopRan = true
	m.stopped = true
	cancel := m.cancel
	group := m.group
	m.mu.Unlock()

	m.log.Debug("stopping process")
	cancel()
	if err := group.Wait(); err != nil {
		m.log.Debug("process goroutine error", "error", err)
	}

	m.mu.Lock()
	if m.stdout != nil {
		m.stdout.Close()
	}
	m.mu.Unlock()
	m.log.Debug("process stopped")
}

// Close stops the process. It implements io.Closer.
func (m *Manager) Close() error {
	m.Stop()
	return nil
}

// Read reads from the process stdout. It returns io.EOF once the process has
// exited and its output is consumed, or after Stop.
func (m *Manager) Read(p []byte) (int, error) {
	m.mu.Lock()
	stdout := m.stdout
	m.mu.Unlock()

	if stdout == nil {
		return 0, io.EOF
	}
	n, err := stdout.Read(p)
	if errors.Is(err, os.ErrClosed) {
		err = io.EOF
	}
	return n, err
}

// Write writes to the process stdin.
func (m *Manager) Write(p []byte) (int, error) {
	m.mu.Lock()
	stdin := m.stdin
	running := m.running && !m.stopped
	m.mu.Unlock()

	if !running || stdin == nil {
		return 0, ErrNotRunning
	}
	n, err := stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write to agent: %w", err)
	}
	return n, nil
}

// IsRunning returns whether the process is running.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Pid returns the process ID, or 0 before Start.
func (m *Manager) Pid() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil || m.cmd.Process == nil {
		return 0
	}
	return m.cmd.Process.Pid
}

// Stderr returns the most recent stderr lines.
func (m *Manager) Stderr() string {
	m.mu.Lock()
	stderr := m.stderr
	m.mu.Unlock()
	if stderr == nil {
		return ""
	}
	return stderr.Tail()
}

// ExitErr returns the error from the last exit, nil while running or after a
// clean exit.
func (m *Manager) ExitErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitErr
}

// Interrupt sends SIGINT to the process.
func (m *Manager) Interrupt() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.cmd == nil || m.cmd.Process == nil {
		return ErrNotRunning
	}
	m.log.Info("sending SIGINT", "pid", m.cmd.Process.Pid)
	if err := m.cmd.Process.Signal(syscall.SIGINT); err != nil {
		return fmt.Errorf("failed to send interrupt signal: %w", err)
	}
	return nil
}

// monitorExit is the sole caller of cmd.Wait.
func (m *Manager) monitorExit() error {
	m.mu.Lock()
	cmd := m.cmd
	waitDone := m.waitDone
	stderr := m.stderr
	m.mu.Unlock()

	err := cmd.Wait()
	stderr.Flush()

	m.mu.Lock()
	m.running = false
	m.exitErr = err
	stopped := m.stopped
	m.mu.Unlock()
	close(waitDone)

	if stopped {
		m.log.Debug("process exited", "error", err)
	} else {
		m.log.Warn("process exited unexpectedly", "error", err, "stderr", stderr.Tail())
	}

	if m.callbacks.OnExit != nil {
		m.callbacks.OnExit(err, stderr.Tail())
	}
	return nil
}

// watchContext terminates the process when the manager context is cancelled
// and returns early when the process exits on its own.
func (m *Manager) watchContext() error {
	m.mu.Lock()
	ctx := m.ctx
	waitDone := m.waitDone
	m.mu.Unlock()

	select {
	case <-waitDone:
		return nil
	case <-ctx.Done():
	}
	m.terminate()
	return nil
}

// terminate closes stdin so the agent can exit on EOF, then kills it after
// the stop timeout.
func (m *Manager) terminate() {
	m.mu.Lock()
	m.stopped = true
	if m.stdin != nil {
		m.stdin.Close()
	}
	cmd := m.cmd
	waitDone := m.waitDone
	m.mu.Unlock()

	timer := time.NewTimer(m.config.StopTimeout)
	defer timer.Stop()

	select {
	case <-waitDone:
		m.log.Debug("process exited gracefully")
	case <-timer.C:
		m.log.Debug("force killing process", "pid", cmd.Process.Pid)
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			m.log.Warn("failed to kill process", "error", err)
		}
		<-waitDone
	}
}
