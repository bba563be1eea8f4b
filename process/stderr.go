package process

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// tailWriter logs each stderr line and keeps the last few for diagnostics.
type tailWriter struct {
	log *slog.Logger
	max int

	mu      sync.Mutex
	partial bytes.Buffer
	lines   []string
}

func newTailWriter(log *slog.Logger, max int) *tailWriter {
	return &tailWriter{log: log, max: max}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial.Write(p)
	for {
		i := bytes.IndexByte(w.partial.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.partial.Next(i+1)), "\r\n")
		w.addLocked(line)
	}
	return len(p), nil
}

// Flush records an unterminated last line.
func (w *tailWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.partial.Len() > 0 {
		w.addLocked(w.partial.String())
		w.partial.Reset()
	}
}

func (w *tailWriter) addLocked(line string) {
	if line == "" {
		return
	}
	w.log.Debug("agent stderr", "line", line)
	w.lines = append(w.lines, line)
	if len(w.lines) > w.max {
		w.lines = w.lines[len(w.lines)-w.max:]
	}
}

// Tail returns the retained lines joined by newlines.
func (w *tailWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.lines, "\n")
}
