package agent

import "sync"

// Status is the agent state last reported through a statusChanged
// notification.
type Status int

const (
	StatusNotInitialized Status = iota
	StatusReady
	StatusDisconnected
	StatusUnauthorized
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusDisconnected:
		return "disconnected"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "notInitialized"
	}
}

// ParseStatus maps the wire value of a statusChanged notification.
// Unknown values map to StatusNotInitialized.
func ParseStatus(s string) Status {
	switch s {
	case "ready":
		return StatusReady
	case "disconnected":
		return StatusDisconnected
	case "unauthorized":
		return StatusUnauthorized
	default:
		return StatusNotInitialized
	}
}

// statusTracker holds the current status and fans changes out to watchers.
// The reader goroutine is the only writer. Each watcher channel holds at most
// the latest value, so a slow watcher skips intermediate states instead of
// blocking the reader.
type statusTracker struct {
	mu       sync.Mutex
	current  Status
	watchers map[int]chan Status
	nextID   int
	stopped  bool
}

func newStatusTracker() *statusTracker {
	return &statusTracker{watchers: make(map[int]chan Status)}
}

func (t *statusTracker) get() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// set stores s and reports whether it differed from the previous value.
// Watchers are only notified of actual changes.
func (t *statusTracker) set(s Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == s {
		return false
	}
	t.current = s
	for _, ch := range t.watchers {
		offerLatest(ch, s)
	}
	return true
}

// watch registers a watcher that immediately receives the current status.
// The returned stop function closes the channel; it is safe to call more
// than once.
func (t *statusTracker) watch() (<-chan Status, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Status, 1)
	if t.stopped {
		ch <- t.current
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.watchers[id] = ch
	ch <- t.current

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, ok := t.watchers[id]; ok {
				delete(t.watchers, id)
				close(ch)
			}
		})
	}
}

// stop closes every watcher channel. Later watchers get the final status
// and a closed channel.
func (t *statusTracker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	for id, ch := range t.watchers {
		close(ch)
		delete(t.watchers, id)
	}
}

// offerLatest replaces whatever is buffered in ch with s without blocking.
func offerLatest(ch chan Status, s Status) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
