package agent

import (
	"encoding/json"
	"fmt"
	"sync"
)

// pendingRequest is the continuation of one in-flight request.
// Exactly one of resolve or fail is invoked, at most once.
type pendingRequest struct {
	resolve func(raw json.RawMessage)
	fail    func(err error)
}

// pendingTable allocates request IDs and correlates responses with the
// requests that produced them. Callers allocate and register from any
// goroutine while the reader resolves; a single mutex guards both.
type pendingTable struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		nextID:  1,
		entries: make(map[int]pendingRequest),
	}
}

// allocate returns the next request ID. IDs start at 1 and strictly increase;
// 0 is reserved for notifications.
func (t *pendingTable) allocate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	return id
}

func (t *pendingTable) register(id int, req pendingRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	t.entries[id] = req
	return nil
}

// resolve removes the entry for id and hands it the raw payload.
// Unknown IDs (already cancelled, or never issued) are discarded and
// reported as false.
func (t *pendingTable) resolve(id int, raw json.RawMessage) bool {
	req, ok := t.take(id)
	if !ok {
		return false
	}
	if req.resolve != nil {
		req.resolve(raw)
	}
	return true
}

// cancel drops the entry for id so that a late response is discarded.
// Returns false when there was nothing to drop.
func (t *pendingTable) cancel(id int) bool {
	_, ok := t.take(id)
	return ok
}

// failAll removes every entry and fails each with err. It returns the
// number of requests that were failed.
func (t *pendingTable) failAll(err error) int {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[int]pendingRequest)
	t.mu.Unlock()

	for _, req := range entries {
		if req.fail != nil {
			req.fail(err)
		}
	}
	return len(entries)
}

// len reports how many requests are in flight.
func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *pendingTable) take(id int) (pendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return req, ok
}
