package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// requestBody is the second element of an outbound frame.
type requestBody struct {
	Func string `json:"func"`
	Args []any  `json:"args"`
}

// outboundMessage is serialized as the JSON array [id, {func, args}].
type outboundMessage struct {
	ID   int
	Body requestBody
}

func (m outboundMessage) MarshalJSON() ([]byte, error) {
	args := m.Body.Args
	if args == nil {
		args = []any{}
	}
	return json.Marshal([]any{m.ID, requestBody{Func: m.Body.Func, Args: args}})
}

// frameWriter writes one frame per line. Frames go out in the order their
// slots were reserved, each in a single Write, so concurrent sends never
// interleave.
type frameWriter struct {
	w io.Writer

	mu      sync.Mutex
	turn    *sync.Cond
	next    uint64 // next slot to hand out
	serving uint64 // slot allowed to write
}

func newFrameWriter(w io.Writer) *frameWriter {
	fw := &frameWriter{w: w}
	fw.turn = sync.NewCond(&fw.mu)
	return fw
}

// reserve claims the next position in the write order. It never blocks.
func (fw *frameWriter) reserve() uint64 {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	slot := fw.next
	fw.next++
	return slot
}

// send serializes msg and writes it followed by a newline. It does not wait
// for any acknowledgement from the agent.
func (fw *frameWriter) send(msg outboundMessage) ([]byte, error) {
	return fw.sendAt(fw.reserve(), msg)
}

// sendAt writes msg once every earlier slot has been written or abandoned.
// Every reserved slot must be passed to sendAt exactly once.
func (fw *frameWriter) sendAt(slot uint64, msg outboundMessage) ([]byte, error) {
	data, marshalErr := json.Marshal(msg)

	fw.mu.Lock()
	for fw.serving != slot {
		fw.turn.Wait()
	}
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		fw.serving++
		fw.turn.Broadcast()
		fw.mu.Unlock()
	}()

	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", msg.Body.Func, marshalErr)
	}
	if _, err := fw.w.Write(append(data, '\n')); err != nil {
		return data, fmt.Errorf("write %s request: %w", msg.Body.Func, err)
	}
	return data, nil
}
