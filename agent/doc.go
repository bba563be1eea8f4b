// Package agent is the client side of the tabby-agent stdio protocol.
//
// # Wire Format
//
// Every message is one line of JSON. Requests are written as
//
//	[id, {"func": "getCompletions", "args": [...]}]
//
// and the agent answers with [id, payload] using the same id. Frames with id
// 0 are notifications that the agent sends on its own:
//
//	[0, {"event": "statusChanged", "status": "ready"}]
//	[0, {"event": "configUpdated", ...}]
//	[0, {"event": "authRequired"}]
//
// Agent output may arrive in arbitrary chunks. Lines are reassembled before
// decoding, and lines that do not decode to a two element array with a
// numeric id are logged and dropped without affecting anything else.
//
// # Client
//
// Client wraps any io.ReadWriteCloser (usually a process.Manager):
//
//	c := agent.New(transport, agent.Options{Logger: log, RequestTimeout: 30 * time.Second})
//	defer c.Close()
//	ok, err := c.Initialize(ctx, cfg, agent.ClientIdentifier("tabby", "com.tabbyml.tabby-go", version))
//	resp, err := c.GetCompletions(ctx, agent.CompletionRequest{...})
//
// Call is the generic form behind the typed methods:
//
//	ack, err := agent.Call[bool](ctx, c, "postEvent", event)
//
// Request IDs start at 1 and increase for the lifetime of the client. Any
// number of goroutines may call concurrently; each call resolves exactly
// once, with the response carrying its own id, a *DecodeError if that
// response does not fit the result type, a *CancelledError, or ErrClosed.
//
// # Cancellation
//
// When the caller's context is done (or Options.RequestTimeout expires) the
// call returns immediately. Separately, and without waiting, the client sends
//
//	[newID, {"func": "cancelRequest", "args": [originalID]}]
//
// whose response is only logged. A response for the original id that arrives
// later is discarded.
//
// # Status and Auth Signal
//
// Status starts as StatusNotInitialized and only changes on statusChanged
// notifications; unknown status values map back to StatusNotInitialized.
// WatchStatus delivers the current value and then each change, keeping only
// the latest value for slow readers. AuthRequired yields a signal per
// authRequired notification, coalescing bursts.
//
// # Shutdown
//
// Close rejects every pending request with ErrClosed and closes the
// transport. The same happens when the agent's output reaches end of stream.
package agent
