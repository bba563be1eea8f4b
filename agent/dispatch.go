package agent

import "encoding/json"

// handleLine decodes one line from the agent and routes it. Lines that are
// not a two element array with a numeric first element are logged and
// dropped; nothing else is affected.
func (c *Client) handleLine(line string) {
	var frame []json.RawMessage
	if err := json.Unmarshal([]byte(line), &frame); err != nil {
		c.log.Warn("failed to parse agent output", "output", line, "error", err)
		return
	}
	if len(frame) != 2 {
		c.log.Warn("failed to parse agent output", "output", line, "error", "frame is not a two element array")
		return
	}

	var head any
	if err := json.Unmarshal(frame[0], &head); err != nil {
		c.log.Warn("failed to parse agent output", "output", line, "error", err)
		return
	}
	num, ok := head.(float64)
	if !ok {
		c.log.Warn("failed to parse agent output", "output", line, "error", "request id is not a number")
		return
	}

	id := int(num)
	if id == 0 {
		c.handleNotification(frame[1])
		return
	}

	if !c.pending.resolve(id, frame[1]) {
		c.log.Debug("discarding response for unknown request", "id", id)
	}
}

// handleNotification interprets a server initiated event. Only statusChanged
// mutates state; authRequired raises the auth signal.
func (c *Client) handleNotification(payload json.RawMessage) {
	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil || event == nil {
		c.log.Warn("dropping notification that is not an object", "payload", string(payload))
		return
	}

	name, _ := event["event"].(string)
	switch name {
	case EventStatusChanged:
		raw, _ := event["status"].(string)
		status := ParseStatus(raw)
		if c.status.set(status) {
			c.log.Info("agent status changed", "status", status.String())
		} else {
			c.log.Debug("agent notification", "event", name, "status", raw)
		}

	case EventConfigUpdated:
		c.log.Debug("agent notification", "event", name)

	case EventAuthRequired:
		c.log.Info("agent notification", "event", name)
		select {
		case c.authRequired <- struct{}{}:
		default:
		}

	default:
		c.log.Warn("unknown agent notification", "event", event["event"])
	}
}
