package agent

import (
	"context"
	"encoding/json"
)

// Initialize configures the agent and identifies the client to it. See
// ClientIdentifier for the expected format of client.
func (c *Client) Initialize(ctx context.Context, cfg Config, client string) (bool, error) {
	return Call[bool](ctx, c, MethodInitialize, initializeParams{Config: cfg, Client: client})
}

func (c *Client) UpdateConfig(ctx context.Context, cfg Config) (bool, error) {
	return Call[bool](ctx, c, MethodUpdateConfig, cfg)
}

// GetCompletions returns nil without error when the agent has no completion
// for the request.
func (c *Client) GetCompletions(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return Call[*CompletionResponse](ctx, c, MethodGetCompletions, req)
}

func (c *Client) PostEvent(ctx context.Context, event LogEventRequest) (bool, error) {
	return Call[bool](ctx, c, MethodPostEvent, event)
}

// RequestAuthURL returns nil without error when the server does not require
// authentication.
func (c *Client) RequestAuthURL(ctx context.Context) (*AuthURLResponse, error) {
	return Call[*AuthURLResponse](ctx, c, MethodRequestAuthURL)
}

// WaitForAuthToken blocks until the user finished the flow started with
// RequestAuthURL, or ctx is done.
func (c *Client) WaitForAuthToken(ctx context.Context, code string) error {
	_, err := Call[json.RawMessage](ctx, c, MethodWaitForAuthToken, code)
	return err
}
