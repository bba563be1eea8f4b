package agent

import "fmt"

// Methods understood by tabby-agent.
const (
	MethodInitialize       = "initialize"
	MethodUpdateConfig     = "updateConfig"
	MethodGetCompletions   = "getCompletions"
	MethodPostEvent        = "postEvent"
	MethodRequestAuthURL   = "requestAuthUrl"
	MethodWaitForAuthToken = "waitForAuthToken"
	MethodCancelRequest    = "cancelRequest"
)

// Notification event names sent by the agent with request ID 0.
const (
	EventStatusChanged = "statusChanged"
	EventConfigUpdated = "configUpdated"
	EventAuthRequired  = "authRequired"
)

// Config is the agent configuration sent with initialize and updateConfig.
// Nil sections are omitted so the agent keeps its own defaults for them.
type Config struct {
	Server                 *ServerConfig                 `json:"server,omitempty" yaml:"server,omitempty"`
	Completion             *CompletionConfig             `json:"completion,omitempty" yaml:"completion,omitempty"`
	Logs                   *LogsConfig                   `json:"logs,omitempty" yaml:"logs,omitempty"`
	AnonymousUsageTracking *AnonymousUsageTrackingConfig `json:"anonymousUsageTracking,omitempty" yaml:"anonymous_usage_tracking,omitempty"`
}

type ServerConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type CompletionConfig struct {
	MaxPrefixLines int `json:"maxPrefixLines" yaml:"max_prefix_lines"`
	MaxSuffixLines int `json:"maxSuffixLines" yaml:"max_suffix_lines"`
}

type LogsConfig struct {
	Level string `json:"level" yaml:"level"`
}

type AnonymousUsageTrackingConfig struct {
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// initializeParams is the single argument of the initialize method.
type initializeParams struct {
	Config Config `json:"config"`
	Client string `json:"client"`
}

// CompletionRequest describes the document and cursor to complete at.
// Position is an offset into Text.
type CompletionRequest struct {
	Filepath string `json:"filepath"`
	Language string `json:"language"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

type CompletionResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// EventType is the kind of user interaction reported with postEvent.
type EventType string

const (
	EventView   EventType = "view"
	EventSelect EventType = "select"
)

type LogEventRequest struct {
	Type         EventType `json:"type"`
	CompletionID string    `json:"completion_id"`
	ChoiceIndex  int       `json:"choice_index"`
}

type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
	Code    string `json:"code"`
}

// ClientIdentifier builds the client string reported to the agent on
// initialize, e.g. "tabby-cli com.tabbyml.tabby-go 1.2.0".
func ClientIdentifier(app, pluginID, version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("%s %s %s", app, pluginID, version)
}
