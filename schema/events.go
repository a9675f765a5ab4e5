package schema

import "encoding/json"

// StreamEventType is the discriminator on chat stream records.
type StreamEventType string

const (
	// EventContent carries an incremental content delta.
	EventContent StreamEventType = "content"
	// EventToolCall carries a tool invocation request.
	EventToolCall StreamEventType = "tool_call"
	// EventError carries a server-reported error.
	EventError StreamEventType = "error"
	// EventDone marks the end of a turn.
	EventDone StreamEventType = "done"
)

// StreamEvent is the decoded shape of one `data: <json>` record.
type StreamEvent struct {
	Type       StreamEventType   `json:"type"`
	Content    string            `json:"content,omitempty"`
	ToolCall   *ToolCallEnvelope `json:"tool_call,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	Raw        json.RawMessage   `json:"-"`
}

// ToolCallEnvelope is the wire nesting around a function call.
type ToolCallEnvelope struct {
	Function FunctionCall `json:"function"`
}

// FunctionCall names a tool and carries its raw argument text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is the normalized tool invocation handed to callers.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// TurnResult is delivered once per completed turn.
type TurnResult struct {
	Content   string
	ToolCalls []ToolCall
	Metadata  map[string]any
}

// ChatRequest is the POST body for one streaming turn.
type ChatRequest struct {
	Prompt         string         `json:"prompt"`
	ConversationID ConversationID `json:"conversation_id"`
	ProfileID      ProfileID      `json:"profile_id"`
	InterfaceType  string         `json:"interface_type"`
}

// Normalize applies defaults and validates the request.
func (r ChatRequest) Normalize() (ChatRequest, error) {
	if r.Prompt == "" {
		return ChatRequest{}, ErrEmptyPrompt
	}
	if r.ProfileID == "" {
		r.ProfileID = DefaultProfileID
	}
	if r.InterfaceType == "" {
		r.InterfaceType = DefaultInterfaceType
	}
	return r, nil
}
