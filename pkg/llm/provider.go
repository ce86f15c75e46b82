package llm

import (
	"context"
)

type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Request is a provider-agnostic chat completion request. Model overrides
// the provider's configured model when set; MaxTokens likewise.
type Request struct {
	Model      string
	Messages   []Message
	Tools      []Tool
	ToolChoice *ToolChoice
	MaxTokens  int
	N          int
}

type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolChoice forces the model to call the named tool.
type ToolChoice struct {
	Name string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
	FinishOther     FinishReason = "other"
)

type Completion struct {
	Choices []Choice
}

type Choice struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
}
