// Package inference abstracts the upstream model provider behind a
// normalized Client interface so the specialist runner, the guardrail
// classifiers and the readiness probe do not branch per vendor.
package inference

import (
	"context"
	"fmt"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message is one normalized transcript entry sent to the provider. Assistant
// messages may carry tool calls; tool messages carry the result for the
// call identified by ToolCallID.
type Message struct {
	Role       string     `json:"role"` // "user", "assistant" or "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Request captures the normalized model input produced by the runner.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Completion is the normalized provider output for one model call.
type Completion struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Info contains metadata about a client implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// Client is the minimal interface required to drive generation and probe
// upstream health.
type Client interface {
	// Complete performs one non-streaming model call. Failures are wrapped
	// in *UpstreamError when they are transient per the retry policy.
	Complete(ctx context.Context, req Request) (*Completion, error)

	// Ping verifies upstream reachability for readiness checks.
	Ping(ctx context.Context) error

	// Info returns information about the client implementation.
	Info() Info
}

// MockClient is a lightweight in-memory Client useful for tests. Scripted
// results are consumed in order; once exhausted it echoes the last user
// message.
type MockClient struct {
	info     Info
	scripted []scriptedResult
	Requests []Request
	PingErr  error
}

type scriptedResult struct {
	completion *Completion
	err        error
}

// NewMockClient constructs a MockClient.
func NewMockClient() *MockClient {
	return &MockClient{info: Info{Name: "mock-model", Provider: "mock"}}
}

// QueueText schedules a plain text completion.
func (m *MockClient) QueueText(text string) *MockClient {
	m.scripted = append(m.scripted, scriptedResult{completion: &Completion{Text: text}})
	return m
}

// QueueCompletion schedules a full completion, tool calls included.
func (m *MockClient) QueueCompletion(c Completion) *MockClient {
	cp := c
	m.scripted = append(m.scripted, scriptedResult{completion: &cp})
	return m
}

// QueueError schedules a failed call.
func (m *MockClient) QueueError(err error) *MockClient {
	m.scripted = append(m.scripted, scriptedResult{err: err})
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(_ context.Context, req Request) (*Completion, error) {
	m.Requests = append(m.Requests, req)
	if len(m.scripted) > 0 {
		next := m.scripted[0]
		m.scripted = m.scripted[1:]
		if next.err != nil {
			return nil, next.err
		}
		return next.completion, nil
	}
	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Content
		}
	}
	return &Completion{Text: fmt.Sprintf("Mock response to: %s", lastUser)}, nil
}

// Ping implements Client.
func (m *MockClient) Ping(context.Context) error { return m.PingErr }

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }
