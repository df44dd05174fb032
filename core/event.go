package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies the entries of a turn's audit trail.
type EventKind string

const (
	// EventMessage is a visible assistant message authored by a specialist.
	EventMessage EventKind = "message"
	// EventHandoff records a transfer of conversation control between
	// specialists. Metadata carries source_agent and target_agent.
	EventHandoff EventKind = "handoff"
	// EventToolCall records a tool invocation request. Metadata carries
	// tool_args when arguments were supplied.
	EventToolCall EventKind = "tool_call"
	// EventToolOutput records the result of a tool invocation. Metadata
	// carries tool_result.
	EventToolOutput EventKind = "tool_output"
	// EventContextUpdate records the consolidated project context changes of
	// a turn. At most one is emitted per turn, always last.
	EventContextUpdate EventKind = "context_update"
)

// TurnEvent is one entry of the ordered audit trail produced by a turn.
// Events are immutable once emitted.
type TurnEvent struct {
	ID         string         `json:"id"`
	Kind       EventKind      `json:"type"`
	Specialist string         `json:"agent"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewTurnEvent creates an event attributed to a specialist, stamped now.
func NewTurnEvent(kind EventKind, specialist, content string) TurnEvent {
	return TurnEvent{
		ID:         NewID(),
		Kind:       kind,
		Specialist: specialist,
		Content:    content,
		Timestamp:  time.Now().UTC(),
	}
}

// WithMetadata returns a copy of the event carrying the given metadata.
func (e TurnEvent) WithMetadata(md map[string]any) TurnEvent {
	e.Metadata = md
	return e
}

// SpecialistMessage is a user-visible message with its authoring specialist.
type SpecialistMessage struct {
	Content    string `json:"content"`
	Specialist string `json:"agent"`
}

// GuardrailCheck reports one input guardrail evaluation for a turn.
// Guardrails evaluate in declared order and short-circuit on the first trip,
// so checks after a tripped one report a pass without having run.
type GuardrailCheck struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Input     string    `json:"input"`
	Reasoning string    `json:"reasoning"`
	Passed    bool      `json:"passed"`
	Timestamp time.Time `json:"timestamp"`
}

// NewID generates a unique identifier for events, checks and conversations.
func NewID() string { return uuid.NewString() }
