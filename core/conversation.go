package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author side of a transcript turn.
type Role string

const (
	// RoleUser marks customer-authored turns.
	RoleUser Role = "user"
	// RoleAssistant marks specialist-authored turns, including fixed
	// guardrail refusals.
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry of a conversation.
type Turn struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Specialist string    `json:"agent,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewUserTurn creates a customer turn stamped now.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantTurn creates a specialist-authored turn stamped now.
func NewAssistantTurn(specialist, content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, Specialist: specialist, Timestamp: time.Now().UTC()}
}

// Conversation bundles the durable state of one customer conversation: the
// transcript, the specialist currently in control and the shared project
// context. Stores hand out clones; the orchestrator serializes turns per
// conversation id, so no internal locking is needed here.
type Conversation struct {
	ID               string          `json:"id"`
	Turns            []Turn          `json:"turns"`
	ActiveSpecialist string          `json:"active_agent"`
	Context          *ProjectContext `json:"context"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewConversation creates a conversation with a fresh context, starting with
// the given specialist in control.
func NewConversation(id, entrySpecialist string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:               id,
		ActiveSpecialist: entrySpecialist,
		Context:          NewProjectContext(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Turns = make([]Turn, len(c.Turns))
	copy(cp.Turns, c.Turns)
	cp.Context = c.Context.Clone()
	return &cp
}

// NewConversationID mints a compact conversation identifier.
func NewConversationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ConversationStore is the persistence contract for conversations. All
// implementations must be safe for concurrent use across distinct
// conversation ids; the orchestrator guarantees at most one in-flight turn
// per id.
type ConversationStore interface {
	// Create persists a new conversation. It fails if the id already exists.
	Create(ctx context.Context, conv *Conversation) error

	// Load returns a clone of the stored conversation or
	// ErrConversationNotFound.
	Load(ctx context.Context, id string) (*Conversation, error)

	// AppendTurns appends transcript turns to an existing conversation.
	AppendTurns(ctx context.Context, id string, turns ...Turn) error

	// UpdateState replaces the active specialist and project context.
	UpdateState(ctx context.Context, id string, activeSpecialist string, pc *ProjectContext) error
}
