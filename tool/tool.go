// Package tool implements the function calling subsystem that lets
// specialists invoke structured capabilities (lookups, bookings, estimates)
// with schema validated arguments and consistent error handling. Domain
// tools mutate the shared project context through the ToolContext they
// receive.
package tool

import (
	"fmt"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/internal/util"
	"github.com/erni-gruppe/building-agents/logging"
)

// Tool defines the interface for extending specialist capabilities with
// external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description provided to the
	// model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input.
	Parameters() map[string]any

	// Call executes the tool with structured arguments and ToolContext.
	// Arguments are parsed from JSON and validated against the schema.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// Context carries per-invocation state into tool executions: the
// conversation id, the mutable shared project context and the correlating
// function call id.
type Context struct {
	conversationID string
	projectContext *core.ProjectContext
	callID         string
	logger         logging.Logger
}

// NewContext builds a tool context for one invocation.
func NewContext(conversationID string, pc *core.ProjectContext, callID string, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{
		conversationID: conversationID,
		projectContext: pc,
		callID:         callID,
		logger:         logger,
	}
}

// ConversationID returns the id of the conversation this call belongs to.
func (c *Context) ConversationID() string { return c.conversationID }

// ProjectContext returns the mutable shared context. Field writes made here
// surface as a context_update event at the end of the turn.
func (c *Context) ProjectContext() *core.ProjectContext { return c.projectContext }

// FunctionCallID correlates the model's call request with this execution.
func (c *Context) FunctionCallID() string { return c.callID }

// Logger returns the invocation logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
