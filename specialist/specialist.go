// Package specialist defines the immutable specialist descriptors, the
// validated registry they live in, and the six ERNI Gruppe specialists with
// their handoff graph. Handoffs are explicit registry-resolved edges; a
// specialist can only transfer to targets declared on it, and edge
// initializers are looked up by registered name, never by introspection.
package specialist

import (
	"strings"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/guardrail"
	"github.com/erni-gruppe/building-agents/internal/util"
	"github.com/erni-gruppe/building-agents/tool"
)

// Initializer mutates the project context when a handoff edge is taken.
// Initializers are registered by name on the registry and referenced by
// name from handoff edges.
type Initializer func(pc *core.ProjectContext)

// Handoff is a directed edge to another specialist, optionally naming an
// initializer to run at transfer time.
type Handoff struct {
	Target      string
	Initializer string
}

// Specialist describes one narrow conversational handler. Descriptors are
// immutable after registry construction and safe to share across turns.
type Specialist struct {
	// Name is the unique display name, also used as the event author.
	Name string

	// Description is shown to peer specialists and on the public listing.
	Description string

	// Instructions is a text/template rendered against the project context
	// snapshot before every model call.
	Instructions string

	// Tools the specialist may invoke.
	Tools []tool.Tool

	// InputGuardrails screen customer input before execution, in order.
	InputGuardrails []guardrail.InputGuardrail

	// OutputGuardrails screen outgoing messages after execution.
	OutputGuardrails []guardrail.OutputGuardrail

	// Handoffs are the transfer edges this specialist may take.
	Handoffs []Handoff
}

// RenderInstructions resolves the instruction template against the current
// project context.
func (s *Specialist) RenderInstructions(pc *core.ProjectContext) (string, error) {
	return util.RenderTemplate(s.Instructions, pc.Snapshot())
}

// HandoffToolName derives the synthetic tool name exposed to the model for
// a transfer edge, e.g. "transfer_to_cost_estimation_agent".
func HandoffToolName(target string) string {
	return "transfer_to_" + strings.ReplaceAll(strings.ToLower(target), " ", "_")
}

// HandoffForTool resolves a tool name back to the matching transfer edge.
func (s *Specialist) HandoffForTool(toolName string) (Handoff, bool) {
	for _, h := range s.Handoffs {
		if HandoffToolName(h.Target) == toolName {
			return h, true
		}
	}
	return Handoff{}, false
}
