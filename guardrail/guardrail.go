// Package guardrail implements the input and output safety checks that
// bracket every conversation turn: relevance and jailbreak screening of
// customer input before any specialist runs, and PII screening of
// specialist output before it is released. Classifier-backed guardrails
// share a process-wide TTL verdict cache so repeated inputs are not
// re-evaluated upstream.
package guardrail

import (
	"context"

	"github.com/erni-gruppe/building-agents/core"
)

// Verdict is the outcome of one guardrail evaluation.
type Verdict struct {
	Passed    bool   `json:"passed"`
	Reasoning string `json:"reasoning"`
}

// InputGuardrail screens customer input before specialist execution.
// Implementations must be safe for concurrent use and must always return a
// verdict; infrastructure failures degrade to a deterministic fallback
// rather than blocking the turn.
type InputGuardrail interface {
	// Name returns the stable guardrail name used in turn reports.
	Name() string

	// Check evaluates the most recent customer message.
	Check(ctx context.Context, input string) Verdict
}

// OutputGuardrail screens specialist output before release to the customer.
type OutputGuardrail interface {
	// Name returns the stable guardrail name used in logs.
	Name() string

	// Inspect evaluates outgoing message text. The project context carries
	// data the customer provided themselves; echoing it back is not a
	// disclosure. A failed verdict withholds the message.
	Inspect(ctx context.Context, output string, pc *core.ProjectContext) Verdict
}
