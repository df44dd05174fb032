package guardrail

import (
	"context"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/logging"
)

// Trip identifies which guardrail stopped a turn and why.
type Trip struct {
	Guardrail string
	Reasoning string
}

// EngineOptions configures the guardrail engine.
type EngineOptions struct {
	Logger logging.Logger
}

// Engine evaluates guardrail chains. Input guardrails run in declared order
// and short-circuit on the first trip: later guardrails are not evaluated
// for that input.
type Engine struct {
	logger logging.Logger
}

// NewEngine creates a guardrail engine.
func NewEngine(optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{logger: opts.Logger}
}

// CheckInput runs the input guardrails against the customer message and
// returns the first trip, or nil when all pass.
func (e *Engine) CheckInput(ctx context.Context, guardrails []InputGuardrail, input string) *Trip {
	for _, g := range guardrails {
		verdict := g.Check(ctx, input)
		if !verdict.Passed {
			e.logger.Info("guardrail.input.tripped", "guardrail", g.Name(), "reasoning", verdict.Reasoning)
			return &Trip{Guardrail: g.Name(), Reasoning: verdict.Reasoning}
		}
		e.logger.Debug("guardrail.input.passed", "guardrail", g.Name())
	}
	return nil
}

// CheckOutput runs the output guardrails against outgoing message text and
// returns the first trip, or nil when all pass.
func (e *Engine) CheckOutput(ctx context.Context, guardrails []OutputGuardrail, output string, pc *core.ProjectContext) *Trip {
	for _, g := range guardrails {
		verdict := g.Inspect(ctx, output, pc)
		if !verdict.Passed {
			e.logger.Info("guardrail.output.tripped", "guardrail", g.Name(), "reasoning", verdict.Reasoning)
			return &Trip{Guardrail: g.Name(), Reasoning: verdict.Reasoning}
		}
		e.logger.Debug("guardrail.output.passed", "guardrail", g.Name())
	}
	return nil
}
