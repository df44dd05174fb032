// Package run drives one specialist invocation: it renders instructions
// against the shared context, loops the inference client over tool calls,
// executes tools, resolves handoff requests through the registry and
// returns the ordered item list the orchestrator turns into audit events.
package run

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/inference"
	"github.com/erni-gruppe/building-agents/logging"
	"github.com/erni-gruppe/building-agents/specialist"
	"github.com/erni-gruppe/building-agents/tool"
)

// DefaultMaxModelCalls bounds the tool loop of a single invocation.
const DefaultMaxModelCalls = 10

// ItemKind classifies runner output items.
type ItemKind string

const (
	// ItemMessage is visible assistant text.
	ItemMessage ItemKind = "message"
	// ItemToolCall is a tool invocation request.
	ItemToolCall ItemKind = "tool_call"
	// ItemToolOutput is a tool result.
	ItemToolOutput ItemKind = "tool_output"
	// ItemHandoff is a transfer of control between specialists.
	ItemHandoff ItemKind = "handoff"
)

// Item is one ordered step of an invocation.
type Item struct {
	Kind       ItemKind
	Specialist string // authoring specialist
	Text       string // message text or tool output
	ToolCallID string
	ToolName   string
	ToolArgs   map[string]any

	// Handoff fields.
	Source      string
	Target      string
	Initializer string
}

// Result is the outcome of a completed invocation.
type Result struct {
	Items           []Item
	FinalSpecialist string
}

// Options configures the runner.
type Options struct {
	MaxModelCalls int
	Logger        logging.Logger
}

// Runner executes specialist invocations against a registry and an
// inference client. It is stateless across invocations and safe for
// concurrent use.
type Runner struct {
	registry *specialist.Registry
	client   inference.Client
	opts     Options
}

// NewRunner creates a runner.
func NewRunner(registry *specialist.Registry, client inference.Client, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxModelCalls: DefaultMaxModelCalls,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{registry: registry, client: client, opts: opts}
}

// Run performs one invocation for the given user message. The working
// conversation's project context is mutated in place by tools and handoff
// initializers; the caller owns persistence. Inference errors are returned
// unwrapped so the supervisor can classify them.
func (r *Runner) Run(ctx context.Context, conv *core.Conversation, userMessage string) (*Result, error) {
	active, ok := r.registry.Get(conv.ActiveSpecialist)
	if !ok {
		return nil, fmt.Errorf("active specialist %q not registered", conv.ActiveSpecialist)
	}

	limiter := core.NewCallLimiter(r.opts.MaxModelCalls)
	messages := historyMessages(conv)
	messages = append(messages, inference.Message{Role: "user", Content: userMessage})

	var items []Item
	for {
		instructions, err := active.RenderInstructions(conv.Context)
		if err != nil {
			return nil, fmt.Errorf("render instructions for %q: %w", active.Name, err)
		}
		if err := limiter.Increment(); err != nil {
			return nil, fmt.Errorf("invocation did not converge: %w", err)
		}

		r.opts.Logger.Debug("run.model.call",
			"specialist", active.Name, "call", limiter.Count(), "conversation_id", conv.ID)

		completion, err := r.client.Complete(ctx, inference.Request{
			Instructions: instructions,
			Messages:     messages,
			Tools:        r.toolDefinitions(active),
		})
		if err != nil {
			return nil, err
		}

		if completion.Text != "" {
			items = append(items, Item{Kind: ItemMessage, Specialist: active.Name, Text: completion.Text})
		}
		messages = append(messages, inference.Message{
			Role:      "assistant",
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		if len(completion.ToolCalls) == 0 {
			return &Result{Items: items, FinalSpecialist: active.Name}, nil
		}

		for _, tc := range completion.ToolCalls {
			if handoff, ok := active.HandoffForTool(tc.Name); ok {
				source := active.Name
				r.registry.RunInitializer(handoff.Initializer, conv.Context)

				items = append(items, Item{
					Kind:        ItemHandoff,
					Specialist:  source,
					ToolCallID:  tc.ID,
					ToolName:    tc.Name,
					Source:      source,
					Target:      handoff.Target,
					Initializer: handoff.Initializer,
				})
				messages = append(messages, inference.Message{
					Role:       "tool",
					ToolCallID: tc.ID,
					Content:    fmt.Sprintf(`{"transferred_to": %q}`, handoff.Target),
				})

				// Registry validation guarantees the target exists.
				active, _ = r.registry.Get(handoff.Target)

				r.opts.Logger.Info("run.handoff",
					"from", source, "to", handoff.Target, "conversation_id", conv.ID)
				continue
			}

			target := findTool(active, tc.Name)
			if target == nil {
				r.opts.Logger.Warn("run.tool.unknown", "tool", tc.Name, "specialist", active.Name)
				messages = append(messages, inference.Message{
					Role:       "tool",
					ToolCallID: tc.ID,
					Content:    fmt.Sprintf("unknown tool: %s", tc.Name),
				})
				continue
			}

			args := parseArgs(tc.Arguments)
			items = append(items, Item{
				Kind:       ItemToolCall,
				Specialist: active.Name,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
				ToolArgs:   args,
			})

			toolCtx := tool.NewContext(conv.ID, conv.Context, tc.ID, r.opts.Logger)
			output, err := target.Call(toolCtx, args)

			var outputText string
			if err != nil {
				// Tool failures go back to the model as text so it can
				// correct the call; they do not fail the invocation.
				outputText = err.Error()
			} else {
				outputText = stringify(output)
			}

			items = append(items, Item{
				Kind:       ItemToolOutput,
				Specialist: active.Name,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
				Text:       outputText,
			})
			messages = append(messages, inference.Message{
				Role:       "tool",
				ToolCallID: tc.ID,
				Content:    outputText,
			})
		}
	}
}

// historyMessages converts the persisted transcript into provider messages.
func historyMessages(conv *core.Conversation) []inference.Message {
	messages := make([]inference.Message, 0, len(conv.Turns)+1)
	for _, t := range conv.Turns {
		messages = append(messages, inference.Message{Role: string(t.Role), Content: t.Content})
	}
	return messages
}

// toolDefinitions exposes the specialist's tools plus one synthetic
// transfer tool per handoff edge.
func (r *Runner) toolDefinitions(s *specialist.Specialist) []inference.ToolDefinition {
	defs := make([]inference.ToolDefinition, 0, len(s.Tools)+len(s.Handoffs))
	for _, t := range s.Tools {
		defs = append(defs, inference.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	for _, h := range s.Handoffs {
		description := "Transfer the conversation to the " + h.Target + "."
		if target, ok := r.registry.Get(h.Target); ok && target.Description != "" {
			description += " " + target.Description
		}
		defs = append(defs, inference.ToolDefinition{
			Name:        specialist.HandoffToolName(h.Target),
			Description: description,
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		})
	}
	return defs
}

func findTool(s *specialist.Specialist, name string) tool.Tool {
	for _, t := range s.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func parseArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}
