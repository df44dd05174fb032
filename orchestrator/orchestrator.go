// Package orchestrator sequences one conversation turn: input guardrails
// first, then supervised specialist execution, then event assembly, context
// diffing and persistence. Turns for the same conversation id are
// serialized; distinct ids run concurrently.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/guardrail"
	"github.com/erni-gruppe/building-agents/internal/metrics"
	"github.com/erni-gruppe/building-agents/logging"
	"github.com/erni-gruppe/building-agents/run"
	"github.com/erni-gruppe/building-agents/specialist"
	"github.com/erni-gruppe/building-agents/supervisor"
)

// RefusalMessage is the fixed reply for tripped input guardrails. It is
// never model-generated.
const RefusalMessage = "Sorry, I can only answer questions related to building and construction."

// PrivacyRefusalMessage replaces specialist output that would leak personal
// data past the output guardrails.
const PrivacyRefusalMessage = "Sorry, I cannot share personal contact details. Please call our office at 041 570 70 70 for assistance."

// TurnRequest is one submitted utterance. A blank ConversationID mints a
// new conversation; a blank Message is a bootstrap request that returns the
// current snapshot without calling upstream.
type TurnRequest struct {
	ConversationID string
	Message        string
}

// TurnResult is the complete outcome of a processed turn.
type TurnResult struct {
	ConversationID    string
	CurrentSpecialist string
	Messages          []core.SpecialistMessage
	Events            []core.TurnEvent
	Context           map[string]any
	Specialists       []specialist.Listing
	GuardrailResults  []core.GuardrailCheck
}

// Options configures the orchestrator.
type Options struct {
	Supervisor supervisor.Options
	Logger     logging.Logger
	Metrics    *metrics.Metrics
}

// Orchestrator owns the turn state machine. Safe for concurrent use; at
// most one turn per conversation id is in flight at a time.
type Orchestrator struct {
	registry *specialist.Registry
	runner   *run.Runner
	store    core.ConversationStore
	engine   *guardrail.Engine
	opts     Options

	mu    sync.Mutex
	locks map[string]*convLock
}

// convLock serializes turns for one conversation id. refs counts holders
// and waiters so the entry can be evicted once nobody needs it.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// New creates an orchestrator.
func New(registry *specialist.Registry, runner *run.Runner, store core.ConversationStore, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Supervisor: supervisor.DefaultOptions(),
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		registry: registry,
		runner:   runner,
		store:    store,
		engine:   guardrail.NewEngine(func(o *guardrail.EngineOptions) { o.Logger = opts.Logger }),
		opts:     opts,
		locks:    make(map[string]*convLock),
	}
}

// ProcessTurn runs the full turn state machine for one submission.
// Failures surface as the core sentinel categories only.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	started := time.Now()

	conv, err := o.resolveConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	unlock := o.lockConversation(conv.ID)
	defer unlock()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return o.bootstrapResult(conv), nil
	}

	active, ok := o.registry.Get(conv.ActiveSpecialist)
	if !ok {
		return nil, fmt.Errorf("active specialist %q not registered: %w", conv.ActiveSpecialist, core.ErrInternal)
	}

	if trip := o.engine.CheckInput(ctx, active.InputGuardrails, message); trip != nil {
		result, err := o.refusalResult(ctx, conv, active, message, trip)
		o.observeTurn("refused", started)
		if o.opts.Metrics != nil {
			o.opts.Metrics.GuardrailTripsTotal.WithLabelValues(trip.Guardrail).Inc()
		}
		return result, err
	}

	before := conv.Context.Snapshot()

	invocation, err := o.execute(ctx, conv, message)
	if err != nil {
		o.observeTurn("error", started)
		return nil, err
	}

	events, messages, final := o.assembleEvents(invocation)

	if changes := core.DiffSnapshots(before, conv.Context.Snapshot()); len(changes) > 0 {
		events = append(events, core.NewTurnEvent(core.EventContextUpdate, final, "").
			WithMetadata(map[string]any{"changes": changes}))
	}

	events, messages = o.enforceOutputGuardrails(ctx, conv, events, messages, final)

	if err := o.persistTurn(ctx, conv, message, messages, final); err != nil {
		o.observeTurn("error", started)
		return nil, fmt.Errorf("persist turn for %s: %w", conv.ID, core.ErrInternal)
	}

	finalSpec, _ := o.registry.Get(final)
	o.observeTurn("ok", started)

	return &TurnResult{
		ConversationID:    conv.ID,
		CurrentSpecialist: final,
		Messages:          messages,
		Events:            events,
		Context:           conv.Context.Snapshot(),
		Specialists:       o.registry.Listings(),
		GuardrailResults:  passedChecks(finalSpec, message),
	}, nil
}

// resolveConversation loads an existing conversation or mints a new one.
// Unknown or blank ids both start fresh.
func (o *Orchestrator) resolveConversation(ctx context.Context, id string) (*core.Conversation, error) {
	if id != "" {
		conv, err := o.store.Load(ctx, id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, core.ErrConversationNotFound) {
			return nil, fmt.Errorf("load conversation %s: %w", id, core.ErrInternal)
		}
	}

	conv := core.NewConversation(core.NewConversationID(), o.registry.Entry())
	if err := o.store.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", core.ErrInternal)
	}
	o.opts.Logger.Info("turn.conversation.created", "conversation_id", conv.ID)
	return conv, nil
}

func (o *Orchestrator) lockConversation(id string) func() {
	o.mu.Lock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &convLock{}
		o.locks[id] = lock
	}
	lock.refs++
	o.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		o.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(o.locks, id)
		}
		o.mu.Unlock()
	}
}

func (o *Orchestrator) bootstrapResult(conv *core.Conversation) *TurnResult {
	return &TurnResult{
		ConversationID:    conv.ID,
		CurrentSpecialist: conv.ActiveSpecialist,
		Messages:          []core.SpecialistMessage{},
		Events:            []core.TurnEvent{},
		Context:           conv.Context.Snapshot(),
		Specialists:       o.registry.Listings(),
		GuardrailResults:  []core.GuardrailCheck{},
	}
}

// refusalResult builds the fixed-refusal turn: the user message and the
// refusal are persisted, no specialist executes and no events are emitted.
// The tripped guardrail reports its real verdict; every other configured
// guardrail is reported passed without having run.
func (o *Orchestrator) refusalResult(ctx context.Context, conv *core.Conversation, active *specialist.Specialist, message string, trip *guardrail.Trip) (*TurnResult, error) {
	checks := make([]core.GuardrailCheck, 0, len(active.InputGuardrails))
	now := time.Now().UTC()
	for _, g := range active.InputGuardrails {
		check := core.GuardrailCheck{
			ID:        core.NewID(),
			Name:      g.Name(),
			Input:     message,
			Passed:    g.Name() != trip.Guardrail,
			Timestamp: now,
		}
		if !check.Passed {
			check.Reasoning = trip.Reasoning
		}
		checks = append(checks, check)
	}

	err := o.store.AppendTurns(ctx, conv.ID,
		core.NewUserTurn(message),
		core.NewAssistantTurn(active.Name, RefusalMessage))
	if err != nil {
		return nil, fmt.Errorf("persist refusal for %s: %w", conv.ID, core.ErrInternal)
	}

	return &TurnResult{
		ConversationID:    conv.ID,
		CurrentSpecialist: active.Name,
		Messages:          []core.SpecialistMessage{{Content: RefusalMessage, Specialist: active.Name}},
		Events:            []core.TurnEvent{},
		Context:           conv.Context.Snapshot(),
		Specialists:       o.registry.Listings(),
		GuardrailResults:  checks,
	}, nil
}

// execute runs the specialist invocation under the supervision policy.
func (o *Orchestrator) execute(ctx context.Context, conv *core.Conversation, message string) (*run.Result, error) {
	opts := o.opts.Supervisor
	opts.Logger = o.opts.Logger
	if o.opts.Metrics != nil {
		inner := opts.OnRetry
		opts.OnRetry = func(attempt int, err error) {
			o.opts.Metrics.UpstreamRetries.Inc()
			if inner != nil {
				inner(attempt, err)
			}
		}
	}
	return supervisor.Execute(ctx, opts, func(ctx context.Context) (*run.Result, error) {
		return o.runner.Run(ctx, conv, message)
	})
}

// assembleEvents classifies the runner's ordered items into turn events,
// preserving order exactly. Handoff edges with a registered initializer add
// a synthetic tool_call attributed to the target specialist.
func (o *Orchestrator) assembleEvents(invocation *run.Result) ([]core.TurnEvent, []core.SpecialistMessage, string) {
	events := make([]core.TurnEvent, 0, len(invocation.Items))
	messages := make([]core.SpecialistMessage, 0, 2)

	for _, item := range invocation.Items {
		switch item.Kind {
		case run.ItemMessage:
			messages = append(messages, core.SpecialistMessage{Content: item.Text, Specialist: item.Specialist})
			events = append(events, core.NewTurnEvent(core.EventMessage, item.Specialist, item.Text))

		case run.ItemHandoff:
			events = append(events, core.NewTurnEvent(core.EventHandoff, item.Source,
				fmt.Sprintf("%s -> %s", item.Source, item.Target)).
				WithMetadata(map[string]any{"source_agent": item.Source, "target_agent": item.Target}))
			if item.Initializer != "" {
				events = append(events, core.NewTurnEvent(core.EventToolCall, item.Target, item.Initializer))
			}

		case run.ItemToolCall:
			event := core.NewTurnEvent(core.EventToolCall, item.Specialist, item.ToolName)
			if len(item.ToolArgs) > 0 {
				event = event.WithMetadata(map[string]any{"tool_args": item.ToolArgs})
			}
			events = append(events, event)

		case run.ItemToolOutput:
			events = append(events, core.NewTurnEvent(core.EventToolOutput, item.Specialist, item.Text).
				WithMetadata(map[string]any{"tool_result": item.Text}))
		}
	}
	return events, messages, invocation.FinalSpecialist
}

// enforceOutputGuardrails inspects outgoing messages with the final
// specialist's output guardrails. On a trip every visible message is
// withheld and replaced with the fixed privacy refusal; non-message events
// are kept for the audit trail.
func (o *Orchestrator) enforceOutputGuardrails(ctx context.Context, conv *core.Conversation, events []core.TurnEvent, messages []core.SpecialistMessage, final string) ([]core.TurnEvent, []core.SpecialistMessage) {
	spec, ok := o.registry.Get(final)
	if !ok || len(spec.OutputGuardrails) == 0 {
		return events, messages
	}

	for _, msg := range messages {
		trip := o.engine.CheckOutput(ctx, spec.OutputGuardrails, msg.Content, conv.Context)
		if trip == nil {
			continue
		}
		o.opts.Logger.Warn("turn.output.withheld",
			"conversation_id", conv.ID, "guardrail", trip.Guardrail, "reasoning", trip.Reasoning)
		if o.opts.Metrics != nil {
			o.opts.Metrics.GuardrailTripsTotal.WithLabelValues(trip.Guardrail).Inc()
		}

		kept := make([]core.TurnEvent, 0, len(events))
		for _, e := range events {
			if e.Kind != core.EventMessage {
				kept = append(kept, e)
			}
		}
		// A context_update event stays last.
		refusal := core.NewTurnEvent(core.EventMessage, final, PrivacyRefusalMessage)
		if n := len(kept); n > 0 && kept[n-1].Kind == core.EventContextUpdate {
			kept = append(kept[:n-1], refusal, kept[n-1])
		} else {
			kept = append(kept, refusal)
		}
		return kept, []core.SpecialistMessage{{Content: PrivacyRefusalMessage, Specialist: final}}
	}
	return events, messages
}

// persistTurn commits the user turn, the visible specialist messages and
// the post-turn state. Nothing is committed for failed executions.
func (o *Orchestrator) persistTurn(ctx context.Context, conv *core.Conversation, message string, messages []core.SpecialistMessage, final string) error {
	turns := make([]core.Turn, 0, len(messages)+1)
	turns = append(turns, core.NewUserTurn(message))
	for _, msg := range messages {
		turns = append(turns, core.NewAssistantTurn(msg.Specialist, msg.Content))
	}
	if err := o.store.AppendTurns(ctx, conv.ID, turns...); err != nil {
		return err
	}
	return o.store.UpdateState(ctx, conv.ID, final, conv.Context)
}

// passedChecks synthesizes the bookkeeping pass entries for every input
// guardrail configured on the post-turn specialist.
func passedChecks(spec *specialist.Specialist, message string) []core.GuardrailCheck {
	if spec == nil {
		return []core.GuardrailCheck{}
	}
	checks := make([]core.GuardrailCheck, 0, len(spec.InputGuardrails))
	now := time.Now().UTC()
	for _, g := range spec.InputGuardrails {
		checks = append(checks, core.GuardrailCheck{
			ID:        core.NewID(),
			Name:      g.Name(),
			Input:     message,
			Passed:    true,
			Timestamp: now,
		})
	}
	return checks
}

func (o *Orchestrator) observeTurn(outcome string, started time.Time) {
	if o.opts.Metrics == nil {
		return
	}
	o.opts.Metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	o.opts.Metrics.TurnDuration.Observe(time.Since(started).Seconds())
}
