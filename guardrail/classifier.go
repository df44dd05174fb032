package guardrail

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/erni-gruppe/building-agents/inference"
	"github.com/erni-gruppe/building-agents/logging"
)

// Classifier is an InputGuardrail backed by a secondary inference call. The
// classifier model is asked for a strict JSON verdict; when the call fails
// or the reply cannot be parsed, a deterministic fallback decides instead,
// so guardrails never block a turn on upstream trouble.
type Classifier struct {
	name         string
	client       inference.Client
	cache        *VerdictCache
	instructions string
	passField    string
	fallback     func(input string) Verdict
	logger       logging.Logger
}

// ClassifierOptions configures optional classifier behavior.
type ClassifierOptions struct {
	Logger logging.Logger
}

func newClassifier(
	name string,
	client inference.Client,
	cache *VerdictCache,
	instructions, passField string,
	fallback func(input string) Verdict,
	optFns ...func(o *ClassifierOptions),
) *Classifier {
	opts := ClassifierOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Classifier{
		name:         name,
		client:       client,
		cache:        cache,
		instructions: instructions,
		passField:    passField,
		fallback:     fallback,
		logger:       opts.Logger,
	}
}

// Name implements InputGuardrail.
func (g *Classifier) Name() string { return g.name }

// Check implements InputGuardrail. Verdicts are cached by input
// fingerprint; fallback verdicts after an upstream failure are not cached,
// so the classifier gets another chance once the provider recovers.
func (g *Classifier) Check(ctx context.Context, input string) Verdict {
	key := Key(g.name, input)
	if v, ok := g.cache.Get(key); ok {
		g.logger.Debug("guardrail.cache.hit", "guardrail", g.name)
		return v
	}

	completion, err := g.client.Complete(ctx, inference.Request{
		Instructions: g.instructions,
		Messages:     []inference.Message{{Role: "user", Content: input}},
	})
	if err != nil {
		g.logger.Warn("guardrail.classifier.unavailable", "guardrail", g.name, "error", err.Error())
		return g.fallback(input)
	}

	v, ok := parseVerdict(completion.Text, g.passField)
	if !ok {
		g.logger.Warn("guardrail.classifier.unparseable", "guardrail", g.name)
		v = g.fallback(input)
	}
	g.cache.Put(key, v)
	return v
}

// parseVerdict extracts {"reasoning": ..., "<passField>": bool} from the
// classifier reply, tolerating surrounding prose.
func parseVerdict(text, passField string) (Verdict, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Verdict{}, false
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &decoded); err != nil {
		return Verdict{}, false
	}
	passed, ok := decoded[passField].(bool)
	if !ok {
		return Verdict{}, false
	}
	reasoning, _ := decoded["reasoning"].(string)
	return Verdict{Passed: passed, Reasoning: reasoning}, true
}

// Compile-time interface assertion.
var _ InputGuardrail = (*Classifier)(nil)
