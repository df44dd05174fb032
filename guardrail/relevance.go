package guardrail

import (
	"github.com/erni-gruppe/building-agents/inference"
)

// RelevanceGuardrailName is the stable name reported for relevance checks.
const RelevanceGuardrailName = "Relevance Guardrail"

const relevanceInstructions = "Determine if the user's message is highly unrelated to a normal customer service " +
	"conversation with a construction/building company (building projects, architecture, " +
	"timber construction, planning, cost estimates, consultations, materials, construction timelines, etc.). " +
	"Important: You are ONLY evaluating the most recent user message, " +
	"not any of the previous messages from the chat history. " +
	"It is OK for the customer to send messages such as 'Hi', 'Hello', 'OK', 'Thanks' " +
	"or any other messages that are conversational, " +
	"but if the response is non-conversational, " +
	"it must be somewhat related to building and construction. " +
	`Reply with JSON only: {"reasoning": "<brief reasoning>", "is_relevant": <true|false>}.`

// NewRelevanceGuardrail screens input for topical relevance to building and
// construction. The fallback passes everything: relevance is a quality
// filter, not a safety boundary, so it degrades open.
func NewRelevanceGuardrail(client inference.Client, cache *VerdictCache, optFns ...func(o *ClassifierOptions)) *Classifier {
	return newClassifier(
		RelevanceGuardrailName,
		client,
		cache,
		relevanceInstructions,
		"is_relevant",
		func(string) Verdict {
			return Verdict{Passed: true, Reasoning: "classifier unavailable, defaulting to relevant"}
		},
		optFns...,
	)
}
