// Package core holds the shared kernel of the building-agents service:
// conversation and turn types, the event model emitted per turn, the typed
// project context threaded through tools and handoffs, the conversation
// store contract and the normalized failure categories surfaced to callers.
package core
