// Package server exposes the turn orchestrator over HTTP: chat submission,
// the specialist listing, health and readiness probes and the Prometheus
// scrape endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/inference"
	"github.com/erni-gruppe/building-agents/internal/metrics"
	"github.com/erni-gruppe/building-agents/logging"
	"github.com/erni-gruppe/building-agents/orchestrator"
	"github.com/erni-gruppe/building-agents/ratelimit"
	"github.com/erni-gruppe/building-agents/specialist"
)

const serviceVersion = "1.0.0"

// ChatRequest is the turn submission payload.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is the complete turn outcome returned to the client.
type ChatResponse struct {
	ConversationID   string                   `json:"conversation_id"`
	CurrentAgent     string                   `json:"current_agent"`
	Messages         []core.SpecialistMessage `json:"messages"`
	Events           []core.TurnEvent         `json:"events"`
	Context          map[string]any           `json:"context"`
	Agents           []specialist.Listing     `json:"agents"`
	GuardrailResults []core.GuardrailCheck    `json:"guardrails"`
}

// Options configures the HTTP server.
type Options struct {
	Logger      logging.Logger
	Metrics     *metrics.Metrics
	Limiter     *ratelimit.Limiter
	CORSOrigins []string
	Environment string

	// ConfigCheck reports whether required configuration is present, for
	// the readiness probe. Defaults to always-ready.
	ConfigCheck func() error
}

// Server is the HTTP surface over the orchestrator.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	registry     *specialist.Registry
	upstream     inference.Client
	opts         Options
}

// New creates a server.
func New(o *orchestrator.Orchestrator, registry *specialist.Registry, upstream inference.Client, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		Environment: "development",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{orchestrator: o, registry: registry, upstream: upstream, opts: opts}
}

// Handler builds the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /agents", s.handleAgents)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readiness", s.handleReadiness)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}

	middlewares := []Middleware{
		Recovery(s.opts.Logger),
		RequestLogger(s.opts.Logger),
		SecurityHeaders(),
		CORS(s.opts.CORSOrigins),
	}
	if s.opts.Limiter != nil {
		var onReject func()
		if s.opts.Metrics != nil {
			onReject = s.opts.Metrics.RateLimitRejections.Inc
		}
		middlewares = append(middlewares, RateLimit(s.opts.Limiter, onReject))
	}
	return Chain(mux, middlewares...)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	result, err := s.orchestrator.ProcessTurn(r.Context(), orchestrator.TurnRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		s.writeTurnError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		ConversationID:   result.ConversationID,
		CurrentAgent:     result.CurrentSpecialist,
		Messages:         result.Messages,
		Events:           result.Events,
		Context:          result.Context,
		Agents:           result.Specialists,
		GuardrailResults: result.GuardrailResults,
	})
}

// writeTurnError maps the normalized failure categories to HTTP statuses.
// Internal error detail never reaches the client.
func (s *Server) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	case errors.Is(err, core.ErrGatewayTimeout):
		writeError(w, http.StatusGatewayTimeout, "Upstream request timed out")
	default:
		s.opts.Logger.Error("chat.turn.failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.registry.Listings()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"version":     serviceVersion,
		"environment": s.opts.Environment,
		"service":     "ERNI Building Agents API",
	})
}

// handleReadiness checks upstream reachability and configuration in
// parallel and reports 503 until both pass.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var upstreamOK, configOK bool

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.upstream.Ping(ctx); err != nil {
			s.opts.Logger.Warn("readiness.upstream.failed", "error", err.Error())
			return nil
		}
		upstreamOK = true
		return nil
	})
	g.Go(func() error {
		if s.opts.ConfigCheck != nil {
			if err := s.opts.ConfigCheck(); err != nil {
				s.opts.Logger.Warn("readiness.config.failed", "error", err.Error())
				return nil
			}
		}
		configOK = true
		return nil
	})
	_ = g.Wait()

	checks := map[string]bool{"upstream": upstreamOK, "configured": configOK}
	ready := upstreamOK && configOK
	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	writeJSON(w, status, map[string]any{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
		"version":   serviceVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
