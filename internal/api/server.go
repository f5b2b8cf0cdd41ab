// Package api implements the HTTP surface: the WhatsApp chat pipeline
// endpoints plus operational introspection (health, agents, memory).
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aylahq/ayla-agent/internal/agents"
	"github.com/aylahq/ayla-agent/internal/buildinfo"
	"github.com/aylahq/ayla-agent/internal/users"
	"github.com/aylahq/ayla-agent/internal/whatsapp"
)

// writeJSON encodes v to w. Errors here typically mean the client
// disconnected mid-response, which is not actionable.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// GatewayProbe checks the WhatsApp session for the health endpoint.
// Satisfied by whatsapp.Client; nil disables the check.
type GatewayProbe interface {
	CheckConnection(ctx context.Context) (*whatsapp.ConnectionState, error)
}

// LLMProbe checks completion endpoint reachability. Satisfied by
// llm.Client; nil disables the check.
type LLMProbe interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	address  string
	port     int
	pipeline *Pipeline
	memory   Memory
	registry *agents.Registry
	pacer    Deliverer
	gateway  GatewayProbe
	llm      LLMProbe
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates the API server. gateway and llm may be nil; their
// health checks report as skipped.
func NewServer(address string, port int, pipeline *Pipeline, mem Memory,
	registry *agents.Registry, pacer Deliverer, gateway GatewayProbe,
	llm LLMProbe, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:  address,
		port:     port,
		pipeline: pipeline,
		memory:   mem,
		registry: registry,
		pacer:    pacer,
		gateway:  gateway,
		llm:      llm,
		logger:   logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /whatsapp-chat", s.handleWhatsAppChat)
	mux.HandleFunc("POST /send-whatsapp", s.handleSendWhatsApp)
	mux.HandleFunc("POST /chat", s.handleWebhookChat)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /agents", s.handleAgents)
	mux.HandleFunc("POST /reload-agents", s.handleReloadAgents)
	mux.HandleFunc("GET /user-memory/{phone}", s.handleUserMemoryGet)
	mux.HandleFunc("DELETE /user-memory/{phone}", s.handleUserMemoryDelete)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests. Blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // paced delivery happens inside the request
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": msg}, s.logger)
}

// --- Chat endpoints ---

// WhatsAppChatRequest is the inbound shape for the full pipeline.
type WhatsAppChatRequest struct {
	UserID           string             `json:"user_id"`
	UserName         string             `json:"user_name"`
	PhoneNumber      string             `json:"phone_number"`
	Message          string             `json:"message"`
	RecommendedAgent string             `json:"recommended_agent,omitempty"`
	SendToWhatsApp   *bool              `json:"send_to_whatsapp,omitempty"` // default true
	UserContext      *users.UserContext `json:"user_context,omitempty"`
}

// WhatsAppChatResponse mirrors the upstream orchestrator's contract.
// should_handoff and next_agent are kept for wire compatibility;
// handoff decisions live in the router now.
type WhatsAppChatResponse struct {
	Response      string  `json:"response"`
	AgentUsed     string  `json:"agent_used"`
	ShouldHandoff bool    `json:"should_handoff"`
	NextAgent     *string `json:"next_agent"`
	WhatsAppSent  bool    `json:"whatsapp_sent"`
	MessagesSent  int     `json:"messages_sent"`
}

func (s *Server) handleWhatsAppChat(w http.ResponseWriter, r *http.Request) {
	var req WhatsAppChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" || req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "phone_number and message are required")
		return
	}

	deliver := req.SendToWhatsApp == nil || *req.SendToWhatsApp
	out := s.pipeline.Process(r.Context(), Turn{
		Phone:       req.PhoneNumber,
		UserName:    req.UserName,
		Message:     req.Message,
		Recommended: req.RecommendedAgent,
		UserContext: req.UserContext,
		Deliver:     deliver,
	})

	writeJSON(w, WhatsAppChatResponse{
		Response:     out.Response,
		AgentUsed:    out.AgentUsed,
		WhatsAppSent: out.WhatsAppSent,
		MessagesSent: out.MessagesSent,
	}, s.logger)
}

// handleWebhookChat accepts the gateway's own event payload shape, so
// the gateway can post messages.upsert events directly.
func (s *Server) handleWebhookChat(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	msg, ok := whatsapp.ParseEvent(raw)
	if !ok {
		// Delivery receipts, group chats and own echoes are normal
		// traffic; acknowledge without processing.
		writeJSON(w, map[string]any{"processed": false}, s.logger)
		return
	}

	out := s.pipeline.Process(r.Context(), Turn{
		Phone:    msg.Phone,
		UserName: msg.Name,
		Message:  msg.Text,
		Deliver:  true,
	})

	writeJSON(w, map[string]any{
		"processed":     true,
		"agent_used":    out.AgentUsed,
		"whatsapp_sent": out.WhatsAppSent,
		"messages_sent": out.MessagesSent,
	}, s.logger)
}

// SendWhatsAppRequest is the direct-send shape.
type SendWhatsAppRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

func (s *Server) handleSendWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req SendWhatsAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" || req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "phone_number and message are required")
		return
	}
	if s.pacer == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "whatsapp gateway not configured")
		return
	}

	report := s.pacer.Deliver(r.Context(), req.PhoneNumber, req.Message)
	writeJSON(w, map[string]any{
		"success":        !report.Aborted && report.MessagesSent > 0,
		"phone_number":   whatsapp.CleanNumber(req.PhoneNumber),
		"messages_sent":  report.MessagesSent,
		"message_length": len(req.Message),
	}, s.logger)
}

// --- Operational endpoints ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	checks := map[string]map[string]any{}
	fail := func(name, msg string) {
		checks[name] = map[string]any{"status": "error", "message": msg}
		status = "unhealthy"
	}
	ok := func(name, msg string) {
		checks[name] = map[string]any{"status": "ok", "message": msg}
	}

	if err := s.memory.Ping(ctx); err != nil {
		fail("redis", err.Error())
	} else {
		ok("redis", "connected")
	}

	if s.llm != nil {
		if err := s.llm.Ping(ctx); err != nil {
			fail("llm", err.Error())
		} else {
			ok("llm", "connected")
		}
	} else {
		checks["llm"] = map[string]any{"status": "skipped", "message": "not configured"}
	}

	if s.gateway != nil {
		state, err := s.gateway.CheckConnection(ctx)
		switch {
		case err != nil:
			fail("gateway", err.Error())
		case state.State != "open":
			fail("gateway", "session state: "+state.State)
		default:
			ok("gateway", "session open")
		}
	} else {
		checks["gateway"] = map[string]any{"status": "skipped", "message": "not configured"}
	}

	keys := s.registry.Keys()
	agentsCheck := map[string]any{
		"status":  "ok",
		"message": fmt.Sprintf("%d agents loaded", len(keys)),
		"agents":  keys,
	}
	if len(keys) == 0 {
		agentsCheck["status"] = "warning"
	}
	checks["agents"] = agentsCheck

	resp := map[string]any{
		"status":    status,
		"service":   "ayla-agent",
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	}
	if status != "healthy" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, resp, s.logger)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	keys := s.registry.Keys()
	details := make(map[string]map[string]string, len(keys))
	for _, key := range keys {
		def, ok := s.registry.Get(key)
		if !ok {
			continue
		}
		details[key] = map[string]string{
			"name":        def.Name,
			"identifier":  def.Identifier,
			"description": def.Description,
		}
	}
	writeJSON(w, map[string]any{"agents": keys, "details": details}, s.logger)
}

func (s *Server) handleReloadAgents(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Reload(r.Context()); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "reload agents: "+err.Error())
		return
	}
	keys := s.registry.Keys()
	writeJSON(w, map[string]any{
		"success":       true,
		"agents_loaded": keys,
		"total":         len(keys),
	}, s.logger)
}

func (s *Server) handleUserMemoryGet(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")
	history := s.memory.Get(r.Context(), phone)
	writeJSON(w, map[string]any{
		"phone_number":         whatsapp.CleanNumber(phone),
		"memory_entries":       len(history),
		"conversation_history": history,
		"memory_key":           s.memory.Key(phone),
	}, s.logger)
}

func (s *Server) handleUserMemoryDelete(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")
	s.memory.Clear(r.Context(), phone)
	writeJSON(w, map[string]any{
		"success":      true,
		"phone_number": whatsapp.CleanNumber(phone),
		"message":      "memória do usuário removida",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{
		"name":    "Ayla",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}
