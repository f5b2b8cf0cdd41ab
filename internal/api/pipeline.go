package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aylahq/ayla-agent/internal/agents"
	"github.com/aylahq/ayla-agent/internal/events"
	"github.com/aylahq/ayla-agent/internal/memory"
	"github.com/aylahq/ayla-agent/internal/responder"
	"github.com/aylahq/ayla-agent/internal/router"
	"github.com/aylahq/ayla-agent/internal/users"
	"github.com/aylahq/ayla-agent/internal/whatsapp"
)

// Memory is the conversation history store the pipeline reads and
// writes. Satisfied by memory.Store.
type Memory interface {
	Get(ctx context.Context, userID string) []string
	Append(ctx context.Context, userID string, turns ...string)
	Clear(ctx context.Context, userID string)
	Ping(ctx context.Context) error
	Key(userID string) string
}

// ContextLookup classifies a phone number into an account situation.
// Satisfied by users.Lookup.
type ContextLookup interface {
	ContextByPhone(ctx context.Context, phone string) users.UserContext
}

// Completion runs the two-phase tool loop for one turn. Satisfied by
// responder.Responder.
type Completion interface {
	Respond(ctx context.Context, req responder.Request) responder.Result
}

// Corrector rewrites deferred-action responses. Satisfied by
// promise.Corrector.
type Corrector interface {
	Inspect(ctx context.Context, userMessage, responseText, callerID string) (string, bool)
}

// Deliverer sends a response to WhatsApp as paced segments. Satisfied
// by whatsapp.Pacer.
type Deliverer interface {
	Deliver(ctx context.Context, recipient, text string) whatsapp.DeliveryReport
}

// Pipeline runs one inbound message through the full turn: memory,
// routing, completion, promise correction, onboarding link, delivery,
// memory write-back. Shared by the webhook handlers and the gateway
// socket listener.
type Pipeline struct {
	memory    Memory
	lookup    ContextLookup
	router    *router.Router
	agents    *agents.Registry
	responder Completion
	corrector Corrector
	pacer     Deliverer
	userTag   string
	agentTag  string
	logger    *slog.Logger
	bus       *events.Bus
}

// NewPipeline wires the turn pipeline. userTag and agentTag label the
// stored memory turns ("Usuário", "Ayla").
func NewPipeline(mem Memory, lookup ContextLookup, rtr *router.Router, reg *agents.Registry,
	resp Completion, corr Corrector, pacer Deliverer, userTag, agentTag string,
	logger *slog.Logger, bus *events.Bus) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		memory:    mem,
		lookup:    lookup,
		router:    rtr,
		agents:    reg,
		responder: resp,
		corrector: corr,
		pacer:     pacer,
		userTag:   userTag,
		agentTag:  agentTag,
		logger:    logger,
		bus:       bus,
	}
}

// Turn is one inbound message to process.
type Turn struct {
	Phone       string
	UserName    string
	Message     string
	Recommended string // upstream agent recommendation, may be empty

	// UserContext overrides the phone lookup when the caller already
	// resolved the account situation.
	UserContext *users.UserContext

	// Deliver sends the response to WhatsApp; false returns it to the
	// HTTP caller only.
	Deliver bool
}

// Outcome is the pipeline result for one turn.
type Outcome struct {
	Response     string
	AgentUsed    string
	WhatsAppSent bool
	MessagesSent int
}

// Process runs one turn end to end. It never fails: degraded memory,
// tool errors and completion failures all surface as response text.
func (p *Pipeline) Process(ctx context.Context, turn Turn) Outcome {
	start := time.Now()
	requestID := uuid.NewString()

	p.publish(events.KindRequestStart, map[string]any{
		"request_id": requestID,
		"user":       memory.NormalizeUserID(turn.Phone),
	})

	history := p.memory.Get(ctx, turn.Phone)
	conversation := memory.BuildContext(history, turn.Message, p.userTag)

	var uc users.UserContext
	if turn.UserContext != nil {
		uc = *turn.UserContext
	} else {
		uc = p.lookup.ContextByPhone(ctx, turn.Phone)
	}

	agentKey := p.router.Resolve(turn.Message, uc.UserType, turn.Recommended, len(history) > 0)
	def, ok := p.agents.Get(agentKey)
	if !ok {
		p.logger.Warn("agent missing from registry, falling back",
			"agent", agentKey)
		agentKey = agents.KeyOnboarding
		def, _ = p.agents.Get(agentKey)
	}
	p.publish(events.KindRouteDecision, map[string]any{
		"request_id": requestID,
		"agent":      agentKey,
		"user_type":  uc.UserType,
	})

	result := p.responder.Respond(ctx, responder.Request{
		CallerID:    turn.Phone,
		UserName:    turn.UserName,
		Message:     turn.Message,
		Context:     conversation,
		AgentKey:    agentKey,
		AgentPrompt: def.Prompt,
		UserType:    uc.UserType,
	})

	text, corrected := p.corrector.Inspect(ctx, turn.Message, result.Text, turn.Phone)
	if corrected {
		p.logger.Info("deferred action corrected", "request_id", requestID)
	}
	text = responder.AppendOnboardingLink(text, uc.UserType, uc.OnboardingURL)

	out := Outcome{Response: text, AgentUsed: agentKey}
	if turn.Deliver && p.pacer != nil {
		report := p.pacer.Deliver(ctx, turn.Phone, text)
		out.WhatsAppSent = report.MessagesSent > 0 && !report.Aborted
		out.MessagesSent = report.MessagesSent
	}

	p.memory.Append(ctx, turn.Phone,
		p.userTag+": "+turn.Message,
		p.agentTag+": "+text)

	p.publish(events.KindRequestComplete, map[string]any{
		"request_id": requestID,
		"agent":      agentKey,
		"tokens_in":  result.Usage.PromptTokens,
		"tokens_out": result.Usage.CompletionTokens,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	p.logger.Info("turn complete",
		"request_id", requestID,
		"agent", agentKey,
		"user_type", uc.UserType,
		"fallback", result.Fallback,
		"delivered", out.MessagesSent,
		"elapsed", time.Since(start))
	return out
}

func (p *Pipeline) publish(kind string, data map[string]any) {
	p.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceAPI,
		Kind:      kind,
		Data:      data,
	})
}
