// Package responder runs the two-phase completion loop: one call that
// may request tools, one tool-execution round, and one final call that
// folds the results back into a reply. The loop is strictly bounded to
// a single tool round per turn.
package responder

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aylahq/ayla-agent/internal/events"
	"github.com/aylahq/ayla-agent/internal/llm"
	"github.com/aylahq/ayla-agent/internal/prompts"
	"github.com/aylahq/ayla-agent/internal/users"
)

// Completer is the completion API surface the responder needs.
// Satisfied by llm.Client.
type Completer interface {
	Chat(ctx context.Context, messages []llm.Message, tools []map[string]any) (*llm.ChatResponse, error)
	Model() string
}

// Toolbox executes tools and describes the catalog. Satisfied by
// tools.Registry.
type Toolbox interface {
	Execute(ctx context.Context, name, argsJSON, callerID string) string
	List() []map[string]any
}

// Request carries one inbound turn through the loop.
type Request struct {
	CallerID string // normalized phone, the verified identity
	UserName string
	Message  string // current user message
	Context  string // memory-derived conversation context, ends with Message

	AgentKey    string
	AgentPrompt string
	UserType    string // users.TypeNew / TypeIncompleteOnboarding / TypeComplete
}

// Result is the outcome of one turn. Text is always non-empty; the
// degraded paths end in an apology rather than an error.
type Result struct {
	Text      string
	AgentKey  string
	ToolsUsed map[string]int
	Usage     llm.Usage
	Fallback  bool // a completion failed and the fallback path produced Text
}

// Responder drives the loop.
type Responder struct {
	llm    Completer
	tools  Toolbox
	logger *slog.Logger
	bus    *events.Bus
}

// New builds a responder.
func New(completer Completer, toolbox Toolbox, logger *slog.Logger, bus *events.Bus) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{llm: completer, tools: toolbox, logger: logger, bus: bus}
}

// Respond runs the full loop for one turn. It never returns an error:
// completion failures degrade to a fallback completion and finally to a
// static apology.
func (r *Responder) Respond(ctx context.Context, req Request) Result {
	result := Result{AgentKey: req.AgentKey, ToolsUsed: map[string]int{}}

	messages := []llm.Message{
		{Role: "system", Content: prompts.System(req.AgentPrompt)},
		{Role: "user", Content: prompts.UserTurn(req.UserName, req.Context)},
	}

	first, err := r.complete(ctx, messages, r.tools.List(), "first")
	if err != nil {
		r.logger.Warn("first completion failed", "agent", req.AgentKey, "error", err)
		return r.fallback(ctx, req, result)
	}
	result.Usage = accumulate(result.Usage, first.Usage)

	reply := first.First()
	if reply == nil || len(reply.ToolCalls) == 0 {
		if reply != nil {
			result.Text = reply.Content
		}
		if result.Text == "" {
			return r.fallback(ctx, req, result)
		}
		return result
	}

	messages = append(messages, *reply)
	outputs := make(map[string]string, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		name := call.Function.Name
		result.ToolsUsed[name]++
		output := r.tools.Execute(ctx, name, call.Function.Arguments, req.CallerID)
		outputs[name] = output
		messages = append(messages, llm.Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Content:    output,
		})
	}

	if forced := r.forceCreate(ctx, req, result.ToolsUsed, outputs); forced != "" {
		messages = append(messages, llm.Message{Role: "assistant", Content: forced})
	}

	final, err := r.complete(ctx, messages, nil, "final")
	if err != nil {
		r.logger.Warn("final completion failed", "agent", req.AgentKey, "error", err)
		return r.fallback(ctx, req, result)
	}
	result.Usage = accumulate(result.Usage, final.Usage)

	reply = final.First()
	if reply != nil {
		// Tool requests in the second round are logged, never run.
		if len(reply.ToolCalls) > 0 {
			r.logger.Warn("tool calls in final completion ignored",
				"agent", req.AgentKey, "count", len(reply.ToolCalls))
		}
		result.Text = reply.Content
	}
	if result.Text == "" {
		return r.fallback(ctx, req, result)
	}
	return result
}

func (r *Responder) complete(ctx context.Context, messages []llm.Message, tools []map[string]any, phase string) (*llm.ChatResponse, error) {
	start := time.Now()
	r.publish(events.KindLLMCall, map[string]any{"model": r.llm.Model(), "phase": phase})
	resp, err := r.llm.Chat(ctx, messages, tools)
	data := map[string]any{
		"model": r.llm.Model(), "phase": phase,
		"duration_ms": time.Since(start).Milliseconds(),
		"ok":          err == nil,
	}
	if resp != nil {
		data["total_tokens"] = resp.Usage.TotalTokens
	}
	r.publish(events.KindLLMResponse, data)
	return resp, err
}

// fallback makes one tool-free completion with a neutral prompt; if
// that also fails the static apology goes out.
func (r *Responder) fallback(ctx context.Context, req Request, result Result) Result {
	result.Fallback = true

	messages := []llm.Message{
		{Role: "system", Content: prompts.FallbackSystem},
		{Role: "user", Content: prompts.FallbackUser(req.UserName)},
	}
	resp, err := r.complete(ctx, messages, nil, "fallback")
	if err == nil {
		if reply := resp.First(); reply != nil && reply.Content != "" {
			result.Usage = accumulate(result.Usage, resp.Usage)
			result.Text = reply.Content
			return result
		}
	} else {
		r.logger.Error("fallback completion failed", "error", err)
	}

	result.Text = prompts.Apology
	return result
}

func (r *Responder) publish(kind string, data map[string]any) {
	r.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceResponder,
		Kind:      kind,
		Data:      data,
	})
}

func accumulate(total, u llm.Usage) llm.Usage {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
	return total
}

// AppendOnboardingLink adds the signup link to a reply for users who
// still have onboarding steps pending, unless the reply already carries
// a link.
func AppendOnboardingLink(text, userType, url string) string {
	if userType != users.TypeIncompleteOnboarding || url == "" {
		return text
	}
	if strings.Contains(text, "🔗") || strings.Contains(text, "http") {
		return text
	}
	return text + "\n\n🔗 Finalize seu cadastro aqui: " + url
}
