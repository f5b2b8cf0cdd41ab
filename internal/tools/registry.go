// Package tools defines the tools available to the agents and the
// dispatcher that executes them. Tool failures are data: every failure
// mode returns a JSON error payload for the model to read and recover
// from, never a Go error that would abort the conversation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aylahq/ayla-agent/internal/events"
	"github.com/aylahq/ayla-agent/internal/plans"
	"github.com/aylahq/ayla-agent/internal/users"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	// Mutating marks tools that write state, for logging.
	Mutating bool `json:"-"`
	// IdentityParam names the argument that carries the caller's
	// identity. The dispatcher overwrites it with the verified caller
	// ID on every call; the model never chooses who a tool acts for.
	IdentityParam string                                                       `json:"-"`
	Handler       func(ctx context.Context, args map[string]any) (any, error) `json:"-"`
}

// Mailer sends the post-signup welcome email. Optional.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name, tempPassword, onboardingURL string) error
}

// Registry holds available tools and their backing stores.
type Registry struct {
	tools  map[string]*Tool
	users  *users.Store
	lookup *users.Lookup
	plans  *plans.Store
	mailer Mailer
	logger *slog.Logger
	bus    *events.Bus
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithMailer enables the welcome email after account creation.
func WithMailer(m Mailer) Option {
	return func(r *Registry) { r.mailer = m }
}

// WithBus attaches an event bus for tool telemetry.
func WithBus(bus *events.Bus) Option {
	return func(r *Registry) { r.bus = bus }
}

// WithClock overrides the time source used by the day and meal-slot
// tools.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates the tool registry with the full catalog
// registered.
func NewRegistry(userStore *users.Store, lookup *users.Lookup, planStore *plans.Store, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:  make(map[string]*Tool),
		users:  userStore,
		lookup: lookup,
		plans:  planStore,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.registerOnboarding()
	r.registerNutrition()
	r.registerFitness()
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all tools in completion-API function format.
func (r *Registry) List() []map[string]any {
	var result []map[string]any
	for _, name := range r.Names() {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

func errJSON(format string, args ...any) string {
	data, _ := json.Marshal(map[string]string{"error": fmt.Sprintf(format, args...)})
	return string(data)
}

// Execute runs a tool by name. callerID is the verified identity of
// the conversation (the WhatsApp number); it overwrites any
// model-supplied value for the tool's identity parameter. The returned
// string is always JSON, error payloads included.
func (r *Registry) Execute(ctx context.Context, name, argsJSON, callerID string) string {
	tool := r.tools[name]
	if tool == nil {
		return errJSON("tool '%s' not found", name)
	}

	args := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return errJSON("invalid arguments: %v", err)
		}
	}

	if tool.IdentityParam != "" {
		if supplied, ok := args[tool.IdentityParam]; ok && supplied != callerID {
			r.logger.Debug("overwriting model-supplied identity argument",
				"tool", name, "param", tool.IdentityParam)
		}
		args[tool.IdentityParam] = callerID
	}

	if missing := missingRequired(tool.Parameters, args); len(missing) > 0 {
		return errJSON("missing required parameters: %s", strings.Join(missing, ", "))
	}

	start := time.Now()
	r.publish(events.KindToolCall, map[string]any{"tool": name})
	result, err := tool.Handler(ctx, args)
	r.publish(events.KindToolDone, map[string]any{
		"tool": name, "ok": err == nil,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "error", err)
		return errJSON("%v", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errJSON("encode result: %v", err)
	}
	return string(data)
}

func missingRequired(parameters, args map[string]any) []string {
	required, _ := parameters["required"].([]string)
	if required == nil {
		// Schemas decoded from JSON carry []any.
		if list, ok := parameters["required"].([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
	}

	var missing []string
	for _, param := range required {
		v, ok := args[param]
		if !ok || v == nil || v == "" {
			missing = append(missing, param)
		}
	}
	return missing
}

func (r *Registry) publish(kind string, data map[string]any) {
	r.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceTools,
		Kind:      kind,
		Data:      data,
	})
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string, fallback int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return fallback
}
