package responder

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aylahq/ayla-agent/internal/llm"
	"github.com/aylahq/ayla-agent/internal/prompts"
	"github.com/aylahq/ayla-agent/internal/users"
)

// fakeCompleter returns scripted responses in order.
type fakeCompleter struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	errs      []error
	requests  [][]llm.Message
	toolSets  [][]map[string]any
}

func (f *fakeCompleter) Chat(ctx context.Context, messages []llm.Message, tools []map[string]any) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, messages)
	f.toolSets = append(f.toolSets, tools)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("no scripted response")
}

func (f *fakeCompleter) Model() string { return "gpt-4o-mini" }

type fakeToolbox struct {
	mu      sync.Mutex
	results map[string]string
	calls   []string
}

func (f *fakeToolbox) Execute(ctx context.Context, name, argsJSON, callerID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if r, ok := f.results[name]; ok {
		return r
	}
	return `{"ok":true}`
}

func (f *fakeToolbox) List() []map[string]any {
	return []map[string]any{{"type": "function", "function": map[string]any{"name": "check_user_meal_plan"}}}
}

func (f *fakeToolbox) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func textResponse(content string, tokens int) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: content}}},
		Usage:   llm.Usage{TotalTokens: tokens},
	}
}

func toolResponse(calls ...llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", ToolCalls: calls}}},
		Usage:   llm.Usage{TotalTokens: 10},
	}
}

func call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Type: "function", Function: llm.FunctionCall{Name: name, Arguments: args}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func baseRequest() Request {
	return Request{
		CallerID:    "5511999990000",
		UserName:    "Maria",
		Message:     "oi",
		Context:     "User: oi",
		AgentKey:    "nutrition",
		AgentPrompt: "Você é a Ayla.",
		UserType:    users.TypeComplete,
	}
}

func TestRespondWithoutTools(t *testing.T) {
	completer := &fakeCompleter{responses: []*llm.ChatResponse{textResponse("Olá, Maria!", 42)}}
	toolbox := &fakeToolbox{}
	r := New(completer, toolbox, testLogger(), nil)

	result := r.Respond(context.Background(), baseRequest())

	if result.Text != "Olá, Maria!" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Fallback {
		t.Error("clean turn marked fallback")
	}
	if result.Usage.TotalTokens != 42 {
		t.Errorf("TotalTokens = %d", result.Usage.TotalTokens)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("completions = %d, want 1", len(completer.requests))
	}
	if len(toolbox.called()) != 0 {
		t.Errorf("tools called: %v", toolbox.called())
	}

	system := completer.requests[0][0]
	if system.Role != "system" || !strings.HasPrefix(system.Content, "Você é a Ayla.") {
		t.Errorf("system turn = %+v", system)
	}
	if completer.toolSets[0] == nil {
		t.Error("first completion must offer the tool catalog")
	}
}

func TestRespondWithToolRound(t *testing.T) {
	completer := &fakeCompleter{responses: []*llm.ChatResponse{
		toolResponse(call("call_1", "get_today_meals", "{}")),
		textResponse("Hoje você tem omelete no café da manhã!", 20),
	}}
	toolbox := &fakeToolbox{results: map[string]string{
		"get_today_meals": `{"success":true,"meals":[{"recipe_name":"Omelete"}]}`,
	}}
	r := New(completer, toolbox, testLogger(), nil)

	result := r.Respond(context.Background(), baseRequest())

	if !strings.Contains(result.Text, "omelete") {
		t.Errorf("Text = %q", result.Text)
	}
	if result.ToolsUsed["get_today_meals"] != 1 {
		t.Errorf("ToolsUsed = %v", result.ToolsUsed)
	}
	if result.Usage.TotalTokens != 30 {
		t.Errorf("TotalTokens = %d", result.Usage.TotalTokens)
	}

	if len(completer.requests) != 2 {
		t.Fatalf("completions = %d, want 2", len(completer.requests))
	}
	second := completer.requests[1]
	toolTurn := second[len(second)-1]
	if toolTurn.Role != "tool" || toolTurn.ToolCallID != "call_1" {
		t.Errorf("tool turn = %+v", toolTurn)
	}
	if completer.toolSets[1] != nil {
		t.Error("final completion must not offer tools")
	}
}

func TestRespondSecondRoundToolsIgnored(t *testing.T) {
	completer := &fakeCompleter{responses: []*llm.ChatResponse{
		toolResponse(call("call_1", "get_today_meals", "{}")),
		{
			Choices: []llm.Choice{{Message: llm.Message{
				Role:      "assistant",
				Content:   "Aqui está!",
				ToolCalls: []llm.ToolCall{call("call_2", "get_available_foods", "{}")},
			}}},
		},
	}}
	toolbox := &fakeToolbox{}
	r := New(completer, toolbox, testLogger(), nil)

	result := r.Respond(context.Background(), baseRequest())

	if result.Text != "Aqui está!" {
		t.Errorf("Text = %q", result.Text)
	}
	calls := toolbox.called()
	if len(calls) != 1 || calls[0] != "get_today_meals" {
		t.Errorf("calls = %v, second round must not execute", calls)
	}
}

func TestRespondForcesStalledPlanCreation(t *testing.T) {
	completer := &fakeCompleter{responses: []*llm.ChatResponse{
		toolResponse(
			call("call_1", "check_user_meal_plan", "{}"),
			call("call_2", "get_user_onboarding_responses", "{}"),
		),
		textResponse("Seu plano alimentar está pronto!", 15),
	}}
	toolbox := &fakeToolbox{results: map[string]string{
		"check_user_meal_plan":          `{"has_plan":false,"status":"no_plan_found","action_needed":"create_plan"}`,
		"get_user_onboarding_responses": `{"success":true,"responses":[]}`,
		"create_weekly_meal_plan":       `{"success":true,"message":"Plano alimentar 'Plano Alimentar Personalizado Ayla' criado com sucesso!"}`,
	}}
	r := New(completer, toolbox, testLogger(), nil)

	result := r.Respond(context.Background(), baseRequest())

	calls := toolbox.called()
	if len(calls) != 3 || calls[2] != "create_weekly_meal_plan" {
		t.Fatalf("calls = %v, want forced create last", calls)
	}
	if result.ToolsUsed["create_weekly_meal_plan"] != 1 {
		t.Errorf("ToolsUsed = %v", result.ToolsUsed)
	}

	second := completer.requests[1]
	note := second[len(second)-1]
	if note.Role != "assistant" || !strings.Contains(note.Content, "criado e salvo com sucesso") {
		t.Errorf("forced-create note = %+v", note)
	}
}

func TestRespondNoForceForIncompleteUser(t *testing.T) {
	completer := &fakeCompleter{responses: []*llm.ChatResponse{
		toolResponse(
			call("call_1", "check_user_meal_plan", "{}"),
			call("call_2", "get_user_onboarding_responses", "{}"),
		),
		textResponse("Finalize seu onboarding primeiro!", 5),
	}}
	toolbox := &fakeToolbox{}
	r := New(completer, toolbox, testLogger(), nil)

	req := baseRequest()
	req.UserType = users.TypeIncompleteOnboarding
	r.Respond(context.Background(), req)

	for _, name := range toolbox.called() {
		if name == "create_weekly_meal_plan" {
			t.Error("create forced for incomplete user")
		}
	}
}

func TestRespondNoForceWhenPlanExists(t *testing.T) {
	completer := &fakeCompleter{responses: []*llm.ChatResponse{
		toolResponse(
			call("call_1", "check_user_meal_plan", "{}"),
			call("call_2", "get_user_onboarding_responses", "{}"),
		),
		textResponse("Você já tem um plano ativo!", 5),
	}}
	toolbox := &fakeToolbox{results: map[string]string{
		"check_user_meal_plan":          `{"has_plan":true,"status":"active_plan_found"}`,
		"get_user_onboarding_responses": `{"success":true,"responses":[]}`,
	}}
	r := New(completer, toolbox, testLogger(), nil)

	r.Respond(context.Background(), baseRequest())

	for _, name := range toolbox.called() {
		if name == "create_weekly_meal_plan" {
			t.Error("create forced although the check found an existing plan")
		}
	}
}

func TestRespondFallbackCompletion(t *testing.T) {
	completer := &fakeCompleter{
		errs:      []error{errors.New("429 rate limited"), nil},
		responses: []*llm.ChatResponse{nil, textResponse("Tive um probleminha técnico, como posso ajudar?", 8)},
	}
	r := New(completer, &fakeToolbox{}, testLogger(), nil)

	result := r.Respond(context.Background(), baseRequest())

	if !result.Fallback {
		t.Error("Fallback not set")
	}
	if !strings.Contains(result.Text, "probleminha") {
		t.Errorf("Text = %q", result.Text)
	}

	fallbackSystem := completer.requests[1][0]
	if fallbackSystem.Content != prompts.FallbackSystem {
		t.Errorf("fallback system = %q", fallbackSystem.Content)
	}
	if completer.toolSets[1] != nil {
		t.Error("fallback must not offer tools")
	}
}

func TestRespondStaticApology(t *testing.T) {
	completer := &fakeCompleter{errs: []error{errors.New("down"), errors.New("still down")}}
	r := New(completer, &fakeToolbox{}, testLogger(), nil)

	result := r.Respond(context.Background(), baseRequest())

	if result.Text != prompts.Apology {
		t.Errorf("Text = %q", result.Text)
	}
	if !result.Fallback {
		t.Error("Fallback not set")
	}
}

func TestAppendOnboardingLink(t *testing.T) {
	url := "https://app.ayla.fit/onboarding/u1"

	tests := []struct {
		name     string
		text     string
		userType string
		url      string
		want     string
	}{
		{
			name:     "appended for incomplete user",
			text:     "Continue de onde parou!",
			userType: users.TypeIncompleteOnboarding,
			url:      url,
			want:     "Continue de onde parou!\n\n🔗 Finalize seu cadastro aqui: " + url,
		},
		{
			name:     "complete user untouched",
			text:     "Bom treino!",
			userType: users.TypeComplete,
			url:      url,
			want:     "Bom treino!",
		},
		{
			name:     "existing link untouched",
			text:     "Acesse: https://app.ayla.fit/x",
			userType: users.TypeIncompleteOnboarding,
			url:      url,
			want:     "Acesse: https://app.ayla.fit/x",
		},
		{
			name:     "no url no append",
			text:     "Oi!",
			userType: users.TypeIncompleteOnboarding,
			url:      "",
			want:     "Oi!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AppendOnboardingLink(tt.text, tt.userType, tt.url); got != tt.want {
				t.Errorf("AppendOnboardingLink() = %q, want %q", got, tt.want)
			}
		})
	}
}
