package promise

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/aylahq/ayla-agent/internal/events"
)

// Executor runs a tool by name and returns its JSON result. Satisfied
// by the tool dispatcher.
type Executor interface {
	Execute(ctx context.Context, name, argsJSON, callerID string) string
}

var fitnessWords = []string{"treino", "exercicio", "exercício", "musculação", "workout", "training"}
var nutritionWords = []string{"alimentar", "nutricao", "nutrição", "meal", "nutrition", "dieta"}

// defaultTrainingPlan is the plan the corrector creates when the model
// promised one instead of calling the tool. Exercise names must exist
// in the catalog.
const defaultTrainingPlan = `{
	"plan_name": "Plano de Treino Personalizado Ayla",
	"objective": "Condicionamento Geral",
	"weekly_workouts": {
		"segunda-feira": [
			{"exerciseName": "Flexão de Braço", "sets": 3, "reps": "8-12", "restSeconds": 90, "order": 1},
			{"exerciseName": "Agachamento Livre", "sets": 3, "reps": "10-15", "restSeconds": 90, "order": 2},
			{"exerciseName": "Prancha", "sets": 3, "reps": "30-60s", "restSeconds": 60, "order": 3}
		],
		"quarta-feira": [
			{"exerciseName": "Remada Curvada", "sets": 3, "reps": "8-12", "restSeconds": 90, "order": 1},
			{"exerciseName": "Rosca Direta", "sets": 3, "reps": "10-15", "restSeconds": 90, "order": 2},
			{"exerciseName": "Prancha", "sets": 3, "reps": "30-60s", "restSeconds": 60, "order": 3}
		],
		"sexta-feira": [
			{"exerciseName": "Agachamento Livre", "sets": 3, "reps": "10-15", "restSeconds": 120, "order": 1},
			{"exerciseName": "Afundo", "sets": 3, "reps": "12-20", "restSeconds": 90, "order": 2},
			{"exerciseName": "Abdominal Supra", "sets": 3, "reps": "15-20", "restSeconds": 60, "order": 3}
		]
	}
}`

// retryNote is appended to the original response when the forced chain
// could not complete.
const retryNote = "\n\n⚠️ *Detectei que posso executar essa ação agora mesmo. Deixe-me tentar novamente em instantes...*"

// Corrector replaces deferred-action responses with the outcome of the
// action itself, run through the tool dispatcher under the caller's
// identity.
type Corrector struct {
	exec     Executor
	detector *Detector
	logger   *slog.Logger
	bus      *events.Bus
}

// NewCorrector builds a corrector around a detector and dispatcher.
func NewCorrector(exec Executor, detector *Detector, logger *slog.Logger, bus *events.Bus) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		detector = NewDetector(Lists{})
	}
	return &Corrector{exec: exec, detector: detector, logger: logger, bus: bus}
}

// Inspect checks a finished response for a deferred promise and, when
// one is found, runs the promised action now. Returns the (possibly
// replaced) text and whether a correction happened. The original text
// survives any chain failure with a retry note appended.
func (c *Corrector) Inspect(ctx context.Context, userMessage, responseText, callerID string) (string, bool) {
	if !c.detector.Detect(responseText, userMessage) {
		return responseText, false
	}

	c.logger.Info("deferred promise detected, executing action now", "user", callerID)

	replacement := c.act(ctx, userMessage, callerID)
	if replacement == "" {
		return responseText + retryNote, false
	}

	c.bus.Publish(events.Event{
		Source: events.SourceResponder,
		Kind:   events.KindPromiseCorrected,
		Data:   map[string]any{"user": callerID},
	})
	return replacement, true
}

func (c *Corrector) act(ctx context.Context, userMessage, callerID string) string {
	message := strings.ToLower(userMessage)
	switch {
	case containsAny(message, fitnessWords):
		return c.buildTrainingPlan(ctx, callerID)
	case containsAny(message, nutritionWords):
		return c.buildMealPlan(ctx, callerID)
	}
	return ""
}

func (c *Corrector) buildTrainingPlan(ctx context.Context, callerID string) string {
	check := c.execJSON(ctx, "check_user_training_plan", "{}", callerID)
	if truthy(check["has_plan"]) {
		return "✅ Você já possui um plano de treino ativo!\n\nPosso ajudar com mais informações sobre seu treino atual!"
	}

	profile := c.execJSON(ctx, "get_user_onboarding_responses", "{}", callerID)
	if !truthy(profile["success"]) {
		return "❌ Para criar seu plano personalizado, preciso que complete seu onboarding primeiro. Vou te ajudar com isso!"
	}

	created := c.execJSON(ctx, "create_weekly_training_plan", defaultTrainingPlan, callerID)
	if !truthy(created["success"]) {
		c.logger.Warn("forced training plan creation failed", "user", callerID, "error", created["error"])
		return ""
	}
	return "🎉 Perfeito! Acabei de criar e salvar seu plano de treino personalizado!\n\n✅ *Plano de Treino Personalizado Ayla*\n🎯 Objetivo: Condicionamento Geral\n\nSeu plano já está ativo e você pode começar hoje mesmo! Quer saber quais são os treinos de hoje?"
}

func (c *Corrector) buildMealPlan(ctx context.Context, callerID string) string {
	check := c.execJSON(ctx, "check_user_meal_plan", "{}", callerID)
	if truthy(check["has_plan"]) {
		return "✅ Você já possui um plano alimentar ativo!\n\nPosso ajudar com mais informações sobre sua alimentação atual!"
	}

	profile := c.execJSON(ctx, "get_user_onboarding_responses", "{}", callerID)
	if !truthy(profile["success"]) {
		return "❌ Para criar seu plano alimentar personalizado, preciso que complete seu onboarding primeiro. Vou te ajudar com isso!"
	}

	created := c.execJSON(ctx, "create_weekly_meal_plan",
		`{"plan_name": "Plano Alimentar Personalizado Ayla"}`, callerID)
	if !truthy(created["success"]) {
		c.logger.Warn("forced meal plan creation failed", "user", callerID, "error", created["error"])
		return ""
	}
	return "🎉 Perfeito! Acabei de criar e salvar seu plano alimentar personalizado!\n\n✅ *Plano Alimentar Personalizado Ayla*\n📅 Duração: 7 dias\n\nSeu plano já está ativo! Quer saber quais são as refeições de hoje?"
}

func (c *Corrector) execJSON(ctx context.Context, name, argsJSON, callerID string) map[string]any {
	raw := c.exec.Execute(ctx, name, argsJSON, callerID)
	result := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("tool returned non-JSON payload", "tool", name, "error", err)
	}
	return result
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}
