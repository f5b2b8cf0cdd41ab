// Package router decides which agent persona answers an inbound
// message. Account state always wins over message content; keyword
// classification only runs for users the database does not know.
package router

import (
	"log/slog"
	"strings"

	"github.com/aylahq/ayla-agent/internal/agents"
)

// User account states as reported by the user store. An empty state
// means the lookup produced nothing and keyword routing applies.
const (
	UserTypeNew                  = "new_user"
	UserTypeIncompleteOnboarding = "incomplete_onboarding"
	UserTypeComplete             = "complete_user"
)

// Keywords holds the classification vocabularies. All matching is
// lowercase substring containment.
type Keywords struct {
	Fitness     []string
	Nutrition   []string
	OutOfDomain []string
	Sales       []string
	Support     []string
}

// DefaultKeywords returns the shipped Portuguese + English vocabularies.
func DefaultKeywords() Keywords {
	return Keywords{
		Fitness: []string{
			"treino", "treinar", "exercicio", "exercícios", "musculação", "academia", "workout",
			"serie", "séries", "repetições", "rep", "peso", "carga", "cardio", "aerobico",
			"hipertrofia", "definição", "força", "resistência", "alongamento", "aquecimento",
			"supino", "agachamento", "deadlift", "pullup", "flexão", "abdominal", "leg press",
			"bíceps", "tríceps", "peito", "costas", "pernas", "ombro", "gluteo", "panturrilha",
			"personal", "instrutor", "ficha", "plano de treino", "exercitar", "malhar",
			"meu treino", "treino hoje", "treino de hoje", "exercicios hoje",
		},
		Nutrition: []string{
			"dieta", "alimentação", "comida", "comer", "nutrição", "nutricional",
			"plano alimentar", "cardápio", "refeição", "café da manhã", "almoço",
			"jantar", "lanche", "receita", "calorias", "proteína", "carboidrato",
			"gordura", "vitamina", "mineral", "suplemento", "whey", "creatina",
			"bcaa", "ômega", "fibra", "água",
		},
		OutOfDomain: []string{
			"tempo", "weather", "clima", "política", "notícia", "futebol", "filme",
			"música", "viagem", "trabalho", "estudo", "escola", "matemática",
			"história", "geografia", "programação", "tecnologia", "carros",
			"games", "jogos", "amor", "relacionamento", "piada", "joke", "previsão",
		},
		Sales: []string{
			"preço", "valor", "custo", "plano", "contratar", "comprar", "orçamento",
			"quero começar", "interessado", "teste", "gratis", "trial", "assinar",
		},
		Support: []string{
			"como funciona", "como usar", "dúvida", "pergunta", "ajuda", "problema",
			"não entendi", "explicar", "dashboard", "acompanhar", "progresso",
		},
	}
}

func matchesAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func knownAgent(key string) bool {
	switch key {
	case agents.KeyOnboarding, agents.KeyOnboardingReminder, agents.KeySales,
		agents.KeySupport, agents.KeyOutContext, agents.KeyNutrition, agents.KeyFitness:
		return true
	}
	return false
}

// Resolve picks the agent key for a message. Pure and deterministic:
// the same inputs always produce the same key.
//
// Priority, first match wins: incomplete onboarding and new users route
// on account state alone; complete users split between the fitness and
// nutrition specialists on message keywords (nutrition when ambiguous);
// with no account state a known recommendation is honored, then
// out-of-domain, nutrition, sales, support, and fitness vocabularies
// are checked in that order; a user with no history lands on
// onboarding, as does everything else.
func (k Keywords) Resolve(msg, userType, recommendation string, hasHistory bool) string {
	switch userType {
	case UserTypeIncompleteOnboarding:
		return agents.KeyOnboardingReminder
	case UserTypeNew:
		return agents.KeyOnboarding
	case UserTypeComplete:
		lower := strings.ToLower(msg)
		fitness := matchesAny(lower, k.Fitness)
		nutrition := matchesAny(lower, k.Nutrition)
		if fitness && !nutrition {
			return agents.KeyFitness
		}
		return agents.KeyNutrition
	}

	if recommendation != "" && knownAgent(recommendation) {
		return recommendation
	}

	lower := strings.ToLower(msg)
	switch {
	case matchesAny(lower, k.OutOfDomain):
		return agents.KeyOutContext
	case matchesAny(lower, k.Nutrition):
		return agents.KeyNutrition
	case matchesAny(lower, k.Sales):
		return agents.KeySales
	case matchesAny(lower, k.Support):
		return agents.KeySupport
	case matchesAny(lower, k.Fitness):
		return agents.KeyFitness
	}

	// First contact and the catch-all both land on onboarding.
	return agents.KeyOnboarding
}

// Router wraps the pure resolver with decision logging.
type Router struct {
	keywords Keywords
	logger   *slog.Logger
}

// New creates a router. Empty keyword lists in overrides keep the
// shipped defaults.
func New(overrides Keywords, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	k := DefaultKeywords()
	if len(overrides.Fitness) > 0 {
		k.Fitness = overrides.Fitness
	}
	if len(overrides.Nutrition) > 0 {
		k.Nutrition = overrides.Nutrition
	}
	if len(overrides.OutOfDomain) > 0 {
		k.OutOfDomain = overrides.OutOfDomain
	}
	if len(overrides.Sales) > 0 {
		k.Sales = overrides.Sales
	}
	if len(overrides.Support) > 0 {
		k.Support = overrides.Support
	}
	return &Router{keywords: k, logger: logger}
}

// Resolve picks the agent key and logs the decision.
func (r *Router) Resolve(msg, userType, recommendation string, hasHistory bool) string {
	key := r.keywords.Resolve(msg, userType, recommendation, hasHistory)
	r.logger.Info("route decision",
		"agent", key,
		"user_type", userType,
		"recommendation", recommendation,
		"has_history", hasHistory)
	return key
}
