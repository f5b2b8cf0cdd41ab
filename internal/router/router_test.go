package router

import (
	"testing"

	"github.com/aylahq/ayla-agent/internal/agents"
)

func TestResolve(t *testing.T) {
	k := DefaultKeywords()

	tests := []struct {
		name           string
		msg            string
		userType       string
		recommendation string
		hasHistory     bool
		want           string
	}{
		{
			name:     "incomplete onboarding wins over message content",
			msg:      "quero meu treino de hoje",
			userType: UserTypeIncompleteOnboarding,
			want:     agents.KeyOnboardingReminder,
		},
		{
			name:     "new user routes to onboarding",
			msg:      "qual o preço do plano?",
			userType: UserTypeNew,
			want:     agents.KeyOnboarding,
		},
		{
			name:     "complete user with fitness keywords",
			msg:      "me mostra meu treino de hoje",
			userType: UserTypeComplete,
			want:     agents.KeyFitness,
		},
		{
			name:     "complete user with nutrition keywords",
			msg:      "o que tem no meu cardápio?",
			userType: UserTypeComplete,
			want:     agents.KeyNutrition,
		},
		{
			name:     "complete user with both goes to nutrition",
			msg:      "treino e dieta para a semana",
			userType: UserTypeComplete,
			want:     agents.KeyNutrition,
		},
		{
			name:     "complete user with neither defaults to nutrition",
			msg:      "oi, tudo bem?",
			userType: UserTypeComplete,
			want:     agents.KeyNutrition,
		},
		{
			name:           "known recommendation honored without user state",
			msg:            "oi",
			recommendation: agents.KeySales,
			want:           agents.KeySales,
		},
		{
			name:           "unknown recommendation ignored",
			msg:            "oi",
			recommendation: "concierge",
			want:           agents.KeyOnboarding,
		},
		{
			name: "out of domain beats other vocabularies",
			msg:  "vai chover? como fica o clima para treinar?",
			want: agents.KeyOutContext,
		},
		{
			name: "nutrition keywords without user state",
			msg:  "preciso de uma dieta",
			want: agents.KeyNutrition,
		},
		{
			name: "sales keywords",
			msg:  "quanto custa? quero saber o valor",
			want: agents.KeySales,
		},
		{
			name: "support keywords",
			msg:  "como funciona o aplicativo?",
			want: agents.KeySupport,
		},
		{
			name: "fitness keywords without user state",
			msg:  "series de supino e agachamento",
			want: agents.KeyFitness,
		},
		{
			name: "english keywords work",
			msg:  "tell me a joke",
			want: agents.KeyOutContext,
		},
		{
			name: "no match and no history lands on onboarding",
			msg:  "oi",
			want: agents.KeyOnboarding,
		},
		{
			name:       "no match with history still lands on onboarding",
			msg:        "oi",
			hasHistory: true,
			want:       agents.KeyOnboarding,
		},
		{
			name:     "matching is case insensitive",
			msg:      "MEU TREINO DE HOJE",
			userType: UserTypeComplete,
			want:     agents.KeyFitness,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := k.Resolve(tt.msg, tt.userType, tt.recommendation, tt.hasHistory)
			if got != tt.want {
				t.Errorf("Resolve(%q, %q, %q, %v) = %q, want %q",
					tt.msg, tt.userType, tt.recommendation, tt.hasHistory, got, tt.want)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	k := DefaultKeywords()
	first := k.Resolve("quero treinar e comer melhor", UserTypeComplete, "", true)
	for range 10 {
		if got := k.Resolve("quero treinar e comer melhor", UserTypeComplete, "", true); got != first {
			t.Fatalf("Resolve not deterministic: %q then %q", first, got)
		}
	}
}

func TestRouterOverrides(t *testing.T) {
	r := New(Keywords{Sales: []string{"zzzbuy"}}, nil)

	if got := r.Resolve("zzzbuy now", "", "", false); got != agents.KeySales {
		t.Errorf("override sales vocabulary not applied, got %q", got)
	}
	// Untouched vocabularies keep their defaults.
	if got := r.Resolve("como funciona?", "", "", false); got != agents.KeySupport {
		t.Errorf("default support vocabulary lost after override, got %q", got)
	}
}
