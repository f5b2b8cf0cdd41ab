package prompts

import (
	"strings"
	"testing"
)

func TestSystemComposition(t *testing.T) {
	persona := "Você é a Ayla, consultora de nutrição."
	got := System(persona)

	if !strings.HasPrefix(got, persona) {
		t.Error("persona must open the system prompt")
	}

	blocks := []string{
		"CONTEXTO DE MEMÓRIA",
		"Sempre responda no mesmo idioma",
		"EXECUTE-THEN-RESPOND",
		"FERRAMENTAS DISPONÍVEIS",
		"INTERPRETAÇÃO DE VERIFICAÇÕES DE PLANOS",
	}
	last := 0
	for _, block := range blocks {
		idx := strings.Index(got, block)
		if idx < 0 {
			t.Fatalf("missing block %q", block)
		}
		if idx < last {
			t.Errorf("block %q out of order", block)
		}
		last = idx
	}
}

func TestUserTurn(t *testing.T) {
	got := UserTurn("Maria", "User: oi\nAgent: olá!\nUser: quero treinar")

	if !strings.HasPrefix(got, "Usuário: Maria\n\n") {
		t.Errorf("missing user name header: %q", got)
	}
	if !strings.Contains(got, "Contexto da conversa:\nUser: oi") {
		t.Errorf("missing conversation context: %q", got)
	}
}

func TestFallbackUserNamesCaller(t *testing.T) {
	got := FallbackUser("João")
	if !strings.Contains(got, "João") {
		t.Errorf("fallback prompt must name the user: %q", got)
	}
}
