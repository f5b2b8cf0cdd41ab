package prompts

import "fmt"

// FallbackSystem is the tool-free system prompt used when a normal
// completion fails at either phase.
const FallbackSystem = "You are Ayla, a fitness AI assistant. Respond naturally in the user's language."

// FallbackUser asks the model to acknowledge a technical problem without
// exposing details.
func FallbackUser(userName string) string {
	return fmt.Sprintf("User %s sent a message but there was a technical issue. Acknowledge the problem politely and ask how you can help with fitness.", userName)
}

// Apology is the last-resort reply when even the fallback completion
// fails.
const Apology = "Desculpe, estou com uma instabilidade técnica neste momento. 😔 Pode tentar novamente em alguns instantes? Estou aqui para te ajudar com treinos e alimentação!"
