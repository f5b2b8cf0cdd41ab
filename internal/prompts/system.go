package prompts

import "fmt"

// memoryInstruction tells the model the conversation context in the user
// turn is real history it should build on.
const memoryInstruction = "\n\nCONTEXTO DE MEMÓRIA: Você tem acesso ao histórico desta conversa. Use essas informações para personalizar suas respostas e manter continuidade."

const languageInstruction = "\n\nIMPORTANTE: Sempre responda no mesmo idioma que o usuário está usando."

// uxRule forbids the model from announcing deferred work. Tools run
// before the final response, so "vou fazer" is always a lie to the user.
const uxRule = `

🚨 REGRA CRÍTICA DE UX - EXECUTE-THEN-RESPOND:
- NUNCA diga 'vou fazer', 'aguarde', 'vou buscar', 'deixe-me consultar'
- SEMPRE execute a ferramenta PRIMEIRO, depois responda com os resultados
- SEMPRE inclua os dados obtidos na sua resposta
- Se houver erro na ferramenta, explique alternativas sem prometer ações futuras`

const toolsInstruction = `

FERRAMENTAS DISPONÍVEIS:
1. 'get_onboarding_questions': Execute IMEDIATAMENTE quando o usuário demonstrar interesse em iniciar o processo de onboarding. Após executar, apresente as perguntas diretamente na resposta. NUNCA invente perguntas.
2. 'create_user_and_save_onboarding': Execute IMEDIATAMENTE quando o usuário já forneceu as 3 informações básicas (nome, idade, email). Após executar, informe diretamente o resultado na resposta. Esta ferramenta cria a conta, envia as credenciais E inclui automaticamente o link de onboarding para o usuário continuar o processo.`

// planCheckInstruction keeps the model from reading an empty plan check
// as a failure.
const planCheckInstruction = `

🔍 INTERPRETAÇÃO DE VERIFICAÇÕES DE PLANOS:
- Quando check_user_meal_plan ou check_user_training_plan retornar 'has_plan: false' com 'status: no_plan_found', isso é NORMAL e POSITIVO
- NÃO trate como erro! Significa que você pode criar um novo plano
- Use a mensagem retornada que já é positiva: 'Perfeito! Vejo que você ainda não possui um plano...'
- Continue diretamente para a criação do plano sem mencionar problemas ou erros
- Se a resposta contém 'action_needed: create_plan', proceda imediatamente com a criação`

// System composes the full system prompt for one request: the selected
// agent's persona followed by the fixed instruction blocks, in a stable
// order.
func System(agentPrompt string) string {
	return agentPrompt + memoryInstruction + languageInstruction + uxRule + toolsInstruction + planCheckInstruction
}

// UserTurn formats the single user message: the caller's display name
// and the memory-derived conversation context ending in the current
// message.
func UserTurn(userName, conversationContext string) string {
	return fmt.Sprintf("Usuário: %s\n\nContexto da conversa:\n%s", userName, conversationContext)
}
