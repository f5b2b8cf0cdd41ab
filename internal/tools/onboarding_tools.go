package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (r *Registry) registerOnboarding() {
	r.Register(&Tool{
		Name:        "get_onboarding_questions",
		Description: "Busca as perguntas de onboarding que devem ser feitas ao usuário pelo WhatsApp, em ordem.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleGetOnboardingQuestions,
	})

	r.Register(&Tool{
		Name:        "create_user_and_save_onboarding",
		Description: "Cria a conta do usuário com os dados básicos coletados na conversa (nome, idade, email, telefone) e salva as primeiras respostas de onboarding. Retorna as credenciais temporárias e o link para completar o cadastro.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string", "description": "Nome completo do usuário"},
				"age":   map[string]any{"type": "string", "description": "Idade do usuário"},
				"email": map[string]any{"type": "string", "description": "Email do usuário"},
				"phone": map[string]any{"type": "string", "description": "Telefone do usuário com DDD"},
			},
			"required": []string{"name", "age", "email", "phone"},
		},
		Mutating:      true,
		IdentityParam: "phone",
		Handler:       r.handleCreateUser,
	})

	r.Register(&Tool{
		Name:        "get_user_onboarding_responses",
		Description: "Busca todas as respostas de onboarding já dadas pelo usuário, para montar o perfil dele.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": map[string]any{"type": "string", "description": "Telefone do usuário"},
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleGetOnboardingResponses,
	})
}

func (r *Registry) handleGetOnboardingQuestions(ctx context.Context, args map[string]any) (any, error) {
	questions, err := r.users.Questions(ctx)
	if err != nil {
		return nil, fmt.Errorf("buscar perguntas: %w", err)
	}
	if len(questions) == 0 {
		return map[string]any{
			"success":   false,
			"message":   "Nenhuma pergunta encontrada",
			"questions": []any{},
		}, nil
	}
	return map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Encontradas %d perguntas", len(questions)),
		"questions": questions,
	}, nil
}

func (r *Registry) handleCreateUser(ctx context.Context, args map[string]any) (any, error) {
	name := stringArg(args, "name")
	age := stringArg(args, "age")
	email := stringArg(args, "email")
	phone := stringArg(args, "phone")

	user, tempPassword, err := r.users.Create(ctx, name, age, email, phone)
	if err != nil {
		return map[string]any{
			"success": false,
			"message": fmt.Sprintf("Erro ao criar usuário: %v", err),
		}, nil
	}

	onboardingURL := r.lookup.OnboardingURL(user.ID)

	if r.mailer != nil {
		// Best effort: the account exists whether or not the email lands.
		if err := r.mailer.SendWelcome(ctx, email, name, tempPassword, onboardingURL); err != nil {
			r.logger.Warn("welcome email failed", "email", email, "error", err)
		}
	}

	message := fmt.Sprintf("🎉 Conta criada com sucesso!\n\n📧 Email: %s\n🔑 Senha temporária: %s\n\nVocê já pode fazer login no app da Ayla usando essas credenciais. Recomendamos alterar sua senha após o primeiro login.",
		email, tempPassword)
	if onboardingURL != "" {
		message += fmt.Sprintf("\n\n🔗 Continue seu onboarding aqui: %s", onboardingURL)
	}

	return map[string]any{
		"success":            true,
		"message":            message,
		"user_id":            user.ID,
		"temp_password":      tempPassword,
		"email":              email,
		"onboarding_url":     onboardingURL,
		"login_instructions": "Use o email e senha temporária para fazer login no app da Ayla, depois complete seu onboarding no link acima.",
	}, nil
}

func (r *Registry) handleGetOnboardingResponses(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, err := r.users.ByPhone(ctx, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"success":   false,
			"message":   "Usuário não encontrado",
			"responses": []any{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar usuário: %w", err)
	}

	responses, err := r.users.Responses(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar respostas: %w", err)
	}
	if len(responses) == 0 {
		return map[string]any{
			"success":   false,
			"message":   "Nenhuma resposta de onboarding encontrada para este usuário",
			"responses": []any{},
			"user_id":   user.ID,
		}, nil
	}

	return map[string]any{
		"success":   true,
		"user_id":   user.ID,
		"responses": responses,
		"message":   fmt.Sprintf("Encontradas %d respostas de onboarding", len(responses)),
	}, nil
}
