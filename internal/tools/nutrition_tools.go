package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aylahq/ayla-agent/internal/plans"
	"github.com/aylahq/ayla-agent/internal/users"
)

func phoneSchema() map[string]any {
	return map[string]any{"type": "string", "description": "Telefone do usuário"}
}

func (r *Registry) registerNutrition() {
	r.Register(&Tool{
		Name:        "check_user_meal_plan",
		Description: "Verifica se o usuário já possui um plano alimentar ativo e se completou o onboarding. Use SEMPRE antes de criar um plano alimentar.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleCheckMealPlan,
	})

	r.Register(&Tool{
		Name:        "get_available_foods",
		Description: "Lista todos os alimentos disponíveis no catálogo com informações nutricionais por 100g.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleGetFoods,
	})

	r.Register(&Tool{
		Name:        "create_weekly_meal_plan",
		Description: "Cria e SALVA um plano alimentar semanal para o usuário. As receitas devem existir no catálogo. Formato de weekly_meals: {\"startDate\":\"2026-01-05\",\"endDate\":\"2026-01-12\",\"weeklyPlan\":{\"segunda-feira\":[{\"mealType\":\"Café da Manhã\",\"recipeName\":\"Omelete de Ovos com Tomate\",\"order\":1}]}}",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone":     phoneSchema(),
				"plan_name": map[string]any{"type": "string", "description": "Nome do plano"},
				"weekly_meals": map[string]any{
					"type":        "object",
					"description": "Estrutura do plano semanal com dias, tipos de refeição e nomes de receitas",
				},
			},
			"required": []string{"phone", "plan_name"},
		},
		Mutating:      true,
		IdentityParam: "phone",
		Handler:       r.handleCreateMealPlan,
	})

	r.Register(&Tool{
		Name:        "get_today_meals",
		Description: "Busca todas as refeições planejadas para hoje no plano alimentar ativo do usuário.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleGetTodayMeals,
	})

	r.Register(&Tool{
		Name:        "get_user_current_meal",
		Description: "Busca a refeição do plano correspondente ao horário atual (café da manhã, almoço, lanche ou jantar).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleGetCurrentMeal,
	})

	r.Register(&Tool{
		Name:        "get_user_meal_plan_details",
		Description: "Busca todos os detalhes do plano alimentar ativo do usuário, organizado por dia da semana.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleGetMealPlanDetails,
	})

	r.Register(&Tool{
		Name:        "suggest_alternative_recipes",
		Description: "Sugere receitas alternativas REAIS do catálogo para um tipo de refeição, numeradas para o usuário escolher.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"meal_type": map[string]any{
					"type":        "string",
					"description": "Tipo de refeição: Café da Manhã, Almoço, Lanche da Tarde ou Jantar",
				},
				"exclude_recipe": map[string]any{
					"type":        "string",
					"description": "Receita atual a excluir das sugestões",
				},
			},
			"required": []string{"meal_type"},
		},
		Handler: r.handleSuggestRecipes,
	})

	r.Register(&Tool{
		Name:        "update_meal_in_plan",
		Description: "Troca a receita de uma refeição específica no plano alimentar ativo do usuário.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
				"day_of_week": map[string]any{
					"type":        "string",
					"description": "Dia da semana, ex: segunda-feira",
				},
				"meal_type": map[string]any{
					"type":        "string",
					"description": "Tipo de refeição a trocar",
				},
				"new_recipe_name": map[string]any{
					"type":        "string",
					"description": "Nome da nova receita",
				},
			},
			"required": []string{"phone", "day_of_week", "meal_type", "new_recipe_name"},
		},
		Mutating:      true,
		IdentityParam: "phone",
		Handler:       r.handleUpdateMeal,
	})

	r.Register(&Tool{
		Name:        "get_recipe_ingredients",
		Description: "Busca os ingredientes de uma receita com quantidades em gramas.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recipe_name": map[string]any{"type": "string", "description": "Nome da receita"},
			},
			"required": []string{"recipe_name"},
		},
		Handler: r.handleGetRecipeIngredients,
	})

	r.Register(&Tool{
		Name:        "interpret_user_choice",
		Description: "Interpreta qual receita o usuário escolheu a partir da mensagem dele (número da opção, ordinal ou nome).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_message": map[string]any{
					"type":        "string",
					"description": "Mensagem do usuário com a escolha",
				},
				"meal_type": map[string]any{
					"type":        "string",
					"description": "Tipo de refeição em discussão",
				},
				"recent_suggestions": map[string]any{
					"type":        "array",
					"description": "Sugestões numeradas oferecidas ao usuário, na ordem",
					"items":       map[string]any{"type": "string"},
				},
			},
			"required": []string{"user_message"},
		},
		Handler: r.handleInterpretChoice,
	})
}

func (r *Registry) userByPhone(ctx context.Context, phone string) (*users.User, map[string]any) {
	u, err := r.users.ByPhone(ctx, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, map[string]any{"error": "Usuário não encontrado"}
	}
	if err != nil {
		return nil, map[string]any{"error": fmt.Sprintf("Erro ao buscar usuário: %v", err)}
	}
	return u, nil
}

func (r *Registry) handleCheckMealPlan(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, err := r.users.ByPhone(ctx, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"has_plan":             false,
			"message":              "Usuário não encontrado",
			"user_id":              nil,
			"onboarding_completed": false,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar usuário: %w", err)
	}

	if !user.OnboardingCompleted {
		return map[string]any{
			"has_plan":             false,
			"message":              "Usuário precisa completar o onboarding antes de criar plano alimentar",
			"user_id":              user.ID,
			"onboarding_completed": false,
		}, nil
	}

	plan, err := r.plans.ActiveMealPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"has_plan":             false,
			"status":               "no_plan_found",
			"message":              "Perfeito! Vejo que você ainda não possui um plano alimentar ativo. Vamos criar um plano nutricional personalizado para você!",
			"user_id":              user.ID,
			"onboarding_completed": true,
			"action_needed":        "create_plan",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	return map[string]any{
		"has_plan":             true,
		"plan":                 plan,
		"user_id":              user.ID,
		"onboarding_completed": true,
	}, nil
}

func (r *Registry) handleGetFoods(ctx context.Context, args map[string]any) (any, error) {
	foods, err := r.plans.Foods(ctx)
	if err != nil {
		return nil, fmt.Errorf("buscar alimentos: %w", err)
	}
	if len(foods) == 0 {
		return map[string]any{
			"success": false,
			"message": "Nenhum alimento encontrado no banco de dados",
			"foods":   []any{},
		}, nil
	}
	return map[string]any{
		"success": true,
		"foods":   foods,
		"total":   len(foods),
	}, nil
}

func (r *Registry) handleCreateMealPlan(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")
	planName := stringArg(args, "plan_name")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	var startDate, endDate string
	var entries []plans.MealEntry
	if weekly, ok := args["weekly_meals"].(map[string]any); ok {
		startDate, _ = weekly["startDate"].(string)
		endDate, _ = weekly["endDate"].(string)
		if weeklyPlan, ok := weekly["weeklyPlan"].(map[string]any); ok {
			for day, raw := range weeklyPlan {
				meals, ok := raw.([]any)
				if !ok {
					continue
				}
				for _, m := range meals {
					meal, ok := m.(map[string]any)
					if !ok {
						continue
					}
					entries = append(entries, plans.MealEntry{
						DayOfWeek:  day,
						MealType:   stringArg(meal, "mealType"),
						RecipeName: stringArg(meal, "recipeName"),
						Order:      intArg(meal, "order", 1),
					})
				}
			}
		}
	}

	planID, notFound, err := r.plans.CreateMealPlan(ctx, user.ID, planName, startDate, endDate, entries)
	if err != nil {
		return nil, fmt.Errorf("criar plano: %w", err)
	}

	message := fmt.Sprintf("Plano alimentar '%s' criado com sucesso!", planName)
	if len(notFound) > 0 {
		message += " Receitas não encontradas na base de dados: " + strings.Join(notFound, ", ")
	}

	result := map[string]any{
		"success":       true,
		"message":       message,
		"plan_id":       planID,
		"user_id":       user.ID,
		"meals_created": len(entries) - len(notFound),
	}
	if len(notFound) > 0 {
		result["recipes_not_found"] = notFound
	}
	if len(entries) == 0 {
		result["instructions"] = "Plano base criado. As refeições específicas podem ser definidas posteriormente conforme necessário."
	}
	return result, nil
}

func (r *Registry) handleGetTodayMeals(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	plan, err := r.plans.ActiveMealPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": "Nenhum plano alimentar ativo encontrado"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	now := r.now()
	today := plans.Weekday(now)
	meals, err := r.plans.MealsForDay(ctx, plan.ID, today)
	if err != nil {
		return nil, fmt.Errorf("buscar refeições: %w", err)
	}
	if len(meals) == 0 {
		return map[string]any{
			"message": fmt.Sprintf("Nenhuma refeição encontrada para hoje (%s)", today),
			"today":   today,
		}, nil
	}

	return map[string]any{
		"success":     true,
		"plan_name":   plan.Name,
		"today":       today,
		"date":        now.Format("2006-01-02"),
		"meals":       meals,
		"total_meals": len(meals),
	}, nil
}

func (r *Registry) handleGetCurrentMeal(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	plan, err := r.plans.ActiveMealPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": "Nenhum plano alimentar ativo encontrado"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	now := r.now()
	day := plans.Weekday(now)
	slot := plans.MealSlot(now.Hour())

	meal, err := r.plans.MealForSlot(ctx, plan.ID, day, slot)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"message":           fmt.Sprintf("Nenhuma refeição encontrada para %s de %s", slot, day),
			"current_day":       day,
			"current_meal_type": slot,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar refeição: %w", err)
	}

	return map[string]any{
		"success":           true,
		"current_meal":      meal,
		"current_day":       day,
		"current_meal_type": slot,
		"current_time":      now.Format("15:04"),
	}, nil
}

func (r *Registry) handleGetMealPlanDetails(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	plan, err := r.plans.ActiveMealPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": "Nenhum plano alimentar ativo encontrado"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	meals, err := r.plans.PlanMeals(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar refeições: %w", err)
	}

	mealsByDay := make(map[string][]plans.PlannedMeal)
	for _, m := range meals {
		mealsByDay[m.DayOfWeek] = append(mealsByDay[m.DayOfWeek], m)
	}

	return map[string]any{
		"success":      true,
		"plan_name":    plan.Name,
		"start_date":   plan.StartDate,
		"end_date":     plan.EndDate,
		"meals_by_day": mealsByDay,
		"total_meals":  len(meals),
	}, nil
}

func (r *Registry) handleSuggestRecipes(ctx context.Context, args map[string]any) (any, error) {
	mealType := stringArg(args, "meal_type")
	exclude := stringArg(args, "exclude_recipe")

	recipes, err := r.plans.RecipesForMealType(ctx, mealType, exclude, 4)
	if err != nil {
		return nil, fmt.Errorf("buscar sugestões: %w", err)
	}
	if len(recipes) == 0 {
		return map[string]any{"error": "Nenhuma receita encontrada no banco de dados"}, nil
	}

	suggestions := make([]map[string]any, len(recipes))
	for i, recipe := range recipes {
		suggestions[i] = map[string]any{
			"option_number":  i + 1,
			"recipe_name":    recipe.Name,
			"description":    recipe.Description,
			"formatted_text": fmt.Sprintf("%d. %s", i+1, recipe.Name),
		}
	}

	return map[string]any{
		"success":           true,
		"meal_type":         mealType,
		"excluded_recipe":   exclude,
		"suggestions":       suggestions,
		"total_suggestions": len(suggestions),
	}, nil
}

func (r *Registry) handleUpdateMeal(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")
	day := stringArg(args, "day_of_week")
	mealType := stringArg(args, "meal_type")
	newRecipeName := stringArg(args, "new_recipe_name")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	plan, err := r.plans.ActiveMealPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": "Nenhum plano alimentar ativo encontrado"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	recipe, err := r.plans.RecipeByName(ctx, newRecipeName)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"error": fmt.Sprintf("Receita '%s' não encontrada no banco de dados", newRecipeName),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar receita: %w", err)
	}

	oldRecipe, err := r.plans.UpdateMealEntry(ctx, plan.ID, day, mealType, recipe.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"error": fmt.Sprintf("Refeição não encontrada para %s de %s", mealType, day),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("atualizar refeição: %w", err)
	}

	return map[string]any{
		"success":    true,
		"message":    "Refeição atualizada com sucesso!",
		"plan_name":  plan.Name,
		"day":        day,
		"meal_type":  mealType,
		"old_recipe": oldRecipe,
		"new_recipe": recipe.Name,
	}, nil
}

func (r *Registry) handleGetRecipeIngredients(ctx context.Context, args map[string]any) (any, error) {
	recipeName := stringArg(args, "recipe_name")

	recipe, err := r.plans.RecipeByName(ctx, recipeName)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": fmt.Sprintf("Receita '%s' não encontrada", recipeName)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar receita: %w", err)
	}

	ingredients, err := r.plans.RecipeIngredients(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar ingredientes: %w", err)
	}
	if len(ingredients) == 0 {
		return map[string]any{
			"recipe_name": recipe.Name,
			"ingredients": []any{},
			"message":     fmt.Sprintf("Receita '%s' encontrada mas não tem ingredientes cadastrados", recipe.Name),
		}, nil
	}

	return map[string]any{
		"success":           true,
		"recipe_name":       recipe.Name,
		"ingredients":       ingredients,
		"total_ingredients": len(ingredients),
	}, nil
}

var choiceNumberRe = regexp.MustCompile(`\b(\d+)\b`)

var ordinals = map[string]int{
	"primeira": 1, "primeiro": 1, "1ª": 1,
	"segunda": 2, "segundo": 2, "2ª": 2,
	"terceira": 3, "terceiro": 3, "3ª": 3,
	"quarta": 4, "quarto": 4, "4ª": 4,
}

func (r *Registry) handleInterpretChoice(ctx context.Context, args map[string]any) (any, error) {
	message := strings.ToLower(strings.TrimSpace(stringArg(args, "user_message")))

	var suggestions []string
	if raw, ok := args["recent_suggestions"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				suggestions = append(suggestions, s)
			}
		}
	}

	pick := func(n int, how string) (any, error) {
		return map[string]any{
			"success":        true,
			"interpretation": how,
			"choice_number":  n,
			"recipe_name":    suggestions[n-1],
			"message":        fmt.Sprintf("Usuário escolheu opção %d: %s", n, suggestions[n-1]),
		}, nil
	}

	if len(suggestions) > 0 {
		if m := choiceNumberRe.FindString(message); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n >= 1 && n <= len(suggestions) {
				return pick(n, "numeric_from_suggestions")
			}
		}
		for ordinal, n := range ordinals {
			if strings.Contains(message, ordinal) && n <= len(suggestions) {
				return pick(n, "ordinal_from_suggestions")
			}
		}
		for i, name := range suggestions {
			lower := strings.ToLower(name)
			if strings.Contains(lower, message) || strings.Contains(message, lower) {
				return pick(i+1, "name_from_suggestions")
			}
			for _, word := range strings.Fields(message) {
				if len(word) > 3 && strings.Contains(lower, word) {
					return pick(i+1, "keyword_from_suggestions")
				}
			}
		}
	}

	// No usable suggestion list: match against the whole catalog.
	recipes, err := r.plans.Recipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("buscar receitas: %w", err)
	}
	var bestName string
	var bestScore float64
	for _, recipe := range recipes {
		lower := strings.ToLower(recipe.Name)
		if message == lower || strings.Contains(lower, message) {
			return map[string]any{
				"success":        true,
				"interpretation": "exact_match_database",
				"recipe_name":    recipe.Name,
				"message":        fmt.Sprintf("Encontrou receita exata: %s", recipe.Name),
			}, nil
		}
		recipeWords := strings.Fields(lower)
		var common int
		for _, w := range strings.Fields(message) {
			for _, rw := range recipeWords {
				if w == rw {
					common++
					break
				}
			}
		}
		if common > 0 {
			score := float64(common) / float64(len(recipeWords))
			if score > bestScore {
				bestScore = score
				bestName = recipe.Name
			}
		}
	}
	if bestName != "" && bestScore > 0.3 {
		return map[string]any{
			"success":        true,
			"interpretation": "partial_match_database",
			"recipe_name":    bestName,
			"confidence":     bestScore,
			"message":        fmt.Sprintf("Melhor match encontrado: %s", bestName),
		}, nil
	}

	return map[string]any{
		"success":        false,
		"interpretation": "unclear",
		"message":        fmt.Sprintf("Não consegui interpretar '%s'. Pode repetir o número da opção ou o nome da receita?", stringArg(args, "user_message")),
		"user_choice":    stringArg(args, "user_message"),
	}, nil
}
