package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aylahq/ayla-agent/internal/plans"
)

func (r *Registry) registerFitness() {
	r.Register(&Tool{
		Name:        "check_user_training_plan",
		Description: "Verifica se o usuário já possui um plano de treino ativo e se completou o onboarding. Use SEMPRE antes de criar um plano de treino.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleCheckTrainingPlan,
	})

	r.Register(&Tool{
		Name:        "get_available_exercises",
		Description: "Lista exercícios do catálogo, com filtros opcionais por grupo muscular, equipamento e nível de dificuldade.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"muscle_group": map[string]any{
					"type":        "string",
					"description": "Grupo muscular, ex: peito, costas, pernas",
				},
				"equipment": map[string]any{
					"type":        "string",
					"description": "Equipamento necessário, ex: barra, halteres, peso corporal",
				},
				"difficulty": map[string]any{
					"type":        "string",
					"description": "Nível: iniciante, intermediário ou avançado",
				},
			},
		},
		Handler: r.handleGetExercises,
	})

	r.Register(&Tool{
		Name:        "create_weekly_training_plan",
		Description: "Cria e SALVA um plano de treino semanal para o usuário. Os exercícios devem existir no catálogo. Formato de weekly_workouts: {\"segunda-feira\":[{\"exerciseName\":\"Supino Reto\",\"sets\":3,\"reps\":\"10-12\",\"restSeconds\":60,\"order\":1}]}",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone":     phoneSchema(),
				"plan_name": map[string]any{"type": "string", "description": "Nome do plano de treino"},
				"objective": map[string]any{
					"type":        "string",
					"description": "Objetivo do plano, ex: hipertrofia, emagrecimento",
				},
				"weekly_workouts": map[string]any{
					"type":        "object",
					"description": "Dias da semana mapeados para listas de exercícios com séries e repetições",
				},
			},
			"required": []string{"phone", "plan_name"},
		},
		Mutating:      true,
		IdentityParam: "phone",
		Handler:       r.handleCreateTrainingPlan,
	})

	r.Register(&Tool{
		Name:        "get_today_workouts",
		Description: "Busca os exercícios planejados para hoje no plano de treino ativo do usuário.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleGetTodayWorkouts,
	})

	r.Register(&Tool{
		Name:        "get_user_workout_plan_details",
		Description: "Busca todos os detalhes do plano de treino ativo do usuário, organizado por dia da semana.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleGetWorkoutPlanDetails,
	})

	r.Register(&Tool{
		Name:        "suggest_alternative_exercises",
		Description: "Sugere exercícios alternativos REAIS do catálogo para um grupo muscular, numerados para o usuário escolher.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"muscle_group": map[string]any{
					"type":        "string",
					"description": "Grupo muscular alvo",
				},
				"exclude_exercise": map[string]any{
					"type":        "string",
					"description": "Exercício atual a excluir das sugestões",
				},
			},
			"required": []string{"muscle_group"},
		},
		Handler: r.handleSuggestExercises,
	})

	r.Register(&Tool{
		Name:        "update_workout_exercise",
		Description: "Troca um exercício específico no plano de treino ativo do usuário.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
				"day_of_week": map[string]any{
					"type":        "string",
					"description": "Dia da semana, ex: segunda-feira",
				},
				"old_exercise_name": map[string]any{
					"type":        "string",
					"description": "Exercício atual a substituir",
				},
				"exercise_name": map[string]any{
					"type":        "string",
					"description": "Nome do novo exercício",
				},
			},
			"required": []string{"phone", "day_of_week", "exercise_name"},
		},
		Mutating:      true,
		IdentityParam: "phone",
		Handler:       r.handleUpdateWorkout,
	})

	r.Register(&Tool{
		Name:        "get_exercise_details",
		Description: "Busca detalhes de execução de um exercício: grupos musculares, equipamento e instruções.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"exercise_name": map[string]any{"type": "string", "description": "Nome do exercício"},
			},
			"required": []string{"exercise_name"},
		},
		Handler: r.handleGetExerciseDetails,
	})

	r.Register(&Tool{
		Name:        "analyze_onboarding_for_workout_plan",
		Description: "Analisa as respostas de onboarding do usuário e extrai o perfil de treino: objetivo, nível de atividade, restrições e lesões.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleAnalyzeOnboarding,
	})

	r.Register(&Tool{
		Name:        "record_workout_session",
		Description: "Registra um treino realizado pelo usuário, com exercícios, duração e intensidade percebida.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
				"workout_name": map[string]any{
					"type":        "string",
					"description": "Nome do treino realizado",
				},
				"workout_date": map[string]any{
					"type":        "string",
					"description": "Data do treino (YYYY-MM-DD). Padrão: hoje",
				},
				"exercises_performed": map[string]any{
					"type":        "array",
					"description": "Exercícios realizados com séries e cargas",
					"items":       map[string]any{"type": "object"},
				},
				"duration_minutes": map[string]any{
					"type":        "integer",
					"description": "Duração em minutos",
				},
				"intensity_rating": map[string]any{
					"type":        "integer",
					"description": "Intensidade percebida de 1 a 10",
				},
			},
			"required": []string{"phone", "workout_name"},
		},
		Mutating:      true,
		IdentityParam: "phone",
		Handler:       r.handleRecordSession,
	})

	r.Register(&Tool{
		Name:        "get_workout_progress",
		Description: "Busca o histórico de treinos registrados do usuário em um período, com totais de frequência.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": phoneSchema(),
				"period_days": map[string]any{
					"type":        "integer",
					"description": "Janela em dias. Padrão: 30",
				},
			},
			"required": []string{"phone"},
		},
		IdentityParam: "phone",
		Handler:       r.handleGetProgress,
	})
}

func (r *Registry) handleCheckTrainingPlan(ctx context.Context, args map[string]any) (any, error) {
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
			"message":              "Usuário precisa completar o onboarding antes de criar plano de treino",
			"user_id":              user.ID,
			"onboarding_completed": false,
		}, nil
	}

	plan, err := r.plans.ActiveWorkoutPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"has_plan":             false,
			"status":               "no_plan_found",
			"message":              "Perfeito! Vejo que você ainda não possui um plano de treino ativo. Vamos criar um plano de treino personalizado para você!",
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

func (r *Registry) handleGetExercises(ctx context.Context, args map[string]any) (any, error) {
	filter := plans.ExerciseFilter{
		MuscleGroup: stringArg(args, "muscle_group"),
		Equipment:   stringArg(args, "equipment"),
		Difficulty:  stringArg(args, "difficulty"),
	}
	exercises, err := r.plans.Exercises(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("buscar exercícios: %w", err)
	}
	if len(exercises) == 0 {
		return map[string]any{
			"success":   false,
			"message":   "Nenhum exercício encontrado com os filtros informados",
			"exercises": []any{},
		}, nil
	}
	return map[string]any{
		"success":   true,
		"exercises": exercises,
		"total":     len(exercises),
	}, nil
}

func (r *Registry) handleCreateTrainingPlan(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")
	planName := stringArg(args, "plan_name")
	objective := stringArg(args, "objective")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	var entries []plans.WorkoutEntry
	if weekly, ok := args["weekly_workouts"].(map[string]any); ok {
		for day, raw := range weekly {
			workouts, ok := raw.([]any)
			if !ok {
				continue
			}
			for _, w := range workouts {
				workout, ok := w.(map[string]any)
				if !ok {
					continue
				}
				entries = append(entries, plans.WorkoutEntry{
					DayOfWeek:    day,
					ExerciseName: stringArg(workout, "exerciseName"),
					Sets:         intArg(workout, "sets", 0),
					Reps:         stringArg(workout, "reps"),
					RestSeconds:  intArg(workout, "restSeconds", 0),
					Order:        intArg(workout, "order", 0),
				})
			}
		}
	}

	planID, notFound, err := r.plans.CreateWorkoutPlan(ctx, user.ID, planName, objective, entries)
	if err != nil {
		return nil, fmt.Errorf("criar plano: %w", err)
	}

	message := fmt.Sprintf("Plano de treino '%s' criado com sucesso!", planName)
	if len(notFound) > 0 {
		message += " Exercícios não encontrados na base de dados: " + strings.Join(notFound, ", ")
	}

	result := map[string]any{
		"success":          true,
		"message":          message,
		"plan_id":          planID,
		"user_id":          user.ID,
		"workouts_created": len(entries) - len(notFound),
	}
	if len(notFound) > 0 {
		result["exercises_not_found"] = notFound
	}
	return result, nil
}

func (r *Registry) handleGetTodayWorkouts(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	plan, err := r.plans.ActiveWorkoutPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": "Nenhum plano de treino ativo encontrado"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	now := r.now()
	today := plans.Weekday(now)
	workouts, err := r.plans.WorkoutsForDay(ctx, plan.ID, today)
	if err != nil {
		return nil, fmt.Errorf("buscar treinos: %w", err)
	}
	if len(workouts) == 0 {
		return map[string]any{
			"message": fmt.Sprintf("Nenhum treino encontrado para hoje (%s). Dia de descanso!", today),
			"today":   today,
		}, nil
	}

	return map[string]any{
		"success":         true,
		"plan_name":       plan.Name,
		"today":           today,
		"date":            now.Format("2006-01-02"),
		"workouts":        workouts,
		"total_exercises": len(workouts),
	}, nil
}

func (r *Registry) handleGetWorkoutPlanDetails(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	plan, err := r.plans.ActiveWorkoutPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": "Nenhum plano de treino ativo encontrado"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	workouts, err := r.plans.PlanWorkouts(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar treinos: %w", err)
	}

	workoutsByDay := make(map[string][]plans.PlannedWorkout)
	for _, w := range workouts {
		workoutsByDay[w.DayOfWeek] = append(workoutsByDay[w.DayOfWeek], w)
	}

	return map[string]any{
		"success":         true,
		"plan_name":       plan.Name,
		"objective":       plan.Objective,
		"workouts_by_day": workoutsByDay,
		"total_exercises": len(workouts),
	}, nil
}

func (r *Registry) handleSuggestExercises(ctx context.Context, args map[string]any) (any, error) {
	muscleGroup := stringArg(args, "muscle_group")
	exclude := stringArg(args, "exclude_exercise")

	exercises, err := r.plans.AlternativeExercises(ctx, muscleGroup, exclude, 4)
	if err != nil {
		return nil, fmt.Errorf("buscar sugestões: %w", err)
	}
	if len(exercises) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Nenhum exercício encontrado para o grupo muscular '%s'", muscleGroup),
		}, nil
	}

	suggestions := make([]map[string]any, len(exercises))
	for i, exercise := range exercises {
		suggestions[i] = map[string]any{
			"option_number":  i + 1,
			"exercise_name":  exercise.Name,
			"equipment":      exercise.EquipmentNeeded,
			"difficulty":     exercise.DifficultyLevel,
			"formatted_text": fmt.Sprintf("%d. %s", i+1, exercise.Name),
		}
	}

	return map[string]any{
		"success":           true,
		"muscle_group":      muscleGroup,
		"excluded_exercise": exclude,
		"suggestions":       suggestions,
		"total_suggestions": len(suggestions),
	}, nil
}

func (r *Registry) handleUpdateWorkout(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")
	day := stringArg(args, "day_of_week")
	oldName := stringArg(args, "old_exercise_name")
	newName := stringArg(args, "exercise_name")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	plan, err := r.plans.ActiveWorkoutPlan(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": "Nenhum plano de treino ativo encontrado"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar plano: %w", err)
	}

	exercise, err := r.plans.ExerciseByName(ctx, newName)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"error": fmt.Sprintf("Exercício '%s' não encontrado no banco de dados", newName),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar exercício: %w", err)
	}

	oldExercise, err := r.plans.UpdateWorkoutEntry(ctx, plan.ID, day, oldName, exercise.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"error": fmt.Sprintf("Nenhum treino encontrado para %s", day),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("atualizar treino: %w", err)
	}

	return map[string]any{
		"success":      true,
		"message":      "Exercício atualizado com sucesso!",
		"plan_name":    plan.Name,
		"day":          day,
		"old_exercise": oldExercise,
		"new_exercise": exercise.Name,
	}, nil
}

func (r *Registry) handleGetExerciseDetails(ctx context.Context, args map[string]any) (any, error) {
	name := stringArg(args, "exercise_name")

	exercise, err := r.plans.ExerciseByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"error": fmt.Sprintf("Exercício '%s' não encontrado", name)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar exercício: %w", err)
	}

	return map[string]any{
		"success":  true,
		"exercise": exercise,
	}, nil
}

// Onboarding field names feeding the training profile.
const (
	fieldGoal         = "goal"
	fieldActivity     = "activity_level"
	fieldRestrictions = "restrictions"
	fieldInjuries     = "injuries"
	fieldAge          = "age"
)

func (r *Registry) handleAnalyzeOnboarding(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	responses, err := r.users.Responses(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar respostas: %w", err)
	}
	if len(responses) == 0 {
		return map[string]any{
			"success": false,
			"message": "Nenhuma resposta de onboarding encontrada para este usuário",
			"user_id": user.ID,
		}, nil
	}

	profile := map[string]any{
		"goal":           "",
		"activity_level": "",
		"restrictions":   "",
		"injuries":       "",
		"age":            "",
	}
	for _, resp := range responses {
		switch resp.FieldName {
		case fieldGoal:
			profile["goal"] = resp.Value
		case fieldActivity:
			profile["activity_level"] = resp.Value
		case fieldRestrictions:
			profile["restrictions"] = resp.Value
		case fieldInjuries:
			profile["injuries"] = resp.Value
		case fieldAge:
			profile["age"] = resp.Value
		}
	}

	var recommendations []string
	switch {
	case strings.Contains(strings.ToLower(profile["activity_level"].(string)), "sedentário"):
		recommendations = append(recommendations,
			"Começar com 3 dias de treino por semana",
			"Priorizar exercícios de peso corporal e cargas leves")
	case strings.Contains(strings.ToLower(profile["activity_level"].(string)), "muito ativo"):
		recommendations = append(recommendations,
			"Plano de 5 a 6 dias com divisão por grupo muscular")
	default:
		recommendations = append(recommendations,
			"Plano de 4 dias alternando membros superiores e inferiores")
	}
	if injuries := profile["injuries"].(string); injuries != "" && !strings.EqualFold(injuries, "nenhuma") {
		recommendations = append(recommendations,
			"Evitar exercícios que sobrecarreguem: "+injuries)
	}

	return map[string]any{
		"success":          true,
		"user_id":          user.ID,
		"training_profile": profile,
		"recommendations":  recommendations,
		"total_responses":  len(responses),
	}, nil
}

func (r *Registry) handleRecordSession(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")
	workoutName := stringArg(args, "workout_name")
	workoutDate := stringArg(args, "workout_date")

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	var exercises json.RawMessage
	if raw, ok := args["exercises_performed"]; ok && raw != nil {
		if b, err := json.Marshal(raw); err == nil {
			exercises = b
		}
	}

	sessionID, err := r.plans.RecordSession(ctx, user.ID, workoutDate, workoutName,
		exercises, intArg(args, "duration_minutes", 0), intArg(args, "intensity_rating", 0))
	if err != nil {
		return nil, fmt.Errorf("registrar treino: %w", err)
	}

	return map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("Treino '%s' registrado com sucesso! 💪", workoutName),
		"session_id": sessionID,
	}, nil
}

func (r *Registry) handleGetProgress(ctx context.Context, args map[string]any) (any, error) {
	phone := stringArg(args, "phone")
	periodDays := intArg(args, "period_days", 30)

	user, errPayload := r.userByPhone(ctx, phone)
	if errPayload != nil {
		return errPayload, nil
	}

	sessions, err := r.plans.Sessions(ctx, user.ID, periodDays)
	if err != nil {
		return nil, fmt.Errorf("buscar histórico: %w", err)
	}
	if len(sessions) == 0 {
		return map[string]any{
			"success":     false,
			"message":     fmt.Sprintf("Nenhum treino registrado nos últimos %d dias", periodDays),
			"period_days": periodDays,
			"sessions":    []any{},
		}, nil
	}

	var totalMinutes, ratedSessions, ratingSum int
	for _, s := range sessions {
		totalMinutes += s.DurationMinutes
		if s.IntensityRating > 0 {
			ratedSessions++
			ratingSum += s.IntensityRating
		}
	}
	result := map[string]any{
		"success":        true,
		"period_days":    periodDays,
		"total_workouts": len(sessions),
		"total_minutes":  totalMinutes,
		"sessions":       sessions,
	}
	if ratedSessions > 0 {
		result["average_intensity"] = float64(ratingSum) / float64(ratedSessions)
	}
	return result, nil
}
