package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aylahq/ayla-agent/internal/plans"
	"github.com/aylahq/ayla-agent/internal/users"
)

// Monday morning, breakfast hours.
var testClock = func() time.Time {
	return time.Date(2026, 8, 24, 8, 30, 0, 0, time.Local)
}

func newTestRegistry(t *testing.T) (*Registry, *users.Store) {
	t.Helper()

	userFile, err := os.CreateTemp("", "users-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	userFile.Close()
	t.Cleanup(func() { os.Remove(userFile.Name()) })

	planFile, err := os.CreateTemp("", "plans-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	planFile.Close()
	t.Cleanup(func() { os.Remove(planFile.Name()) })

	userStore, err := users.NewStore(userFile.Name())
	if err != nil {
		t.Fatalf("open user store: %v", err)
	}
	t.Cleanup(func() { userStore.Close() })

	planStore, err := plans.NewStore(planFile.Name())
	if err != nil {
		t.Fatalf("open plan store: %v", err)
	}
	t.Cleanup(func() { planStore.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	lookup := users.NewLookup(userStore, "https://app.ayla.fit/onboarding", logger)
	reg := NewRegistry(userStore, lookup, planStore, logger, WithClock(testClock))
	return reg, userStore
}

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("result is not JSON: %v\nraw: %s", err, raw)
	}
	return out
}

func completeUser(t *testing.T, store *users.Store, phone string) *users.User {
	t.Helper()
	ctx := context.Background()
	u, _, err := store.Create(ctx, "Maria Silva", "29", "maria@example.com", phone)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CompleteOnboarding(ctx, u.ID); err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
	u.OnboardingCompleted = true
	return u
}

func TestExecuteUnknownTool(t *testing.T) {
	reg, _ := newTestRegistry(t)

	result := decode(t, reg.Execute(context.Background(), "launch_rocket", "{}", "5511999990000"))
	if result["error"] != "tool 'launch_rocket' not found" {
		t.Errorf("error = %v", result["error"])
	}
}

func TestExecuteInvalidArguments(t *testing.T) {
	reg, _ := newTestRegistry(t)

	result := decode(t, reg.Execute(context.Background(), "get_recipe_ingredients", "{not json", "5511999990000"))
	errMsg, _ := result["error"].(string)
	if !strings.HasPrefix(errMsg, "invalid arguments") {
		t.Errorf("error = %q, want invalid arguments prefix", errMsg)
	}
}

func TestExecuteMissingRequired(t *testing.T) {
	reg, _ := newTestRegistry(t)

	result := decode(t, reg.Execute(context.Background(), "get_recipe_ingredients", "{}", "5511999990000"))
	if result["error"] != "missing required parameters: recipe_name" {
		t.Errorf("error = %v", result["error"])
	}
}

func TestExecuteOverwritesIdentity(t *testing.T) {
	reg, _ := newTestRegistry(t)

	var seen string
	reg.Register(&Tool{
		Name:          "echo_identity",
		Parameters:    map[string]any{"type": "object", "properties": map[string]any{}},
		IdentityParam: "phone",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			seen = stringArg(args, "phone")
			return map[string]any{"ok": true}, nil
		},
	})

	reg.Execute(context.Background(), "echo_identity", `{"phone":"5599000000000"}`, "5511999990000")
	if seen != "5511999990000" {
		t.Errorf("handler saw phone %q, want caller identity", seen)
	}
}

func TestCatalogListsFunctions(t *testing.T) {
	reg, _ := newTestRegistry(t)

	list := reg.List()
	if len(list) != 24 {
		t.Fatalf("catalog has %d tools, want 24", len(list))
	}
	for _, entry := range list {
		if entry["type"] != "function" {
			t.Errorf("entry type = %v", entry["type"])
		}
		fn, ok := entry["function"].(map[string]any)
		if !ok || fn["name"] == "" {
			t.Errorf("malformed function entry: %v", entry)
		}
	}

	names := reg.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

func TestOnboardingTools(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	phone := "5511988887777"

	t.Run("questions seeded", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_onboarding_questions", "{}", phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		questions, _ := result["questions"].([]any)
		if len(questions) < 5 {
			t.Errorf("got %d questions, want the seeded questionnaire", len(questions))
		}
	})

	t.Run("no responses before signup", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_user_onboarding_responses", "{}", phone))
		if result["success"] != false {
			t.Errorf("success = %v, want false for unknown user", result["success"])
		}
	})

	t.Run("create account", func(t *testing.T) {
		args := `{"name":"João Santos","age":"35","email":"joao@example.com","phone":"model-supplied-garbage"}`
		result := decode(t, reg.Execute(ctx, "create_user_and_save_onboarding", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		if result["temp_password"] == "" {
			t.Error("no temporary password returned")
		}
		url, _ := result["onboarding_url"].(string)
		if !strings.HasPrefix(url, "https://app.ayla.fit/onboarding/") {
			t.Errorf("onboarding_url = %q", url)
		}
		msg, _ := result["message"].(string)
		if !strings.Contains(msg, "Conta criada com sucesso") {
			t.Errorf("message = %q", msg)
		}
	})

	t.Run("responses after signup", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_user_onboarding_responses", "{}", phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		responses, _ := result["responses"].([]any)
		if len(responses) < 3 {
			t.Errorf("got %d responses, want name, age and email", len(responses))
		}
	})

	t.Run("duplicate phone is data not error", func(t *testing.T) {
		args := `{"name":"João Santos","age":"35","email":"joao@example.com","phone":"x"}`
		result := decode(t, reg.Execute(ctx, "create_user_and_save_onboarding", args, phone))
		if result["success"] != false {
			t.Errorf("success = %v, want false on duplicate", result["success"])
		}
	})
}

func TestNutritionTools(t *testing.T) {
	reg, userStore := newTestRegistry(t)
	ctx := context.Background()
	phone := "5511977776666"

	t.Run("check without account", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "check_user_meal_plan", "{}", phone))
		if result["has_plan"] != false {
			t.Errorf("has_plan = %v", result["has_plan"])
		}
		if result["message"] != "Usuário não encontrado" {
			t.Errorf("message = %v", result["message"])
		}
	})

	completeUser(t, userStore, phone)

	t.Run("check without plan asks to create", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "check_user_meal_plan", "{}", phone))
		if result["has_plan"] != false {
			t.Errorf("has_plan = %v", result["has_plan"])
		}
		if result["status"] != "no_plan_found" {
			t.Errorf("status = %v", result["status"])
		}
		if result["action_needed"] != "create_plan" {
			t.Errorf("action_needed = %v", result["action_needed"])
		}
		if result["onboarding_completed"] != true {
			t.Errorf("onboarding_completed = %v", result["onboarding_completed"])
		}
	})

	t.Run("catalog has seeded foods", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_available_foods", "{}", phone))
		if result["success"] != true {
			t.Fatalf("success = %v", result["success"])
		}
		if result["total"].(float64) == 0 {
			t.Error("empty food catalog")
		}
	})

	t.Run("create weekly plan", func(t *testing.T) {
		args := `{
			"plan_name": "Plano Semana 1",
			"weekly_meals": {
				"startDate": "2026-08-24",
				"endDate": "2026-08-31",
				"weeklyPlan": {
					"segunda-feira": [
						{"mealType": "Café da Manhã", "recipeName": "Omelete de Ovos com Tomate", "order": 1},
						{"mealType": "Almoço", "recipeName": "Frango Grelhado com Quinoa", "order": 2},
						{"mealType": "Jantar", "recipeName": "Salmão com Legumes", "order": 3}
					],
					"terça-feira": [
						{"mealType": "Almoço", "recipeName": "Receita Inventada", "order": 1}
					]
				}
			}
		}`
		result := decode(t, reg.Execute(ctx, "create_weekly_meal_plan", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		notFound, _ := result["recipes_not_found"].([]any)
		if len(notFound) != 1 || notFound[0] != "Receita Inventada" {
			t.Errorf("recipes_not_found = %v", notFound)
		}
		if result["meals_created"].(float64) != 3 {
			t.Errorf("meals_created = %v", result["meals_created"])
		}
	})

	t.Run("today meals on Monday", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_today_meals", "{}", phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		if result["today"] != "segunda-feira" {
			t.Errorf("today = %v", result["today"])
		}
		meals, _ := result["meals"].([]any)
		if len(meals) != 3 {
			t.Errorf("got %d meals, want 3", len(meals))
		}
	})

	t.Run("current meal at breakfast time", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_user_current_meal", "{}", phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		if result["current_meal_type"] != "Café da Manhã" {
			t.Errorf("current_meal_type = %v", result["current_meal_type"])
		}
		meal, _ := result["current_meal"].(map[string]any)
		if meal["recipe_name"] != "Omelete de Ovos com Tomate" {
			t.Errorf("recipe = %v", meal["recipe_name"])
		}
	})

	t.Run("suggestions exclude current recipe", func(t *testing.T) {
		args := `{"meal_type":"Café da Manhã","exclude_recipe":"Omelete de Ovos com Tomate"}`
		result := decode(t, reg.Execute(ctx, "suggest_alternative_recipes", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v", result["success"])
		}
		suggestions, _ := result["suggestions"].([]any)
		if len(suggestions) == 0 || len(suggestions) > 4 {
			t.Fatalf("got %d suggestions", len(suggestions))
		}
		for _, s := range suggestions {
			name := s.(map[string]any)["recipe_name"]
			if name == "Omelete de Ovos com Tomate" {
				t.Error("excluded recipe was suggested")
			}
		}
	})

	t.Run("swap a meal", func(t *testing.T) {
		args := `{"day_of_week":"segunda-feira","meal_type":"Café da Manhã","new_recipe_name":"Vitamina de Banana com Aveia"}`
		result := decode(t, reg.Execute(ctx, "update_meal_in_plan", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["error"])
		}
		if result["old_recipe"] != "Omelete de Ovos com Tomate" {
			t.Errorf("old_recipe = %v", result["old_recipe"])
		}
		if result["new_recipe"] != "Vitamina de Banana com Aveia" {
			t.Errorf("new_recipe = %v", result["new_recipe"])
		}
	})

	t.Run("recipe ingredients", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_recipe_ingredients", `{"recipe_name":"Frango Grelhado com Quinoa"}`, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["error"])
		}
		ingredients, _ := result["ingredients"].([]any)
		if len(ingredients) == 0 {
			t.Error("no ingredients returned")
		}
	})
}

func TestInterpretUserChoice(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	phone := "5511966665555"
	suggestions := `["Omelete de Ovos com Tomate","Vitamina de Banana com Aveia","Panqueca de Aveia com Morango"]`

	tests := []struct {
		name           string
		message        string
		wantRecipe     string
		interpretation string
	}{
		{"numeric choice", "quero a 2", "Vitamina de Banana com Aveia", "numeric_from_suggestions"},
		{"ordinal choice", "pode ser a primeira", "Omelete de Ovos com Tomate", "ordinal_from_suggestions"},
		{"keyword choice", "a panqueca parece boa", "Panqueca de Aveia com Morango", "keyword_from_suggestions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, _ := json.Marshal(map[string]any{
				"user_message":       tt.message,
				"recent_suggestions": json.RawMessage(suggestions),
			})
			result := decode(t, reg.Execute(ctx, "interpret_user_choice", string(args), phone))
			if result["success"] != true {
				t.Fatalf("success = %v: %v", result["success"], result["message"])
			}
			if result["recipe_name"] != tt.wantRecipe {
				t.Errorf("recipe_name = %v, want %q", result["recipe_name"], tt.wantRecipe)
			}
			if result["interpretation"] != tt.interpretation {
				t.Errorf("interpretation = %v, want %q", result["interpretation"], tt.interpretation)
			}
		})
	}

	t.Run("database fallback without suggestions", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "interpret_user_choice", `{"user_message":"wrap de frango"}`, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		if result["recipe_name"] != "Wrap de Frango" {
			t.Errorf("recipe_name = %v", result["recipe_name"])
		}
	})

	t.Run("unclear choice", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "interpret_user_choice", `{"user_message":"hmm talvez"}`, phone))
		if result["success"] != false {
			t.Errorf("success = %v, want false", result["success"])
		}
		if result["interpretation"] != "unclear" {
			t.Errorf("interpretation = %v", result["interpretation"])
		}
	})
}

func TestFitnessTools(t *testing.T) {
	reg, userStore := newTestRegistry(t)
	ctx := context.Background()
	phone := "5511955554444"

	completeUser(t, userStore, phone)

	t.Run("check without plan asks to create", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "check_user_training_plan", "{}", phone))
		if result["has_plan"] != false {
			t.Errorf("has_plan = %v", result["has_plan"])
		}
		if result["action_needed"] != "create_plan" {
			t.Errorf("action_needed = %v", result["action_needed"])
		}
	})

	t.Run("exercise catalog filters", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_available_exercises", `{"muscle_group":"peito"}`, phone))
		if result["success"] != true {
			t.Fatalf("success = %v", result["success"])
		}
		exercises, _ := result["exercises"].([]any)
		for _, e := range exercises {
			group := e.(map[string]any)["primary_muscle_group"]
			if group != "peito" {
				t.Errorf("filter leaked exercise with group %v", group)
			}
		}
	})

	t.Run("create weekly plan", func(t *testing.T) {
		args := `{
			"plan_name": "Treino ABC",
			"objective": "hipertrofia",
			"weekly_workouts": {
				"segunda-feira": [
					{"exerciseName": "Supino Reto", "sets": 4, "reps": "8-10", "restSeconds": 90, "order": 1},
					{"exerciseName": "Agachamento Livre", "order": 2}
				]
			}
		}`
		result := decode(t, reg.Execute(ctx, "create_weekly_training_plan", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		if result["workouts_created"].(float64) != 2 {
			t.Errorf("workouts_created = %v", result["workouts_created"])
		}
	})

	t.Run("today workouts on Monday", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_today_workouts", "{}", phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["message"])
		}
		workouts, _ := result["workouts"].([]any)
		if len(workouts) != 2 {
			t.Fatalf("got %d workouts, want 2", len(workouts))
		}
		first := workouts[0].(map[string]any)
		if first["exercise_name"] != "Supino Reto" {
			t.Errorf("first exercise = %v", first["exercise_name"])
		}
		if first["sets"].(float64) != 4 {
			t.Errorf("sets = %v", first["sets"])
		}
		second := workouts[1].(map[string]any)
		if second["sets"].(float64) != 3 || second["reps"] != "10-12" {
			t.Errorf("default prescription not applied: %v", second)
		}
	})

	t.Run("plan details grouped by day", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_user_workout_plan_details", "{}", phone))
		if result["success"] != true {
			t.Fatalf("success = %v", result["success"])
		}
		if result["objective"] != "hipertrofia" {
			t.Errorf("objective = %v", result["objective"])
		}
		byDay, _ := result["workouts_by_day"].(map[string]any)
		if len(byDay["segunda-feira"].([]any)) != 2 {
			t.Errorf("workouts_by_day = %v", byDay)
		}
	})

	t.Run("suggest alternatives", func(t *testing.T) {
		args := `{"muscle_group":"peito","exclude_exercise":"Supino Reto"}`
		result := decode(t, reg.Execute(ctx, "suggest_alternative_exercises", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["error"])
		}
		for _, s := range result["suggestions"].([]any) {
			if s.(map[string]any)["exercise_name"] == "Supino Reto" {
				t.Error("excluded exercise was suggested")
			}
		}
	})

	t.Run("swap an exercise", func(t *testing.T) {
		args := `{"day_of_week":"segunda-feira","old_exercise_name":"Supino Reto","exercise_name":"Crucifixo com Halteres"}`
		result := decode(t, reg.Execute(ctx, "update_workout_exercise", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["error"])
		}
		if result["old_exercise"] != "Supino Reto" {
			t.Errorf("old_exercise = %v", result["old_exercise"])
		}
	})

	t.Run("exercise details", func(t *testing.T) {
		result := decode(t, reg.Execute(ctx, "get_exercise_details", `{"exercise_name":"supino reto"}`, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["error"])
		}
		exercise, _ := result["exercise"].(map[string]any)
		if exercise["name"] != "Supino Reto" {
			t.Errorf("name = %v", exercise["name"])
		}
	})

	t.Run("record and review sessions", func(t *testing.T) {
		args := `{"workout_name":"Treino A","duration_minutes":55,"intensity_rating":8,
			"exercises_performed":[{"name":"Supino Reto","sets":4}]}`
		result := decode(t, reg.Execute(ctx, "record_workout_session", args, phone))
		if result["success"] != true {
			t.Fatalf("success = %v: %v", result["success"], result["error"])
		}

		progress := decode(t, reg.Execute(ctx, "get_workout_progress", `{"period_days":7}`, phone))
		if progress["success"] != true {
			t.Fatalf("success = %v: %v", progress["success"], progress["message"])
		}
		if progress["total_workouts"].(float64) != 1 {
			t.Errorf("total_workouts = %v", progress["total_workouts"])
		}
		if progress["average_intensity"].(float64) != 8 {
			t.Errorf("average_intensity = %v", progress["average_intensity"])
		}
	})

	t.Run("progress empty window", func(t *testing.T) {
		other := "5511944443333"
		completeUser(t, userStore, other)
		result := decode(t, reg.Execute(ctx, "get_workout_progress", "{}", other))
		if result["success"] != false {
			t.Errorf("success = %v, want false with no sessions", result["success"])
		}
	})
}

func TestAnalyzeOnboarding(t *testing.T) {
	reg, userStore := newTestRegistry(t)
	ctx := context.Background()
	phone := "5511933332222"

	u := completeUser(t, userStore, phone)

	questions, err := userStore.Questions(ctx)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	answers := map[string]string{
		"goal":           "Ganhar massa muscular",
		"activity_level": "Sedentário",
		"injuries":       "Dor no joelho esquerdo",
	}
	for _, q := range questions {
		if v, ok := answers[q.FieldName]; ok {
			if err := userStore.SaveResponse(ctx, u.ID, q.ID, v); err != nil {
				t.Fatalf("save response: %v", err)
			}
		}
	}

	result := decode(t, reg.Execute(ctx, "analyze_onboarding_for_workout_plan", "{}", phone))
	if result["success"] != true {
		t.Fatalf("success = %v: %v", result["success"], result["message"])
	}
	profile, _ := result["training_profile"].(map[string]any)
	if profile["goal"] != "Ganhar massa muscular" {
		t.Errorf("goal = %v", profile["goal"])
	}
	if profile["activity_level"] != "Sedentário" {
		t.Errorf("activity_level = %v", profile["activity_level"])
	}

	recommendations, _ := result["recommendations"].([]any)
	var sawBeginnerPace, sawInjuryCare bool
	for _, rec := range recommendations {
		s, _ := rec.(string)
		if strings.Contains(s, "3 dias") {
			sawBeginnerPace = true
		}
		if strings.Contains(s, "joelho") {
			sawInjuryCare = true
		}
	}
	if !sawBeginnerPace {
		t.Errorf("no sedentary pacing recommendation in %v", recommendations)
	}
	if !sawInjuryCare {
		t.Errorf("no injury caution in %v", recommendations)
	}
}
