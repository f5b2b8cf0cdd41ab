package plans

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "ayla-plans-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := NewStore(tmpFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSeededCatalog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	foods, err := store.Foods(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(foods) == 0 {
		t.Fatal("seed left the food catalog empty")
	}

	recipes, err := store.Recipes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipes) == 0 {
		t.Fatal("seed left the recipe catalog empty")
	}

	exercises, err := store.Exercises(ctx, ExerciseFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(exercises) == 0 {
		t.Fatal("seed left the exercise catalog empty")
	}
}

func TestRecipeByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Exact, case-insensitive, and partial matches all resolve.
	for _, name := range []string{"Salmão com Legumes", "salmão com legumes", "Salmão"} {
		r, err := store.RecipeByName(ctx, name)
		if err != nil {
			t.Fatalf("RecipeByName(%q): %v", name, err)
		}
		if r.Name != "Salmão com Legumes" {
			t.Errorf("RecipeByName(%q) = %q", name, r.Name)
		}
	}

	if _, err := store.RecipeByName(ctx, "Feijoada Completa"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("unknown recipe error = %v, want sql.ErrNoRows", err)
	}
}

func TestRecipeIngredients(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r, err := store.RecipeByName(ctx, "Frango Grelhado com Quinoa")
	if err != nil {
		t.Fatal(err)
	}
	ingredients, err := store.RecipeIngredients(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ingredients) != 3 {
		t.Fatalf("got %d ingredients, want 3", len(ingredients))
	}
	for i := 1; i < len(ingredients); i++ {
		if ingredients[i].QuantityGrams > ingredients[i-1].QuantityGrams {
			t.Fatal("ingredients not ordered by quantity")
		}
	}
}

func TestRecipesForMealType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	breakfast, err := store.RecipesForMealType(ctx, MealBreakfast, "", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(breakfast) == 0 || len(breakfast) > 4 {
		t.Fatalf("got %d breakfast suggestions, want 1..4", len(breakfast))
	}

	// Exclusion removes the named recipe from the pool.
	withExclusion, err := store.RecipesForMealType(ctx, MealLunch, "Salmão com Legumes", 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range withExclusion {
		if r.Name == "Salmão com Legumes" {
			t.Error("excluded recipe still suggested")
		}
	}
}

func TestMealPlanLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const userID = "user-1"

	if _, err := store.ActiveMealPlan(ctx, userID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("fresh user plan error = %v, want sql.ErrNoRows", err)
	}

	entries := []MealEntry{
		{DayOfWeek: "segunda-feira", MealType: MealBreakfast, RecipeName: "Omelete de Ovos com Tomate", Order: 1},
		{DayOfWeek: "segunda-feira", MealType: MealLunch, RecipeName: "Frango Grelhado com Quinoa", Order: 2},
		{DayOfWeek: "terça-feira", MealType: MealDinner, RecipeName: "Salmão com Legumes", Order: 1},
		{DayOfWeek: "terça-feira", MealType: MealLunch, RecipeName: "Receita Inexistente", Order: 2},
	}
	planID, notFound, err := store.CreateMealPlan(ctx, userID, "Plano Semanal", "", "", entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(notFound) != 1 || notFound[0] != "Receita Inexistente" {
		t.Errorf("notFound = %v, want the one unknown recipe", notFound)
	}

	plan, err := store.ActiveMealPlan(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if plan.ID != planID || plan.Name != "Plano Semanal" {
		t.Errorf("active plan = %+v", plan)
	}

	monday, err := store.MealsForDay(ctx, planID, "segunda-feira")
	if err != nil {
		t.Fatal(err)
	}
	if len(monday) != 2 {
		t.Fatalf("got %d monday meals, want 2", len(monday))
	}

	meal, err := store.MealForSlot(ctx, planID, "terça-feira", MealDinner)
	if err != nil {
		t.Fatal(err)
	}
	if meal.RecipeName != "Salmão com Legumes" {
		t.Errorf("tuesday dinner = %q", meal.RecipeName)
	}

	// A second plan replaces the first.
	newID, _, err := store.CreateMealPlan(ctx, userID, "Plano Novo", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	plan, err = store.ActiveMealPlan(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if plan.ID != newID {
		t.Error("old plan still active after creating a new one")
	}
}

func TestUpdateMealEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	planID, _, err := store.CreateMealPlan(ctx, "user-1", "Plano", "", "", []MealEntry{
		{DayOfWeek: "quarta-feira", MealType: MealLunch, RecipeName: "Wrap de Frango"},
	})
	if err != nil {
		t.Fatal(err)
	}

	replacement, err := store.RecipeByName(ctx, "Tilápia Assada com Batata Doce")
	if err != nil {
		t.Fatal(err)
	}
	old, err := store.UpdateMealEntry(ctx, planID, "quarta-feira", MealLunch, replacement.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old != "Wrap de Frango" {
		t.Errorf("replaced recipe = %q, want Wrap de Frango", old)
	}

	meal, err := store.MealForSlot(ctx, planID, "quarta-feira", MealLunch)
	if err != nil {
		t.Fatal(err)
	}
	if meal.RecipeName != replacement.Name {
		t.Errorf("slot now holds %q, want %q", meal.RecipeName, replacement.Name)
	}

	if _, err := store.UpdateMealEntry(ctx, planID, "domingo", MealLunch, replacement.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("updating an empty slot = %v, want sql.ErrNoRows", err)
	}
}

func TestWorkoutPlanLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const userID = "user-1"

	entries := []WorkoutEntry{
		{DayOfWeek: "segunda-feira", ExerciseName: "Supino Reto", Sets: 4, Reps: "8-10", Order: 1},
		{DayOfWeek: "segunda-feira", ExerciseName: "Crucifixo com Halteres", Order: 2},
		{DayOfWeek: "quarta-feira", ExerciseName: "Agachamento Livre", Order: 1},
		{DayOfWeek: "quarta-feira", ExerciseName: "Exercício Fantasma", Order: 2},
	}
	planID, notFound, err := store.CreateWorkoutPlan(ctx, userID, "Treino ABC", "hipertrofia", entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(notFound) != 1 {
		t.Errorf("notFound = %v, want the one unknown exercise", notFound)
	}

	plan, err := store.ActiveWorkoutPlan(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if plan.ID != planID || plan.Objective != "hipertrofia" {
		t.Errorf("active plan = %+v", plan)
	}

	monday, err := store.WorkoutsForDay(ctx, planID, "segunda-feira")
	if err != nil {
		t.Fatal(err)
	}
	if len(monday) != 2 {
		t.Fatalf("got %d monday workouts, want 2", len(monday))
	}
	if monday[0].Sets != 4 || monday[0].Reps != "8-10" {
		t.Errorf("explicit sets/reps lost: %+v", monday[0])
	}
	// Defaults fill in unset prescription fields.
	if monday[1].Sets != 3 || monday[1].Reps != "10-12" || monday[1].RestSeconds != 60 {
		t.Errorf("defaults not applied: %+v", monday[1])
	}
}

func TestUpdateWorkoutEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	planID, _, err := store.CreateWorkoutPlan(ctx, "user-1", "Treino", "", []WorkoutEntry{
		{DayOfWeek: "sexta-feira", ExerciseName: "Supino Reto", Order: 1},
		{DayOfWeek: "sexta-feira", ExerciseName: "Flexão de Braço", Order: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	replacement, err := store.ExerciseByName(ctx, "Crucifixo com Halteres")
	if err != nil {
		t.Fatal(err)
	}

	// Named replacement targets the matching entry, not the first.
	old, err := store.UpdateWorkoutEntry(ctx, planID, "sexta-feira", "Flexão de Braço", replacement.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old != "Flexão de Braço" {
		t.Errorf("replaced exercise = %q", old)
	}

	friday, err := store.WorkoutsForDay(ctx, planID, "sexta-feira")
	if err != nil {
		t.Fatal(err)
	}
	if friday[0].ExerciseName != "Supino Reto" || friday[1].ExerciseName != "Crucifixo com Halteres" {
		t.Errorf("friday after update = %+v", friday)
	}
}

func TestExerciseFiltersAndAlternatives(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chest, err := store.Exercises(ctx, ExerciseFilter{MuscleGroup: "peito"})
	if err != nil {
		t.Fatal(err)
	}
	if len(chest) == 0 {
		t.Fatal("no chest exercises in seed catalog")
	}
	for _, e := range chest {
		if e.PrimaryMuscleGroup != "peito" {
			t.Errorf("filter leaked %s (%s)", e.Name, e.PrimaryMuscleGroup)
		}
	}

	alts, err := store.AlternativeExercises(ctx, "peito", "Supino Reto", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(alts) == 0 || len(alts) > 2 {
		t.Fatalf("got %d alternatives, want 1..2", len(alts))
	}
	for _, e := range alts {
		if e.Name == "Supino Reto" {
			t.Error("excluded exercise still suggested")
		}
	}
}

func TestSessionsAndProgress(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const userID = "user-1"

	today := time.Now().Format("2006-01-02")
	old := time.Now().AddDate(0, 0, -60).Format("2006-01-02")

	if _, err := store.RecordSession(ctx, userID, today, "Treino A", nil, 55, 8); err != nil {
		t.Fatal(err)
	}
	if _, err := store.RecordSession(ctx, userID, old, "Treino Antigo", nil, 40, 6); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.Sessions(ctx, userID, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions in the last 30 days, want 1", len(sessions))
	}
	if sessions[0].WorkoutName != "Treino A" || sessions[0].DurationMinutes != 55 {
		t.Errorf("session = %+v", sessions[0])
	}
}

func TestWeekdayAndMealSlot(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	if got := Weekday(monday); got != "segunda-feira" {
		t.Errorf("Weekday(monday) = %q", got)
	}
	if got := Weekday(monday.AddDate(0, 0, 5)); got != "sábado" {
		t.Errorf("Weekday(saturday) = %q", got)
	}

	tests := []struct {
		hour int
		want string
	}{
		{6, MealBreakfast},
		{9, MealBreakfast},
		{10, MealLunch},
		{13, MealLunch},
		{14, MealSnack},
		{17, MealSnack},
		{18, MealDinner},
		{23, MealDinner},
	}
	for _, tt := range tests {
		if got := MealSlot(tt.hour); got != tt.want {
			t.Errorf("MealSlot(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}
