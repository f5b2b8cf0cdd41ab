package plans

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Food is one catalog food with nutrition facts per 100g.
type Food struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Calories float64 `json:"calories_per_100g"`
	Protein  float64 `json:"protein_g"`
	Carbs    float64 `json:"carbs_g"`
	Fat      float64 `json:"fat_g"`
}

// Recipe is one catalog recipe.
type Recipe struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Ingredient is one recipe ingredient with its quantity.
type Ingredient struct {
	Name          string  `json:"name"`
	QuantityGrams float64 `json:"quantity_grams"`
	DisplayUnit   string  `json:"display_unit,omitempty"`
}

// MealPlan is a user's weekly meal plan header.
type MealPlan struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// MealEntry places a recipe on a day and meal slot, by recipe name.
type MealEntry struct {
	DayOfWeek  string `json:"day_of_week"`
	MealType   string `json:"meal_type"`
	RecipeName string `json:"recipe_name"`
	Order      int    `json:"order"`
}

// PlannedMeal is a resolved plan entry, recipe included.
type PlannedMeal struct {
	MealType          string `json:"meal_type"`
	RecipeName        string `json:"recipe_name"`
	RecipeDescription string `json:"recipe_description,omitempty"`
	Order             int    `json:"order"`
	DayOfWeek         string `json:"day_of_week,omitempty"`
}

// Foods returns the full food catalog.
func (s *Store) Foods(ctx context.Context) ([]Food, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, calories_per_100g, protein_g, carbs_g, fat_g
		FROM foods ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	defer rows.Close()

	var foods []Food
	for rows.Next() {
		var f Food
		var category sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &category, &f.Calories, &f.Protein, &f.Carbs, &f.Fat); err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		f.Category = category.String
		foods = append(foods, f)
	}
	return foods, rows.Err()
}

// Recipes returns the full recipe catalog.
func (s *Store) Recipes(ctx context.Context) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM recipes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var r Recipe
		var desc sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &desc); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		r.Description = desc.String
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// RecipeByName finds a recipe case-insensitively, falling back to a
// substring match the way users type recipe names over chat.
func (s *Store) RecipeByName(ctx context.Context, name string) (*Recipe, error) {
	var r Recipe
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM recipes WHERE name = ? COLLATE NOCASE`,
		name).Scan(&r.ID, &r.Name, &desc)
	if err == sql.ErrNoRows {
		err = s.db.QueryRowContext(ctx,
			`SELECT id, name, description FROM recipes WHERE name LIKE ? COLLATE NOCASE LIMIT 1`,
			"%"+name+"%").Scan(&r.ID, &r.Name, &desc)
	}
	if err != nil {
		return nil, err
	}
	r.Description = desc.String
	return &r, nil
}

// RecipeIngredients returns a recipe's ingredients with quantities.
func (s *Store) RecipeIngredients(ctx context.Context, recipeID string) ([]Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.name, ri.quantity_grams, ri.display_unit
		FROM recipe_ingredients ri
		JOIN foods f ON f.id = ri.food_id
		WHERE ri.recipe_id = ?
		ORDER BY ri.quantity_grams DESC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []Ingredient
	for rows.Next() {
		var ing Ingredient
		var unit sql.NullString
		if err := rows.Scan(&ing.Name, &ing.QuantityGrams, &unit); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ing.DisplayUnit = unit.String
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

// Meal-slot vocabularies used to pick suitable recipes by name, the
// same buckets the suggestion flow has always used.
var mealTypeKeywords = map[string][]string{
	MealBreakfast: {"omelete", "vitamina", "smoothie", "panqueca", "aveia", "tapioca", "ovos"},
	MealSnack:     {"iogurte", "mix", "castanhas", "pasta", "amendoim", "banana"},
	MealLunch:     {"frango", "peixe", "salmão", "carne", "quinoa", "salada", "sopa", "wrap", "tilápia"},
	MealDinner:    {"frango", "peixe", "salmão", "carne", "quinoa", "salada", "sopa", "wrap", "tilápia"},
}

// RecipesForMealType returns up to limit recipes suitable for a meal
// slot, excluding one by name. Falls back to the whole catalog when the
// slot vocabulary matches nothing.
func (s *Store) RecipesForMealType(ctx context.Context, mealType, exclude string, limit int) ([]Recipe, error) {
	all, err := s.Recipes(ctx)
	if err != nil {
		return nil, err
	}

	keywords := mealTypeKeywords[mealType]
	var suitable []Recipe
	for _, r := range all {
		if exclude != "" && strings.EqualFold(r.Name, exclude) {
			continue
		}
		lower := strings.ToLower(r.Name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				suitable = append(suitable, r)
				break
			}
		}
	}
	if len(suitable) == 0 {
		for _, r := range all {
			if exclude == "" || !strings.EqualFold(r.Name, exclude) {
				suitable = append(suitable, r)
			}
		}
	}
	if limit > 0 && len(suitable) > limit {
		suitable = suitable[:limit]
	}
	return suitable, nil
}

// ActiveMealPlan returns a user's active meal plan, sql.ErrNoRows when
// there is none.
func (s *Store) ActiveMealPlan(ctx context.Context, userID string) (*MealPlan, error) {
	var p MealPlan
	var start, end sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, start_date, end_date
		FROM meal_plans WHERE user_id = ? AND active = 1
		ORDER BY created_at DESC LIMIT 1
	`, userID).Scan(&p.ID, &p.UserID, &p.Name, &start, &end)
	if err != nil {
		return nil, err
	}
	p.StartDate = start.String
	p.EndDate = end.String
	return &p, nil
}

// CreateMealPlan deactivates any previous plan and stores a new one.
// Entries naming recipes the catalog does not have are skipped and
// reported back rather than failing the plan.
func (s *Store) CreateMealPlan(ctx context.Context, userID, name, startDate, endDate string, entries []MealEntry) (string, []string, error) {
	if startDate == "" {
		startDate = time.Now().Format("2006-01-02")
	}
	if endDate == "" {
		endDate = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE meal_plans SET active = 0 WHERE user_id = ?`, userID); err != nil {
		return "", nil, fmt.Errorf("deactivate old plans: %w", err)
	}

	planID, _ := uuid.NewV7()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meal_plans (id, user_id, name, start_date, end_date, active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`, planID.String(), userID, name, startDate, endDate,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", nil, fmt.Errorf("insert plan: %w", err)
	}

	var notFound []string
	for _, e := range entries {
		var recipeID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM recipes WHERE name = ? COLLATE NOCASE`, e.RecipeName).Scan(&recipeID)
		if err == sql.ErrNoRows {
			notFound = append(notFound, e.RecipeName)
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("resolve recipe %s: %w", e.RecipeName, err)
		}
		order := e.Order
		if order == 0 {
			order = 1
		}
		entryID, _ := uuid.NewV7()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO meal_plan_entries (id, plan_id, day_of_week, meal_type, recipe_id, display_order)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entryID.String(), planID.String(), e.DayOfWeek, e.MealType, recipeID, order); err != nil {
			return "", nil, fmt.Errorf("insert plan entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("commit: %w", err)
	}
	return planID.String(), notFound, nil
}

// MealsForDay returns a plan's meals on one day, in display order.
func (s *Store) MealsForDay(ctx context.Context, planID, day string) ([]PlannedMeal, error) {
	return s.queryMeals(ctx, `
		SELECT e.meal_type, r.name, r.description, e.display_order, e.day_of_week
		FROM meal_plan_entries e
		JOIN recipes r ON r.id = e.recipe_id
		WHERE e.plan_id = ? AND e.day_of_week = ?
		ORDER BY e.display_order
	`, planID, day)
}

// MealForSlot returns the meal planned for a day and slot, sql.ErrNoRows
// when none is planned.
func (s *Store) MealForSlot(ctx context.Context, planID, day, mealType string) (*PlannedMeal, error) {
	meals, err := s.queryMeals(ctx, `
		SELECT e.meal_type, r.name, r.description, e.display_order, e.day_of_week
		FROM meal_plan_entries e
		JOIN recipes r ON r.id = e.recipe_id
		WHERE e.plan_id = ? AND e.day_of_week = ? AND e.meal_type = ?
		ORDER BY e.display_order LIMIT 1
	`, planID, day, mealType)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, sql.ErrNoRows
	}
	return &meals[0], nil
}

// PlanMeals returns every meal in a plan, grouped by weekday by the
// caller.
func (s *Store) PlanMeals(ctx context.Context, planID string) ([]PlannedMeal, error) {
	return s.queryMeals(ctx, `
		SELECT e.meal_type, r.name, r.description, e.display_order, e.day_of_week
		FROM meal_plan_entries e
		JOIN recipes r ON r.id = e.recipe_id
		WHERE e.plan_id = ?
		ORDER BY e.day_of_week, e.display_order
	`, planID)
}

func (s *Store) queryMeals(ctx context.Context, query string, args ...any) ([]PlannedMeal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	var meals []PlannedMeal
	for rows.Next() {
		var m PlannedMeal
		var desc sql.NullString
		if err := rows.Scan(&m.MealType, &m.RecipeName, &desc, &m.Order, &m.DayOfWeek); err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		m.RecipeDescription = desc.String
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// UpdateMealEntry swaps the recipe on a day and slot. Returns the name
// of the recipe it replaced.
func (s *Store) UpdateMealEntry(ctx context.Context, planID, day, mealType, newRecipeID string) (string, error) {
	var entryID, oldName string
	err := s.db.QueryRowContext(ctx, `
		SELECT e.id, r.name
		FROM meal_plan_entries e
		JOIN recipes r ON r.id = e.recipe_id
		WHERE e.plan_id = ? AND e.day_of_week = ? AND e.meal_type = ?
		ORDER BY e.display_order LIMIT 1
	`, planID, day, mealType).Scan(&entryID, &oldName)
	if err != nil {
		return "", err
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE meal_plan_entries SET recipe_id = ? WHERE id = ?`,
		newRecipeID, entryID); err != nil {
		return "", fmt.Errorf("update meal entry: %w", err)
	}
	return oldName, nil
}
