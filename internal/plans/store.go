// Package plans stores the nutrition and training catalog and each
// user's active meal and workout plans. It shares a SQLite database
// with the user store; the agents read and write it exclusively
// through tools.
package plans

import (
	"database/sql"
	"fmt"
)

// Store manages plan persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a plan store using the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewStoreWithDB creates a plan store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS foods (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			category TEXT,
			calories_per_100g REAL,
			protein_g REAL,
			carbs_g REAL,
			fat_g REAL
		);

		CREATE TABLE IF NOT EXISTS recipes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT
		);

		CREATE TABLE IF NOT EXISTS recipe_ingredients (
			recipe_id TEXT NOT NULL,
			food_id TEXT NOT NULL,
			quantity_grams REAL NOT NULL,
			display_unit TEXT,
			PRIMARY KEY (recipe_id, food_id)
		);

		CREATE TABLE IF NOT EXISTS meal_plans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			start_date TEXT,
			end_date TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_meal_plans_user ON meal_plans(user_id, active);

		CREATE TABLE IF NOT EXISTS meal_plan_entries (
			id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL,
			day_of_week TEXT NOT NULL,
			meal_type TEXT NOT NULL,
			recipe_id TEXT NOT NULL,
			display_order INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_meal_entries_plan ON meal_plan_entries(plan_id, day_of_week);

		CREATE TABLE IF NOT EXISTS exercises (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			primary_muscle_group TEXT,
			secondary_muscle_group TEXT,
			equipment_needed TEXT,
			difficulty_level TEXT,
			instructions TEXT
		);

		CREATE TABLE IF NOT EXISTS workout_plans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			objective TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_workout_plans_user ON workout_plans(user_id, active);

		CREATE TABLE IF NOT EXISTS workout_plan_entries (
			id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL,
			day_of_week TEXT NOT NULL,
			exercise_id TEXT NOT NULL,
			sets INTEGER NOT NULL DEFAULT 3,
			reps TEXT NOT NULL DEFAULT '10-12',
			rest_seconds INTEGER NOT NULL DEFAULT 60,
			display_order INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_workout_entries_plan ON workout_plan_entries(plan_id, day_of_week);

		CREATE TABLE IF NOT EXISTS workout_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			workout_date TEXT NOT NULL,
			workout_name TEXT NOT NULL,
			exercises_performed TEXT,
			duration_minutes INTEGER,
			intensity_rating INTEGER,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_user ON workout_sessions(user_id, workout_date);
	`)
	if err != nil {
		return err
	}
	return s.seed()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
